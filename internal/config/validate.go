package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// maxBatchSize is the point past which an uncommitted batch is likely to
// exhaust memory or the engine's transaction log.
const maxBatchSize = 16 * 1024 * 1024

// Validate performs static checks over c. It does not mutate c. kinds lists
// the registered store backends; when empty the kind is not checked.
func Validate(c Config, kinds []string) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.WorkDir) == "" {
		issues = append(issues, Issue{SeverityError, "work_dir", "work dir must not be empty"})
	}
	issues = append(issues, validateStorage(c.Storage, kinds)...)

	switch {
	case c.BatchSize <= 0:
		issues = append(issues, Issue{SeverityError, "batch_size", fmt.Sprintf("batch size must be > 0, got %d", c.BatchSize)})
	case c.BatchSize > maxBatchSize:
		issues = append(issues, Issue{SeverityWarning, "batch_size",
			fmt.Sprintf("batch size %d keeps a very large transaction open", c.BatchSize)})
	}

	switch c.FKCheck {
	case FKWarn, FKStrict:
	case FKOff:
		issues = append(issues, Issue{SeverityWarning, "fk_check", "referential check disabled; orphan rows will go unreported"})
	default:
		issues = append(issues, Issue{SeverityError, "fk_check", fmt.Sprintf("unknown policy %q (want off, warn or strict)", c.FKCheck)})
	}

	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateStorage(s Storage, kinds []string) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
	}
	if len(kinds) > 0 && !contains(kinds, s.Kind) {
		issues = append(issues, Issue{SeverityError, "storage.kind",
			fmt.Sprintf("unsupported storage.kind=%s (registered: %s)", s.Kind, strings.Join(kinds, ", "))})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", fmt.Sprintf("%s requires %sSTORE_DSN", s.Kind, EnvPrefix)})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL"})
		} else if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", fmt.Sprintf("invalid URL %q", m.PushgatewayURL)})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown metrics backend %q (want none, pushgateway or datadog)", m.Backend)})
	}
	return issues
}

// Errors returns the error-severity issues joined into one error, or nil.
func Errors(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
