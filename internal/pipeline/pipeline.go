// Package pipeline runs a complete load: schema, table loads in plan order,
// indices, and the referential check.
//
// Every failure is fatal. There is no resume: a failed run leaves whatever
// was committed before the failure, and a second run against the same store
// stops at schema creation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"sotorrent/internal/config"
	"sotorrent/internal/datasource/file"
	"sotorrent/internal/loaderr"
	"sotorrent/internal/metrics"
	csvparser "sotorrent/internal/parser/csv"
	xmlparser "sotorrent/internal/parser/xml"
	"sotorrent/internal/plan"
	"sotorrent/internal/schema"
	"sotorrent/internal/storage"
)

// Runner holds everything one run needs.
type Runner struct {
	Config  config.Config
	Catalog schema.Catalog
	Plan    plan.Plan
	// RunID tags log lines and metrics.
	RunID string
}

// Summary reports a finished run.
type Summary struct {
	RunID   string
	Tables  []storage.Result
	Rows    int64
	Orphans []storage.Orphans
	Elapsed time.Duration
}

// NewRunner builds a Runner for the SOTorrent catalog and the default plan
// over cfg.WorkDir.
func NewRunner(cfg config.Config) (*Runner, error) {
	cat := schema.SOTorrent()
	p, err := plan.Default(cfg.WorkDir, cat)
	if err != nil {
		return nil, err
	}
	return &Runner{Config: cfg, Catalog: cat, Plan: p, RunID: uuid.NewString()}, nil
}

// Run executes the load against the store named by the configuration.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: r.RunID}

	if err := r.check(); err != nil {
		return sum, err
	}

	cfg := r.Config
	log.Printf("pipeline: start run=%s store=%s dsn=%s work_dir=%s batch_size=%d fk_check=%s units=%d",
		r.RunID, cfg.Storage.Kind, redact(cfg.Storage.DSN), cfg.WorkDir, cfg.BatchSize, cfg.FKCheck, len(r.Plan.Units))

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		return sum, fmt.Errorf("pipeline: open store: %w", err)
	}
	defer repo.Close()

	if err := r.step("schema", func() error { return schema.Define(ctx, repo, r.Catalog) }); err != nil {
		return sum, err
	}

	for i, u := range r.Plan.Units {
		log.Printf("pipeline: unit %d/%d %s source=%s", i+1, len(r.Plan.Units), u.Table.FQN, u.Source.Path)
		var res storage.Result
		err := r.step("load:"+u.Table.FQN, func() error {
			var lerr error
			res, lerr = r.loadUnit(ctx, repo, u)
			return lerr
		})
		if err != nil {
			return sum, err
		}
		sum.Tables = append(sum.Tables, res)
		sum.Rows += res.Rows
		log.Printf("%s took %s (%d rows)", u.Table.FQN, res.Elapsed.Truncate(time.Millisecond), res.Rows)
	}

	if err := r.step("index", func() error { return schema.BuildIndexes(ctx, repo, r.Catalog) }); err != nil {
		return sum, err
	}

	if cfg.FKCheck != config.FKOff {
		err := r.step("fk_check", func() error {
			orphans, err := storage.CheckForeignKeys(ctx, repo, r.Plan.Tables())
			sum.Orphans = orphans
			if err != nil {
				return err
			}
			return enforce(cfg.FKCheck, orphans)
		})
		if err != nil {
			return sum, err
		}
	}

	sum.Elapsed = time.Since(start)
	log.Printf("pipeline: done run=%s tables=%d rows=%d orphan_refs=%d elapsed=%s",
		r.RunID, len(sum.Tables), sum.Rows, len(sum.Orphans), sum.Elapsed.Truncate(time.Millisecond))
	return sum, nil
}

// check validates configuration, catalog and plan before the store is
// touched.
func (r *Runner) check() error {
	issues := config.Validate(r.Config, storage.ListKinds())
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			log.Printf("config: %v", iss)
		}
	}
	if err := config.Errors(issues); err != nil {
		return fmt.Errorf("pipeline: config: %w", err)
	}
	if err := r.Catalog.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := r.Plan.Validate(r.Catalog); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (r *Runner) step(name string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	metrics.RecordStep(r.RunID, name, err, time.Since(t0))
	if err != nil {
		log.Printf("pipeline: step %s failed run=%s err=%v", name, r.RunID, err)
	}
	return err
}

func (r *Runner) loadUnit(ctx context.Context, repo storage.Repository, u plan.Unit) (storage.Result, error) {
	src, err := openSource(ctx, u.Source)
	if err != nil {
		return storage.Result{Table: u.Table.FQN}, &loaderr.LoadError{Table: u.Table.FQN, Err: err}
	}
	defer src.Close()

	return storage.LoadUnit(ctx, repo, u.Table, u.Rules, src, storage.LoadOptions{
		BatchSize: r.Config.BatchSize,
		Job:       r.RunID,
	})
}

// unitSource is a record reader over a digested file.
type unitSource struct {
	storage.Source
	f *file.Reader
}

func (s unitSource) Digest() uint64 { return s.f.Digest() }

func openSource(ctx context.Context, spec plan.SourceSpec) (storage.Source, error) {
	f, err := file.NewLocal(spec.Path).OpenReader(ctx)
	if err != nil {
		return nil, err
	}
	switch spec.Format {
	case plan.XML:
		return unitSource{Source: xmlparser.NewRowReader(f, xmlparser.Options{}), f: f}, nil
	case plan.CSV:
		return unitSource{Source: csvparser.NewRowReader(f, csvparser.Options{Header: spec.Header}), f: f}, nil
	default:
		_ = f.Close()
		return nil, fmt.Errorf("pipeline: %s: unknown source format %q", spec.Path, spec.Format)
	}
}

// enforce applies the referential-check policy to the orphan counts.
func enforce(policy config.FKPolicy, orphans []storage.Orphans) error {
	if len(orphans) == 0 {
		log.Printf("fkcheck: no orphan references")
		return nil
	}
	var total int64
	for _, o := range orphans {
		total += o.Count
	}
	if policy != config.FKStrict {
		log.Printf("fkcheck: %d foreign keys with orphans, %d rows total (policy=%s)", len(orphans), total, policy)
		return nil
	}
	first := orphans[0]
	return &loaderr.ConstraintError{
		Table: first.Table,
		Err: fmt.Errorf("%d orphan references across %d foreign keys, first %s(%s) -> %s",
			total, len(orphans), first.Table, strings.Join(first.FK.Columns, ","), first.FK.RefTable),
	}
}

// redact hides the password of URL, go-sql-driver and key=value DSNs.
func redact(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	if kvPassword.MatchString(dsn) {
		return kvPassword.ReplaceAllString(dsn, "${1}xxxxx")
	}
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	start := 0
	if i := strings.Index(dsn[:at], "//"); i >= 0 {
		start = i + 2
	}
	colon := strings.Index(dsn[start:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:start+colon+1] + "xxxxx" + dsn[at:]
}

var kvPassword = regexp.MustCompile(`(?i)(\bpassword=)('[^']*'|\S+)`)

// IsSchemaConflict reports whether err means the store was already
// initialized by an earlier run.
func IsSchemaConflict(err error) bool {
	var se *loaderr.SchemaError
	return errors.As(err, &se)
}
