// Package config defines the run configuration for the loader.
//
// The invocation takes no flags: the working directory locates both the
// source files and the default store, and everything else comes from
// SOTORRENT_* environment variables, optionally seeded from <WorkDir>/.env.
// Process environment always wins over the .env file.
//
// Recognized variables:
//
//	SOTORRENT_STORE_KIND       sqlite | postgres | mysql (default sqlite)
//	SOTORRENT_STORE_DSN        default <WorkDir>/sotorrent18_12.sqlite3 for sqlite
//	SOTORRENT_BATCH_SIZE       rows per committed transaction (default 1048576)
//	SOTORRENT_FK_CHECK         off | warn | strict (default warn)
//	SOTORRENT_METRICS_BACKEND  none | pushgateway | datadog (default none)
//	SOTORRENT_PUSHGATEWAY_URL  required for pushgateway
//	SOTORRENT_DATADOG_ADDR     required for datadog, e.g. 127.0.0.1:8125
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every recognized environment variable.
const EnvPrefix = "SOTORRENT_"

// Defaults.
const (
	DefaultStoreKind = "sqlite"
	DefaultStoreFile = "sotorrent18_12.sqlite3"
	DefaultBatchSize = 1024 * 1024
)

// FKPolicy controls the referential check after loading.
type FKPolicy string

const (
	// FKOff skips the check.
	FKOff FKPolicy = "off"
	// FKWarn logs orphan counts.
	FKWarn FKPolicy = "warn"
	// FKStrict fails the run on any orphan reference.
	FKStrict FKPolicy = "strict"
)

// Config is the full run configuration.
type Config struct {
	// WorkDir holds the source files and, by default, the store.
	WorkDir string `json:"work_dir"`

	Storage Storage `json:"storage"`

	// BatchSize is the commit threshold in rows.
	BatchSize int `json:"batch_size"`

	FKCheck FKPolicy `json:"fk_check"`

	Metrics Metrics `json:"metrics"`
}

// Storage selects the store backend.
type Storage struct {
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url,omitempty"`
	DatadogAddr    string `json:"datadog_addr,omitempty"`
}

// Load builds the configuration for workDir. getenv is usually os.Getenv;
// values it returns take precedence over <workDir>/.env, which in turn takes
// precedence over the defaults. A missing .env file is not an error.
func Load(workDir string, getenv func(string) string) (Config, error) {
	if strings.TrimSpace(workDir) == "" {
		return Config{}, fmt.Errorf("config: work dir must not be empty")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	dotenv, err := godotenv.Read(filepath.Join(workDir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	lookup := func(key string) string {
		key = EnvPrefix + key
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}

	c := Config{
		WorkDir: workDir,
		Storage: Storage{
			Kind: pick(lookup("STORE_KIND"), DefaultStoreKind),
			DSN:  lookup("STORE_DSN"),
		},
		BatchSize: DefaultBatchSize,
		FKCheck:   FKPolicy(strings.ToLower(pick(lookup("FK_CHECK"), string(FKWarn)))),
		Metrics: Metrics{
			Backend:        strings.ToLower(pick(lookup("METRICS_BACKEND"), "none")),
			PushgatewayURL: lookup("PUSHGATEWAY_URL"),
			DatadogAddr:    lookup("DATADOG_ADDR"),
		},
	}
	if c.Storage.DSN == "" && c.Storage.Kind == "sqlite" {
		c.Storage.DSN = filepath.Join(workDir, DefaultStoreFile)
	}
	if v := lookup("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %sBATCH_SIZE=%q: %w", EnvPrefix, v, err)
		}
		c.BatchSize = n
	}
	return c, nil
}

func pick(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
