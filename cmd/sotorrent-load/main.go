// Command sotorrent-load loads a SOTorrent release from the current
// directory into a relational store.
//
// It takes no flags. Source files are read from the working directory, and
// the store and tuning knobs come from SOTORRENT_* environment variables or
// a .env file next to the sources (see internal/config).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sotorrent/internal/config"
	"sotorrent/internal/metrics"
	"sotorrent/internal/metrics/datadog"
	"sotorrent/internal/metrics/prompush"
	"sotorrent/internal/pipeline"

	// register all backends with the storage factory.
	_ "sotorrent/internal/storage/all"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fatalf("getwd: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := run(ctx, wd, os.Getenv); err != nil {
		if pipeline.IsSchemaConflict(err) {
			log.Printf("store already initialized; remove it or point SOTORRENT_STORE_DSN elsewhere")
		}
		stop()
		fatalf("%v", err)
	}
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// run loads configuration for workDir and executes a full load.
func run(ctx context.Context, workDir string, getenv func(string) string) error {
	cfg, err := config.Load(workDir, getenv)
	if err != nil {
		return err
	}

	flush, err := setupMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	defer flush()

	r, err := pipeline.NewRunner(cfg)
	if err != nil {
		return err
	}
	sum, err := r.Run(ctx)
	for _, t := range sum.Tables {
		log.Printf("summary: %s rows=%d commits=%d xxh3=%016x", t.Table, t.Rows, t.Commits, t.Digest)
	}
	return err
}

// setupMetrics installs the configured backend and returns the function that
// pushes what was collected.
func setupMetrics(m config.Metrics) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		return func() {}, nil
	case "pushgateway":
		b, err = prompush.NewBackend("sotorrent_load", m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: "sotorrent."})
	default:
		err = fmt.Errorf("unknown backend %q", m.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	log.Printf("metrics: backend=%s", m.Backend)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
