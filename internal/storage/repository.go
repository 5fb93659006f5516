// Package storage contains the storage-agnostic contracts shared by every
// backend (Repository, Tx, Source), a small factory registry that backends
// join from their init functions, and the engine-independent bulk loader.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sotorrent/internal/ddl"
	"sotorrent/internal/normalize"
)

// Config selects and configures a backend.
type Config struct {
	Kind string // "sqlite", "postgres", "mysql"
	DSN  string
}

// Repository is an open connection to a relational store.
type Repository interface {
	// Dialect renders DDL and DML for this engine.
	Dialect() ddl.Dialect
	// Exec runs a single statement outside any load transaction.
	Exec(ctx context.Context, sql string, args ...any) error
	// QueryInt64 runs a query returning one integer (counts).
	QueryInt64(ctx context.Context, sql string, args ...any) (int64, error)
	// SetForeignKeys turns foreign-key enforcement on or off for the
	// connection used by subsequent transactions.
	SetForeignKeys(ctx context.Context, enabled bool) error
	// Begin opens a transaction that inserts rows into table; every row
	// passed to Insert is aligned with table.Columns.
	Begin(ctx context.Context, table ddl.TableDef) (Tx, error)
	// AlreadyExists reports whether err came from creating an object that
	// already exists.
	AlreadyExists(err error) bool
	// ConstraintViolation reports whether err is a uniqueness, NOT NULL or
	// foreign-key violation.
	ConstraintViolation(err error) bool
	Close()
}

// Tx is one transaction batch. Rows become visible only on Commit. The
// caller reuses the row slice, so Insert must not retain it.
type Tx interface {
	Insert(ctx context.Context, row []any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Source yields raw records for one table, one at a time. Next returns
// io.EOF after the last record.
type Source interface {
	Next() (normalize.Raw, error)
	Close() error
}

// Factory constructs a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds (or replaces) the factory for kind. Backends call it from
// init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
