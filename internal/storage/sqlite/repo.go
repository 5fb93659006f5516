// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc.org/sqlite driver. SQLite has no bulk
// load API like Postgres COPY; rows go through one prepared INSERT inside
// each transaction batch instead.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"sotorrent/internal/ddl"
	"sotorrent/internal/storage"
)

// Repository is a SQLite-backed implementation of storage.Repository.
//
// The pool is pinned to a single connection: PRAGMA foreign_keys is
// per-connection state and must apply to every later statement.
type Repository struct {
	db      *sql.DB
	cfg     Config
	dialect Dialect
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	pragmas := append([]string{"foreign_keys = ON"}, cfg.Pragmas...)
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, "PRAGMA "+p); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("sqlite: pragma %s: %w", p, err)
		}
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() ddl.Dialect { return r.dialect }

// Exec executes a single statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// QueryInt64 runs a query returning a single integer.
func (r *Repository) QueryInt64(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: query: %w", err)
	}
	return n, nil
}

// SetForeignKeys toggles PRAGMA foreign_keys. SQLite ignores the pragma
// inside an open transaction, so it is only called between batches.
func (r *Repository) SetForeignKeys(ctx context.Context, enabled bool) error {
	v := "OFF"
	if enabled {
		v = "ON"
	}
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys = "+v); err != nil {
		return fmt.Errorf("sqlite: foreign_keys %s: %w", v, err)
	}
	return nil
}

// ForeignKeysEnabled reads back PRAGMA foreign_keys.
func (r *Repository) ForeignKeysEnabled(ctx context.Context) (bool, error) {
	n, err := r.QueryInt64(ctx, "PRAGMA foreign_keys")
	return n == 1, err
}

// Begin opens a transaction with a prepared INSERT for table.
func (r *Repository) Begin(ctx context.Context, table ddl.TableDef) (storage.Tx, error) {
	stmtSQL, err := ddl.BuildInsertSQL(r.dialect, table.FQN, table.ColumnNames())
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	return &batchTx{tx: tx, stmt: stmt, width: len(table.Columns)}, nil
}

// AlreadyExists matches SQLite's "table X already exists" and "index X
// already exists" errors, which carry only the generic SQLITE_ERROR code.
func (r *Repository) AlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// ConstraintViolation reports SQLITE_CONSTRAINT and its extended codes.
func (r *Repository) ConstraintViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

type batchTx struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	width int
}

func (b *batchTx) Insert(ctx context.Context, row []any) error {
	if len(row) != b.width {
		return fmt.Errorf("sqlite: insert: row length %d != columns length %d", len(row), b.width)
	}
	if _, err := b.stmt.ExecContext(ctx, row...); err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

func (b *batchTx) Commit(ctx context.Context) error {
	_ = b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (b *batchTx) Rollback(ctx context.Context) error {
	_ = b.stmt.Close()
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}
