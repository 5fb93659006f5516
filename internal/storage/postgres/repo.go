// Package postgres implements a Postgres storage.Repository on pgx v5.
//
// Each transaction batch buffers rows in fixed-size chunks and ships every
// chunk with COPY FROM inside the open transaction, so memory stays bounded
// by the chunk size regardless of the batch size.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sotorrent/internal/ddl"
	"sotorrent/internal/storage"
)

// copyChunk is the number of buffered rows per COPY call.
const copyChunk = 8192

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgx.Connect
}

// pgConnLike is the subset of *pgx.Conn the repository uses. A single
// connection (not a pool) is required: session_replication_role is session
// state and must apply to the transactions that follow it.
type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	conn    pgConnLike
	dialect Dialect
}

// connect is a seam for tests.
var connect = func(ctx context.Context, dsn string) (pgConnLike, error) {
	return pgx.Connect(ctx, dsn)
}

// NewRepository connects and returns a Repository plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	c, err := connect(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: connect: %w", err)
	}
	closeFn := func() { _ = c.Close(context.Background()) }
	return &Repository{conn: c}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() ddl.Dialect { return r.dialect }

// Exec runs one statement outside any load transaction.
func (r *Repository) Exec(ctx context.Context, sql string, args ...any) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// QueryInt64 runs a query returning one integer.
func (r *Repository) QueryInt64(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: query: %w", err)
	}
	return n, nil
}

// SetForeignKeys switches session_replication_role, which suppresses the
// internal triggers that enforce foreign keys. It needs superuser (or
// equivalent) rights on the connection.
func (r *Repository) SetForeignKeys(ctx context.Context, enabled bool) error {
	role := "replica"
	if enabled {
		role = "origin"
	}
	if _, err := r.conn.Exec(ctx, "SET session_replication_role = "+role); err != nil {
		return fmt.Errorf("postgres: session_replication_role=%s: %w", role, err)
	}
	return nil
}

// Begin opens a transaction that COPYs rows into table.
func (r *Repository) Begin(ctx context.Context, table ddl.TableDef) (storage.Tx, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("postgres: begin %s: no columns", table.FQN)
	}
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &copyTx{
		tx:      tx,
		ident:   pgx.Identifier(strings.Split(table.FQN, ".")),
		table:   table,
		columns: table.ColumnNames(),
		rows:    make([][]any, 0, copyChunk),
	}, nil
}

// AlreadyExists matches duplicate_table (42P07), which Postgres also uses for
// indexes, and duplicate_object (42710).
func (r *Repository) AlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P07" || pgErr.Code == "42710"
	}
	return false
}

// ConstraintViolation matches SQLSTATE class 23 (integrity constraint
// violation).
func (r *Repository) ConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}

type copyTx struct {
	tx      pgx.Tx
	ident   pgx.Identifier
	table   ddl.TableDef
	columns []string
	rows    [][]any
	copied  int64
}

func (c *copyTx) Insert(ctx context.Context, row []any) error {
	if len(row) != len(c.columns) {
		return fmt.Errorf("postgres: insert: row length %d != columns length %d", len(row), len(c.columns))
	}
	vals := make([]any, len(row))
	for i, v := range row {
		pv, err := copyValue(c.table.Columns[i].Type, v)
		if err != nil {
			return fmt.Errorf("postgres: insert %s.%s: %w", c.table.FQN, c.columns[i], err)
		}
		vals[i] = pv
	}
	c.rows = append(c.rows, vals)
	if len(c.rows) >= copyChunk {
		return c.flush(ctx)
	}
	return nil
}

func (c *copyTx) flush(ctx context.Context) error {
	if len(c.rows) == 0 {
		return nil
	}
	n, err := c.tx.CopyFrom(ctx, c.ident, c.columns, pgx.CopyFromRows(c.rows))
	c.rows = c.rows[:0]
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return fmt.Errorf("postgres: copy %s: %s (%s): %w", c.table.FQN, pgErr.Detail, pgErr.SQLState(), err)
		}
		return fmt.Errorf("postgres: copy %s: %w", c.table.FQN, err)
	}
	c.copied += n
	return nil
}

func (c *copyTx) Commit(ctx context.Context) error {
	if err := c.flush(ctx); err != nil {
		_ = c.tx.Rollback(ctx)
		return err
	}
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (c *copyTx) Rollback(ctx context.Context) error {
	c.rows = c.rows[:0]
	if err := c.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

// copyValue turns a coerced value into what the binary COPY encoder expects
// for the column type. Datetime strings become time.Time.
func copyValue(t ddl.Type, v any) (any, error) {
	s, ok := v.(string)
	if !ok || t.Kind != ddl.DateTime {
		return v, nil
	}
	ts, err := storage.ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return ts.In(time.UTC), nil
}
