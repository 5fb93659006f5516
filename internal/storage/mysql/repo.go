// Package mysql implements a MySQL storage.Repository over database/sql and
// github.com/go-sql-driver/mysql. Rows go through one prepared INSERT per
// transaction batch.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"sotorrent/internal/ddl"
	"sotorrent/internal/storage"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN string // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/sotorrent
}

// Server error numbers used for classification.
const (
	erTableExists  = 1050
	erDupKeyName   = 1061
	erBadNull      = 1048
	erDupEntry     = 1062
	erNoRefRow     = 1216
	erRowIsRef     = 1217
	erRowIsRef2    = 1451
	erNoRefRow2    = 1452
	erCheckViolate = 3819
)

// Repository is a MySQL-backed implementation of storage.Repository.
// FOREIGN_KEY_CHECKS is a session variable, so the pool holds one connection.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewRepository opens and pings a MySQL connection and returns a Repository
// plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	if _, err := driver.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql: parse DSN: %w", err)
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() ddl.Dialect { return r.dialect }

// Exec executes a single statement.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// QueryInt64 runs a query returning a single integer.
func (r *Repository) QueryInt64(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysql: query: %w", err)
	}
	return n, nil
}

// SetForeignKeys toggles the FOREIGN_KEY_CHECKS session variable.
func (r *Repository) SetForeignKeys(ctx context.Context, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("SET FOREIGN_KEY_CHECKS = %d", v)); err != nil {
		return fmt.Errorf("mysql: foreign_key_checks=%d: %w", v, err)
	}
	return nil
}

// Begin opens a transaction with a prepared INSERT for table.
func (r *Repository) Begin(ctx context.Context, table ddl.TableDef) (storage.Tx, error) {
	stmtSQL, err := ddl.BuildInsertSQL(r.dialect, table.FQN, table.ColumnNames())
	if err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("mysql: prepare insert: %w", err)
	}
	return &batchTx{tx: tx, stmt: stmt, table: table, vals: make([]any, len(table.Columns))}, nil
}

// AlreadyExists matches ER_TABLE_EXISTS_ERROR and ER_DUP_KEYNAME.
func (r *Repository) AlreadyExists(err error) bool {
	n, ok := errorNumber(err)
	return ok && (n == erTableExists || n == erDupKeyName)
}

// ConstraintViolation matches duplicate keys, NOT NULL, CHECK, and foreign
// key failures.
func (r *Repository) ConstraintViolation(err error) bool {
	n, ok := errorNumber(err)
	if !ok {
		return false
	}
	switch n {
	case erBadNull, erDupEntry, erNoRefRow, erRowIsRef, erRowIsRef2, erNoRefRow2, erCheckViolate:
		return true
	}
	return false
}

func errorNumber(err error) (uint16, bool) {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

type batchTx struct {
	tx    *sql.Tx
	stmt  *sql.Stmt
	table ddl.TableDef
	vals  []any
}

func (b *batchTx) Insert(ctx context.Context, row []any) error {
	if len(row) != len(b.vals) {
		return fmt.Errorf("mysql: insert: row length %d != columns length %d", len(row), len(b.vals))
	}
	for i, v := range row {
		bv, err := bindValue(b.table.Columns[i].Type, v)
		if err != nil {
			return fmt.Errorf("mysql: insert %s.%s: %w", b.table.FQN, b.table.Columns[i].Name, err)
		}
		b.vals[i] = bv
	}
	if _, err := b.stmt.ExecContext(ctx, b.vals...); err != nil {
		return fmt.Errorf("mysql: insert: %w", err)
	}
	return nil
}

func (b *batchTx) Commit(ctx context.Context) error {
	_ = b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", err)
	}
	return nil
}

func (b *batchTx) Rollback(ctx context.Context) error {
	_ = b.stmt.Close()
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("mysql: rollback: %w", err)
	}
	return nil
}

// bindValue converts datetime strings to time.Time so the driver sends a
// binary DATETIME instead of relying on server-side string parsing.
func bindValue(t ddl.Type, v any) (any, error) {
	s, ok := v.(string)
	if !ok || t.Kind != ddl.DateTime {
		return v, nil
	}
	ts, err := storage.ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return ts.UTC(), nil
}
