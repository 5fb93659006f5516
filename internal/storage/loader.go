package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"sotorrent/internal/ddl"
	"sotorrent/internal/loaderr"
	"sotorrent/internal/metrics"
	"sotorrent/internal/normalize"
)

// LoadOptions tune a single LoadUnit call.
type LoadOptions struct {
	// BatchSize is the number of rows per committed transaction.
	BatchSize int
	// Job labels emitted metrics (usually the run id).
	Job string
}

// Result summarizes one loaded table.
type Result struct {
	Table   string
	Rows    int64
	Commits int64
	Elapsed time.Duration
	// Digest is the xxh3 hash of the source bytes, when the source reports one.
	Digest uint64
}

// Digester is implemented by sources that hash the bytes they consume.
type Digester interface {
	Digest() uint64
}

// LoadUnit streams every record from src into table.
//
// Foreign-key enforcement is switched off for the duration of the load and
// switched back on before returning, on success and on failure. Rows are
// inserted into an open transaction that is committed every BatchSize rows
// and once more for the trailing partial batch, so at most one batch is ever
// uncommitted. On any error the open transaction is rolled back, rows from
// earlier commits stay in place, and a *loaderr.LoadError wrapping the cause
// is returned.
func LoadUnit(
	ctx context.Context,
	repo Repository,
	table ddl.TableDef,
	rules normalize.Rules,
	src Source,
	opts LoadOptions,
) (res Result, err error) {
	res.Table = table.FQN
	if opts.BatchSize <= 0 {
		return res, fmt.Errorf("storage: load %s: batch size must be > 0", table.FQN)
	}
	if src == nil {
		return res, fmt.Errorf("storage: load %s: source must not be nil", table.FQN)
	}

	if !sameColumns(rules.Columns(), table.ColumnNames()) {
		return res, fmt.Errorf("storage: load %s: rules do not match table columns", table.FQN)
	}
	norm := normalize.New(table.FQN, rules)

	if err := repo.SetForeignKeys(ctx, false); err != nil {
		return res, &loaderr.LoadError{Table: table.FQN, Err: fmt.Errorf("disable foreign keys: %w", err)}
	}
	defer func() {
		if ferr := repo.SetForeignKeys(context.WithoutCancel(ctx), true); ferr != nil && err == nil {
			err = &loaderr.LoadError{Table: table.FQN, Err: fmt.Errorf("enable foreign keys: %w", ferr)}
		}
	}()

	var (
		tx         Tx
		inBatch    int
		recNo      int64
		buf        = make([]any, 0, norm.Arity())
		start      = time.Now()
		lastCommit = start
	)

	fail := func(cause error) (Result, error) {
		if tx != nil {
			if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil {
				log.Printf("loader: %s rollback failed err=%v", table.FQN, rerr)
			}
			tx = nil
		}
		res.Elapsed = time.Since(start)
		log.Printf("loader: %s failed record=%d committed_rows=%d commits=%d err=%v",
			table.FQN, recNo, res.Rows, res.Commits, cause)
		return res, &loaderr.LoadError{Table: table.FQN, Err: cause}
	}

	flush := func() error {
		if tx == nil {
			return nil
		}
		cerr := tx.Commit(ctx)
		tx = nil
		if cerr != nil {
			return classify(repo, table.FQN, "commit", cerr)
		}

		res.Rows += int64(inBatch)
		res.Commits++

		now := time.Now()
		sinceLast := now.Sub(lastCommit)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(inBatch) / sinceLast.Seconds()
		}
		log.Printf("%s: commit #%d rows=%d total=%d rps=%.0f elapsed=%s",
			table.FQN, res.Commits, inBatch, res.Rows, rps, now.Sub(start).Truncate(time.Millisecond))
		metrics.RecordRows(opts.Job, table.FQN, int64(inBatch))
		metrics.RecordCommits(opts.Job, table.FQN, 1)

		inBatch = 0
		lastCommit = now
		return nil
	}

	for {
		if cerr := ctx.Err(); cerr != nil {
			return fail(cerr)
		}

		raw, nerr := src.Next()
		if errors.Is(nerr, io.EOF) {
			break
		}
		recNo++
		if nerr != nil {
			return fail(sourceError(table.FQN, recNo, nerr))
		}

		row, nerr := norm.Normalize(recNo, raw, buf)
		if nerr != nil {
			return fail(nerr)
		}
		if cerr := coerceRow(table, recNo, row); cerr != nil {
			return fail(cerr)
		}

		if tx == nil {
			t, berr := repo.Begin(ctx, table)
			if berr != nil {
				return fail(fmt.Errorf("begin: %w", berr))
			}
			tx = t
		}
		if ierr := tx.Insert(ctx, row); ierr != nil {
			return fail(classify(repo, table.FQN, "insert", ierr))
		}
		inBatch++

		if inBatch >= opts.BatchSize {
			if ferr := flush(); ferr != nil {
				return fail(ferr)
			}
		}
	}
	if ferr := flush(); ferr != nil {
		return fail(ferr)
	}

	if d, ok := src.(Digester); ok {
		res.Digest = d.Digest()
	}
	res.Elapsed = time.Since(start)
	log.Printf("loader: %s done rows=%d commits=%d elapsed=%s xxh3=%016x",
		table.FQN, res.Rows, res.Commits, res.Elapsed.Truncate(time.Millisecond), res.Digest)
	return res, nil
}

// coerceRow converts row in place to typed values for table.
func coerceRow(table ddl.TableDef, recNo int64, row []any) error {
	for i, col := range table.Columns {
		v, err := CoerceValue(col.Type, row[i])
		if err != nil {
			return &loaderr.FormatError{Table: table.FQN, Record: recNo, Column: col.Name, Msg: err.Error()}
		}
		row[i] = v
	}
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sourceError keeps typed source failures and reports anything else as a
// malformed record.
func sourceError(table string, recNo int64, err error) error {
	var (
		ioErr  *loaderr.IOError
		fmtErr *loaderr.FormatError
	)
	if errors.As(err, &ioErr) || errors.As(err, &fmtErr) {
		return err
	}
	return &loaderr.FormatError{Table: table, Record: recNo, Msg: err.Error()}
}

func classify(repo Repository, table, op string, err error) error {
	if repo.ConstraintViolation(err) {
		return &loaderr.ConstraintError{Table: table, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
