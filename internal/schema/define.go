package schema

import (
	"context"
	"fmt"
	"log"
	"time"

	"sotorrent/internal/ddl"
	"sotorrent/internal/loaderr"
	"sotorrent/internal/storage"
)

// Define creates every catalog table. Each reference table is created and
// filled with its complete row set in its own transaction; entity and derived
// tables are created afterwards in catalog order.
//
// CREATE TABLE is issued without IF NOT EXISTS, so a store that already holds
// any catalog table fails with a *loaderr.SchemaError of kind TableExists.
func Define(ctx context.Context, repo storage.Repository, cat Catalog) error {
	start := time.Now()
	d := repo.Dialect()

	for _, ref := range cat.Reference {
		if err := createTable(ctx, repo, d, ref.Def); err != nil {
			return err
		}
		if err := insertReferenceRows(ctx, repo, ref); err != nil {
			return err
		}
		log.Printf("schema: created %s rows=%d", ref.Def.FQN, len(ref.Rows))
	}
	for _, t := range cat.Tables {
		if err := createTable(ctx, repo, d, t); err != nil {
			return err
		}
		log.Printf("schema: created %s (%s) columns=%d", t.FQN, t.Category, len(t.Columns))
	}

	log.Printf("schema: %d tables ready elapsed=%s",
		len(cat.Reference)+len(cat.Tables), time.Since(start).Truncate(time.Millisecond))
	return nil
}

func createTable(ctx context.Context, repo storage.Repository, d ddl.Dialect, t ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(d, t)
	if err != nil {
		return fmt.Errorf("schema: render %s: %w", t.FQN, err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		if repo.AlreadyExists(err) {
			return &loaderr.SchemaError{Object: t.FQN, Kind: loaderr.TableExists, Err: err}
		}
		return fmt.Errorf("schema: create %s: %w", t.FQN, err)
	}
	return nil
}

func insertReferenceRows(ctx context.Context, repo storage.Repository, ref RefTable) error {
	tx, err := repo.Begin(ctx, ref.Def)
	if err != nil {
		return fmt.Errorf("schema: begin %s: %w", ref.Def.FQN, err)
	}
	row := make([]any, len(ref.Def.Columns))
	for i, values := range ref.Rows {
		for j, col := range ref.Def.Columns {
			v, err := storage.CoerceValue(col.Type, values[j])
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("schema: %s row %d column %s: %w", ref.Def.FQN, i, col.Name, err)
			}
			row[j] = v
		}
		if err := tx.Insert(ctx, row); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("schema: insert %s row %d: %w", ref.Def.FQN, i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schema: commit %s: %w", ref.Def.FQN, err)
	}
	return nil
}

// BuildIndexes creates the secondary indices once all units are loaded.
// An index that already exists fails with a *loaderr.SchemaError of kind
// IndexExists.
func BuildIndexes(ctx context.Context, repo storage.Repository, cat Catalog) error {
	start := time.Now()
	d := repo.Dialect()

	for _, idx := range cat.Indexes {
		t, ok := cat.Table(idx.Table)
		if !ok {
			return fmt.Errorf("schema: index %s on unknown table %s", idx.Name, idx.Table)
		}
		stmt, err := ddl.BuildCreateIndexSQL(d, idx, t)
		if err != nil {
			return fmt.Errorf("schema: render index %s: %w", idx.Name, err)
		}
		t0 := time.Now()
		if err := repo.Exec(ctx, stmt); err != nil {
			if repo.AlreadyExists(err) {
				return &loaderr.SchemaError{Object: idx.Name, Kind: loaderr.IndexExists, Err: err}
			}
			return fmt.Errorf("schema: create index %s: %w", idx.Name, err)
		}
		log.Printf("schema: index %s on %s elapsed=%s", idx.Name, idx.Table, time.Since(t0).Truncate(time.Millisecond))
	}

	log.Printf("schema: %d indexes ready elapsed=%s", len(cat.Indexes), time.Since(start).Truncate(time.Millisecond))
	return nil
}
