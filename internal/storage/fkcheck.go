package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sotorrent/internal/ddl"
)

// Orphans counts child rows whose foreign key has no matching parent.
type Orphans struct {
	Table string
	FK    ddl.ForeignKey
	Count int64
}

// CheckForeignKeys counts orphaned references for every foreign key of
// tables. Loading runs with enforcement off, so this is the only place
// dangling references surface. Only non-zero counts are returned.
func CheckForeignKeys(ctx context.Context, repo Repository, tables []ddl.TableDef) ([]Orphans, error) {
	var out []Orphans
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			q, err := BuildOrphanCountSQL(repo.Dialect(), t.FQN, fk)
			if err != nil {
				return out, err
			}
			n, err := repo.QueryInt64(ctx, q)
			if err != nil {
				return out, fmt.Errorf("storage: fk check %s(%s): %w", t.FQN, strings.Join(fk.Columns, ","), err)
			}
			if n > 0 {
				log.Printf("fkcheck: %s(%s) -> %s orphans=%d",
					t.FQN, strings.Join(fk.Columns, ","), fk.RefTable, n)
				out = append(out, Orphans{Table: t.FQN, FK: fk, Count: n})
			}
		}
	}
	return out, nil
}

// BuildOrphanCountSQL renders a portable NOT EXISTS count for one foreign
// key. Rows with a NULL in any referencing column are not orphans.
func BuildOrphanCountSQL(d ddl.Dialect, table string, fk ddl.ForeignKey) (string, error) {
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) || fk.RefTable == "" {
		return "", fmt.Errorf("storage: fk check %s: malformed foreign key", table)
	}

	notNull := make([]string, len(fk.Columns))
	join := make([]string, len(fk.Columns))
	for i, col := range fk.Columns {
		c := "c." + d.QuoteIdent(col)
		notNull[i] = c + " IS NOT NULL"
		join[i] = "p." + d.QuoteIdent(fk.RefColumns[i]) + " = " + c
	}

	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s c WHERE %s AND NOT EXISTS (SELECT 1 FROM %s p WHERE %s)",
		ddl.QuoteFQN(d, table),
		strings.Join(notNull, " AND "),
		ddl.QuoteFQN(d, fk.RefTable),
		strings.Join(join, " AND "),
	), nil
}
