// Package schema holds the fixed SOTorrent catalog (reference tables with
// their enumerated rows, entity and derived tables, secondary indices) and
// the operations that materialize it in a store: Define before loading and
// BuildIndexes after.
package schema

import (
	"fmt"

	"sotorrent/internal/ddl"
)

// RefTable is a reference (enumeration) table with its complete row set.
// Rows are aligned with Def.Columns.
type RefTable struct {
	Def  ddl.TableDef
	Rows [][]any
}

// Catalog is the full schema: reference tables first, then the tables
// populated from source files in creation order, then the indices built
// after loading.
type Catalog struct {
	Reference []RefTable
	Tables    []ddl.TableDef
	Indexes   []ddl.IndexDef
}

// Table looks up any table (reference or loaded) by name.
func (c Catalog) Table(name string) (ddl.TableDef, bool) {
	for _, r := range c.Reference {
		if r.Def.FQN == name {
			return r.Def, true
		}
	}
	for _, t := range c.Tables {
		if t.FQN == name {
			return t, true
		}
	}
	return ddl.TableDef{}, false
}

// IsReference reports whether name is one of the catalog's reference tables.
func (c Catalog) IsReference(name string) bool {
	for _, r := range c.Reference {
		if r.Def.FQN == name {
			return true
		}
	}
	return false
}

// AllTables returns reference and loaded table definitions in creation order.
func (c Catalog) AllTables() []ddl.TableDef {
	out := make([]ddl.TableDef, 0, len(c.Reference)+len(c.Tables))
	for _, r := range c.Reference {
		out = append(out, r.Def)
	}
	return append(out, c.Tables...)
}

// Validate checks internal consistency: unique table names, reference rows
// matching their column arity, foreign keys pointing at known tables and
// columns, and indices over known columns.
func (c Catalog) Validate() error {
	seen := map[string]bool{}
	for _, t := range c.AllTables() {
		if seen[t.FQN] {
			return fmt.Errorf("schema: duplicate table %s", t.FQN)
		}
		seen[t.FQN] = true
	}
	for _, r := range c.Reference {
		if r.Def.Category != ddl.Reference {
			return fmt.Errorf("schema: %s listed as reference but has category %s", r.Def.FQN, r.Def.Category)
		}
		for i, row := range r.Rows {
			if len(row) != len(r.Def.Columns) {
				return fmt.Errorf("schema: %s row %d has %d values, want %d", r.Def.FQN, i, len(row), len(r.Def.Columns))
			}
		}
	}
	for _, t := range c.AllTables() {
		for _, fk := range t.ForeignKeys {
			ref, ok := c.Table(fk.RefTable)
			if !ok {
				return fmt.Errorf("schema: %s references unknown table %s", t.FQN, fk.RefTable)
			}
			for _, col := range fk.Columns {
				if _, ok := t.Column(col); !ok {
					return fmt.Errorf("schema: %s foreign key on unknown column %s", t.FQN, col)
				}
			}
			for _, col := range fk.RefColumns {
				if _, ok := ref.Column(col); !ok {
					return fmt.Errorf("schema: %s references unknown column %s.%s", t.FQN, ref.FQN, col)
				}
			}
		}
	}
	names := map[string]bool{}
	for _, idx := range c.Indexes {
		if names[idx.Name] {
			return fmt.Errorf("schema: duplicate index %s", idx.Name)
		}
		names[idx.Name] = true
		t, ok := c.Table(idx.Table)
		if !ok {
			return fmt.Errorf("schema: index %s on unknown table %s", idx.Name, idx.Table)
		}
		for _, col := range idx.Columns {
			if _, ok := t.Column(col); !ok {
				return fmt.Errorf("schema: index %s on unknown column %s.%s", idx.Name, idx.Table, col)
			}
		}
	}
	return nil
}

var (
	tinyint    = ddl.Of(ddl.TinyInt)
	integer    = ddl.Of(ddl.Int)
	boolean    = ddl.Of(ddl.Bool)
	double     = ddl.Of(ddl.Double)
	datetime   = ddl.Of(ddl.DateTime)
	text       = ddl.Of(ddl.Text)
	mediumtext = ddl.Of(ddl.MediumText)
	longtext   = ddl.Of(ddl.LongText)
)

func varchar(n int) ddl.Type { return ddl.VarCharN(n) }

func pk(name string, t ddl.Type) ddl.ColumnDef {
	return ddl.ColumnDef{Name: name, Type: t, PrimaryKey: true}
}

func req(name string, t ddl.Type) ddl.ColumnDef {
	return ddl.ColumnDef{Name: name, Type: t}
}

func opt(name string, t ddl.Type) ddl.ColumnDef {
	return ddl.ColumnDef{Name: name, Type: t, Nullable: true}
}

func withDefault(c ddl.ColumnDef, def string) ddl.ColumnDef {
	c.Default = def
	return c
}

func fk(col, refTable string) ddl.ForeignKey {
	return ddl.ForeignKey{Columns: []string{col}, RefTable: refTable, RefColumns: []string{"Id"}}
}

func index(table string, cols ...string) ddl.IndexDef {
	name := table + "_idx"
	for _, c := range cols {
		name += "_" + c
	}
	return ddl.IndexDef{Name: name, Table: table, Columns: cols}
}

func textIndex(table string, prefix int, cols ...string) ddl.IndexDef {
	idx := index(table, cols...)
	idx.PrefixLen = prefix
	return idx
}
