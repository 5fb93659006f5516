// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE, CREATE INDEX and parameterized INSERT statements
// from that model.
//
// Dialect differences (identifier quoting, concrete column types, bind
// placeholders, text index prefixes) are isolated behind the Dialect
// interface. Backend packages embed Generic and override what differs.
//
// Statements are rendered without IF NOT EXISTS: creating an object that is
// already present must fail so a second run against an initialized store is
// detected.
package ddl

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect adapts rendering to one SQL engine.
type Dialect interface {
	// Name is a short identifier such as "sqlite".
	Name() string
	// QuoteIdent quotes a single identifier.
	QuoteIdent(id string) string
	// ColumnType renders a semantic type as a concrete SQL type.
	ColumnType(t Type) string
	// Placeholder returns the bind placeholder for the n-th (1-based) argument.
	Placeholder(n int) string
	// TextIndexPrefix reports whether text columns need an explicit prefix
	// length when indexed.
	TextIndexPrefix() bool
	// DefaultLiteral renders a column default for a column of type t. def is
	// the catalog spelling, e.g. "0" for an integer or boolean column.
	DefaultLiteral(t Type, def string) string
}

// Generic is a neutral ANSI-ish dialect: double-quoted identifiers, '?'
// placeholders, and standard type names. Backends embed it.
type Generic struct{}

func (Generic) Name() string { return "generic" }

func (Generic) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (Generic) ColumnType(t Type) string {
	switch t.Kind {
	case TinyInt:
		return "SMALLINT"
	case Int:
		return "INTEGER"
	case Bool:
		return "BOOLEAN"
	case Double:
		return "DOUBLE PRECISION"
	case DateTime:
		return "TIMESTAMP"
	case VarChar:
		return fmt.Sprintf("VARCHAR(%d)", t.Len)
	default:
		return "TEXT"
	}
}

func (Generic) Placeholder(int) string { return "?" }

func (Generic) TextIndexPrefix() bool { return false }

// DefaultLiteral spells boolean defaults as TRUE/FALSE, which engines with a
// real BOOLEAN type require. Everything else is emitted as written.
func (Generic) DefaultLiteral(t Type, def string) string {
	if t.Kind != Bool {
		return def
	}
	b, err := strconv.ParseBool(def)
	if err != nil {
		return def
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// QuoteFQN quotes each dotted segment of a possibly-qualified name and drops
// empty segments.
func QuoteFQN(d Dialect, fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

func quoteList(d Dialect, names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = d.QuoteIdent(n)
	}
	return strings.Join(q, ", ")
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name.
//
//   - A column is rendered as:
//
//     <Name> <Type> [NOT NULL] [DEFAULT <Default>]
//
//   - Default is rendered through Dialect.DefaultLiteral.
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (...) clause, followed by one FOREIGN KEY clause per
//     t.ForeignKeys entry.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(d.ColumnType(c.Type))

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(d.DefaultLiteral(c.Type, def))
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) || fk.RefTable == "" {
			return "", fmt.Errorf("ddl: malformed foreign key on %s: %v -> %s%v", fqn, fk.Columns, fk.RefTable, fk.RefColumns)
		}
		cols = append(cols, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s(%s)",
			quoteList(d, fk.Columns),
			QuoteFQN(d, fk.RefTable),
			quoteList(d, fk.RefColumns),
		))
	}

	stmt := fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		QuoteFQN(d, fqn),
		strings.Join(cols, ",\n  "),
	)
	return stmt, nil
}

// BuildCreateIndexSQL renders CREATE INDEX for idx. t is the indexed table;
// it is consulted for column types when the dialect needs text prefixes.
func BuildCreateIndexSQL(d Dialect, idx IndexDef, t TableDef) (string, error) {
	if strings.TrimSpace(idx.Name) == "" {
		return "", fmt.Errorf("ddl: index name must not be empty")
	}
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("ddl: index %s has no columns", idx.Name)
	}
	if idx.Table != t.FQN {
		return "", fmt.Errorf("ddl: index %s targets %s, got definition for %s", idx.Name, idx.Table, t.FQN)
	}

	cols := make([]string, len(idx.Columns))
	for i, name := range idx.Columns {
		c, ok := t.Column(name)
		if !ok {
			return "", fmt.Errorf("ddl: index %s: unknown column %s.%s", idx.Name, t.FQN, name)
		}
		cols[i] = d.QuoteIdent(name)
		if d.TextIndexPrefix() && idx.PrefixLen > 0 && (c.Type.FreeText() || (c.Type.Kind == VarChar && c.Type.Len > idx.PrefixLen)) {
			cols[i] += fmt.Sprintf("(%d)", idx.PrefixLen)
		}
	}

	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);",
		d.QuoteIdent(idx.Name), QuoteFQN(d, t.FQN), strings.Join(cols, ", ")), nil
}

// BuildInsertSQL renders a single-row parameterized INSERT for columns.
func BuildInsertSQL(d Dialect, table string, columns []string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("ddl: insert table must not be empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("ddl: insert into %s needs at least one column", table)
	}
	ph := make([]string, len(columns))
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteFQN(d, table), quoteList(d, columns), strings.Join(ph, ", ")), nil
}
