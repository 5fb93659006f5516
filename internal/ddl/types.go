package ddl

import "fmt"

// Kind is the semantic type of a column. Dialects map kinds onto concrete SQL
// types at render time, so one catalog serves every backend.
type Kind int

const (
	TinyInt Kind = iota
	Int
	Bool
	Double
	DateTime
	VarChar
	Text
	MediumText
	LongText
)

// Type is a Kind plus an optional length (VarChar only).
type Type struct {
	Kind Kind
	Len  int
}

// VarCharN returns a VARCHAR type of length n.
func VarCharN(n int) Type { return Type{Kind: VarChar, Len: n} }

// Of returns a length-less Type of kind k.
func Of(k Kind) Type { return Type{Kind: k} }

// FreeText reports whether values of this type are unbounded prose (post
// bodies, comments, diffs) rather than identifiers or short labels.
func (t Type) FreeText() bool {
	switch t.Kind {
	case Text, MediumText, LongText:
		return true
	}
	return false
}

// Numeric reports whether the type holds integers or floating point values.
func (t Type) Numeric() bool {
	switch t.Kind {
	case TinyInt, Int, Bool, Double:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t.Kind {
	case TinyInt:
		return "TINYINT"
	case Int:
		return "INT"
	case Bool:
		return "BOOLEAN"
	case Double:
		return "DOUBLE"
	case DateTime:
		return "DATETIME"
	case VarChar:
		return fmt.Sprintf("VARCHAR(%d)", t.Len)
	case Text:
		return "TEXT"
	case MediumText:
		return "MEDIUMTEXT"
	case LongText:
		return "LONGTEXT"
	default:
		return fmt.Sprintf("Kind(%d)", int(t.Kind))
	}
}

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: semantic type, rendered per dialect
//   - Nullable: whether NULL is allowed; nullable columns are "optional" for
//     the value normalizer
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 0)
type ColumnDef struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKey is a table-level FOREIGN KEY constraint.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Category separates fixed lookup tables from tables loaded from sources.
type Category int

const (
	// Reference tables are small, fixed, and fully populated at schema time.
	Reference Category = iota
	// Entity tables are loaded from the attribute-row dump files.
	Entity
	// Derived tables are loaded from the delimited-text provenance files.
	Derived
)

func (c Category) String() string {
	switch c {
	case Reference:
		return "reference"
	case Entity:
		return "entity"
	case Derived:
		return "derived"
	default:
		return "unknown"
	}
}

// TableDef holds the table name (FQN), its category, an ordered list of
// columns, and its foreign keys.
type TableDef struct {
	FQN         string
	Category    Category
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// PrimaryKey returns the names of the primary-key columns in declaration order.
func (t TableDef) PrimaryKey() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks up a column by name.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// IndexDef is a secondary index. PrefixLen bounds the indexed length of text
// columns on dialects that require it; other dialects ignore it.
type IndexDef struct {
	Name      string
	Table     string
	Columns   []string
	PrefixLen int
}
