package sqlite

import "sotorrent/internal/ddl"

// Dialect renders SQLite DDL. Column types are chosen for their affinity:
// integers and booleans are INTEGER, doubles REAL, datetimes TEXT
// (ISO-8601), and character types keep their declared length for
// documentation only.
type Dialect struct{ ddl.Generic }

func (Dialect) Name() string { return "sqlite" }

func (Dialect) ColumnType(t ddl.Type) string {
	switch t.Kind {
	case ddl.TinyInt, ddl.Int, ddl.Bool:
		return "INTEGER"
	case ddl.Double:
		return "REAL"
	case ddl.DateTime:
		return "TEXT"
	case ddl.VarChar:
		return ddl.Generic{}.ColumnType(t)
	default:
		return "TEXT"
	}
}

// DefaultLiteral keeps boolean defaults numeric to match the INTEGER
// affinity used for booleans.
func (Dialect) DefaultLiteral(t ddl.Type, def string) string {
	if t.Kind != ddl.Bool {
		return def
	}
	switch (ddl.Generic{}).DefaultLiteral(t, def) {
	case "TRUE":
		return "1"
	case "FALSE":
		return "0"
	}
	return def
}
