package mysql

import (
	"fmt"
	"strings"

	"sotorrent/internal/ddl"
)

// Dialect renders MySQL DDL: backtick identifiers, native integer and text
// types, and prefix lengths on indexed text columns.
type Dialect struct{ ddl.Generic }

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

func (Dialect) ColumnType(t ddl.Type) string {
	switch t.Kind {
	case ddl.TinyInt:
		return "TINYINT"
	case ddl.Int:
		return "INT"
	case ddl.Bool:
		return "TINYINT(1)"
	case ddl.Double:
		return "DOUBLE"
	case ddl.DateTime:
		return "DATETIME(3)"
	case ddl.VarChar:
		return fmt.Sprintf("VARCHAR(%d)", t.Len)
	case ddl.MediumText:
		return "MEDIUMTEXT"
	case ddl.LongText:
		return "LONGTEXT"
	default:
		return "TEXT"
	}
}

// TextIndexPrefix is true: InnoDB cannot index TEXT columns without a
// prefix length, and long VARCHARs exceed the key size limit.
func (Dialect) TextIndexPrefix() bool { return true }
