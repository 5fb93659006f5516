package postgres

import (
	"fmt"

	"sotorrent/internal/ddl"
)

// Dialect renders Postgres DDL: standard type names with $n placeholders.
type Dialect struct{ ddl.Generic }

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
