// Package loaderr defines the error taxonomy shared by every stage of a load
// run. All errors are fatal for the run; the types exist so callers (and
// tests) can tell which stage failed using errors.As.
package loaderr

import (
	"errors"
	"fmt"
)

// SchemaKind says which DDL object collided with existing state.
type SchemaKind int

const (
	// TableExists is returned when CREATE TABLE hits an existing table.
	TableExists SchemaKind = iota
	// IndexExists is returned when CREATE INDEX hits an existing index.
	IndexExists
)

func (k SchemaKind) String() string {
	switch k {
	case TableExists:
		return "table already exists"
	case IndexExists:
		return "index already exists"
	default:
		return "schema error"
	}
}

// SchemaError reports a failed table or index creation.
type SchemaError struct {
	Object string
	Kind   SchemaKind
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s %q: %v", e.Kind, e.Object, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// FormatError reports a source record that cannot be mapped onto its
// destination table. Record is the 1-based record number within the source.
type FormatError struct {
	Table  string
	Record int64
	Column string
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("format: %s record %d column %s: %s", e.Table, e.Record, e.Column, e.Msg)
	}
	return fmt.Sprintf("format: %s record %d: %s", e.Table, e.Record, e.Msg)
}

// ConstraintError reports a uniqueness, NOT NULL or foreign-key violation.
type ConstraintError struct {
	Table string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint: %s: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IOError reports a missing or unreadable source file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LoadError wraps whatever terminated a load unit.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsSchema reports whether err is (or wraps) a SchemaError of the given kind.
func IsSchema(err error, kind SchemaKind) bool {
	var se *SchemaError
	return errors.As(err, &se) && se.Kind == kind
}
