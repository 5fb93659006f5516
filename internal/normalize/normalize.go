// Package normalize maps raw source records onto destination rows.
//
// Normalization is driven by a declarative rule table (one Rule per
// destination column) derived from the table definition, so every table is
// treated uniformly:
//
//   - empty values in optional columns become NULL (an empty string and an
//     absent value are indistinguishable once stored);
//   - in free-text columns every CR LF pair becomes a single "\n";
//   - a record whose shape does not match the destination columns is a
//     loaderr.FormatError.
package normalize

import (
	"fmt"
	"strings"

	"sotorrent/internal/ddl"
	"sotorrent/internal/loaderr"
)

// CRLF is the two-character sequence rewritten in free-text columns.
const CRLF = "\r\n"

// Raw is one source record before normalization. Attribute-row sources fill
// Named (absent attributes are missing keys); delimited sources fill Fields.
type Raw struct {
	Named  map[string]string
	Fields []string
}

// Rule is the normalization policy for one destination column.
type Rule struct {
	Column   string
	Optional bool
	FreeText bool
	// Default, when HasDefault is set, is used for attributes missing from a
	// named record, mirroring the column's DEFAULT clause.
	Default    string
	HasDefault bool
}

// Rules is an ordered rule table aligned with the destination columns.
type Rules []Rule

// RulesFor derives the rule table for t.
func RulesFor(t ddl.TableDef) Rules {
	rules := make(Rules, len(t.Columns))
	for i, c := range t.Columns {
		def := strings.TrimSpace(c.Default)
		rules[i] = Rule{
			Column:     c.Name,
			Optional:   c.Nullable,
			FreeText:   c.Type.FreeText(),
			Default:    def,
			HasDefault: def != "",
		}
	}
	return rules
}

// Columns returns the destination column names in order.
func (r Rules) Columns() []string {
	out := make([]string, len(r))
	for i, rule := range r {
		out[i] = rule.Column
	}
	return out
}

// Normalizer applies a rule table to records destined for one table.
type Normalizer struct {
	table string
	rules Rules
	index map[string]int
}

// New builds a Normalizer for table using rules.
func New(table string, rules Rules) *Normalizer {
	idx := make(map[string]int, len(rules))
	for i, r := range rules {
		idx[r.Column] = i
	}
	return &Normalizer{table: table, rules: rules, index: idx}
}

// Arity is the number of destination columns.
func (n *Normalizer) Arity() int { return len(n.rules) }

// Columns returns the destination column names in order.
func (n *Normalizer) Columns() []string { return n.rules.Columns() }

// Normalize converts raw into a row aligned with the rule table. recNo is the
// 1-based record number used in errors. dst is reused when it has enough
// capacity; the returned slice holds nil or string values.
func (n *Normalizer) Normalize(recNo int64, raw Raw, dst []any) ([]any, error) {
	if cap(dst) < len(n.rules) {
		dst = make([]any, len(n.rules))
	}
	dst = dst[:len(n.rules)]

	if raw.Named != nil {
		return n.named(recNo, raw.Named, dst)
	}
	return n.positional(recNo, raw.Fields, dst)
}

func (n *Normalizer) positional(recNo int64, fields []string, dst []any) ([]any, error) {
	if len(fields) != len(n.rules) {
		return nil, &loaderr.FormatError{
			Table:  n.table,
			Record: recNo,
			Msg:    fmt.Sprintf("field count %d != column count %d", len(fields), len(n.rules)),
		}
	}
	for i, rule := range n.rules {
		dst[i] = rule.apply(fields[i])
	}
	return dst, nil
}

func (n *Normalizer) named(recNo int64, attrs map[string]string, dst []any) ([]any, error) {
	for name := range attrs {
		if _, ok := n.index[name]; !ok {
			return nil, &loaderr.FormatError{Table: n.table, Record: recNo, Column: name, Msg: "unknown column"}
		}
	}
	for i, rule := range n.rules {
		v, ok := attrs[rule.Column]
		switch {
		case ok:
			dst[i] = rule.apply(v)
		case rule.HasDefault:
			dst[i] = rule.Default
		case rule.Optional:
			dst[i] = nil
		default:
			return nil, &loaderr.FormatError{Table: n.table, Record: recNo, Column: rule.Column, Msg: "missing required value"}
		}
	}
	return dst, nil
}

func (r Rule) apply(v string) any {
	if v == "" && r.Optional {
		return nil
	}
	if r.FreeText && strings.Contains(v, CRLF) {
		v = strings.ReplaceAll(v, CRLF, "\n")
	}
	return v
}
