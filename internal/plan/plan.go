// Package plan fixes the order in which tables are loaded.
//
// The order is a literal, inspectable list rather than a topological sort:
// the catalog's dependency graph is small and stable, and a hand-written
// order documents intent. Validate checks the list against the catalog once at
// startup so a bad edit fails before any data is touched.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"sotorrent/internal/ddl"
	"sotorrent/internal/normalize"
	"sotorrent/internal/schema"
)

// Format is the physical encoding of a source file.
type Format string

const (
	// XML is attribute-per-element markup rows.
	XML Format = "xml"
	// CSV is delimited text.
	CSV Format = "csv"
)

// SourceSpec locates and describes one source file.
type SourceSpec struct {
	Path   string
	Format Format
	// Header marks delimited sources whose first line is discarded.
	Header bool
}

// Unit is one table load.
type Unit struct {
	Table    ddl.TableDef
	Source   SourceSpec
	Rules    normalize.Rules
	Position int
	// Deferred lists foreign-key targets allowed to load after this unit.
	// Their references are only checked after the whole run.
	Deferred []string
}

// Plan is the ordered list of units.
type Plan struct {
	Units []Unit
}

// LoadOrder is the fixed table order: the dump's entity tables first, parents
// before children, then the derived provenance tables.
var LoadOrder = []string{
	"Users",
	"Badges",
	"Posts",
	"Comments",
	"PostHistory",
	"PostLinks",
	"Tags",
	"Votes",
	"PostVersion",
	"TitleVersion",
	"PostBlockVersion",
	"PostBlockDiff",
	"PostVersionUrl",
	"CommentUrl",
	"PostReferenceGH",
	"GHMatches",
}

// headerSources are the delimited files exported with a header line.
var headerSources = map[string]bool{
	"PostReferenceGH": true,
	"GHMatches":       true,
}

// Default builds the plan for workDir using LoadOrder. Sources are
// <workDir>/<Table>.xml for entity tables and <workDir>/<Table>.csv for
// derived tables.
func Default(workDir string, cat schema.Catalog) (Plan, error) {
	p := Plan{Units: make([]Unit, 0, len(LoadOrder))}
	for i, name := range LoadOrder {
		t, ok := cat.Table(name)
		if !ok {
			return Plan{}, fmt.Errorf("plan: table %s not in catalog", name)
		}
		src := SourceSpec{Format: XML}
		switch t.Category {
		case ddl.Entity:
		case ddl.Derived:
			src = SourceSpec{Format: CSV, Header: headerSources[name]}
		default:
			return Plan{}, fmt.Errorf("plan: %s is a %s table and is not loaded from a file", name, t.Category)
		}
		src.Path = filepath.Join(workDir, name+"."+string(src.Format))
		p.Units = append(p.Units, Unit{
			Table:    t,
			Source:   src,
			Rules:    normalize.RulesFor(t),
			Position: i,
		})
	}
	return p, nil
}

// Tables returns the unit tables in load order.
func (p Plan) Tables() []ddl.TableDef {
	out := make([]ddl.TableDef, len(p.Units))
	for i, u := range p.Units {
		out[i] = u.Table
	}
	return out
}

// Validate checks that every loaded catalog table appears exactly once, that
// positions match list order, and that every foreign key points at a
// reference table, the table itself, a table loaded earlier, or a target the
// unit lists as Deferred.
func (p Plan) Validate(cat schema.Catalog) error {
	loaded := make(map[string]bool, len(p.Units))
	var problems []string

	for i, u := range p.Units {
		name := u.Table.FQN
		if u.Position != i {
			problems = append(problems, fmt.Sprintf("%s: position %d, listed at %d", name, u.Position, i))
		}
		if loaded[name] {
			problems = append(problems, fmt.Sprintf("%s: listed more than once", name))
			continue
		}
		if _, ok := cat.Table(name); !ok {
			problems = append(problems, fmt.Sprintf("%s: not in catalog", name))
		}
		if cat.IsReference(name) {
			problems = append(problems, fmt.Sprintf("%s: reference tables are populated by the schema", name))
		}
		if len(u.Rules) != len(u.Table.Columns) {
			problems = append(problems, fmt.Sprintf("%s: %d rules for %d columns", name, len(u.Rules), len(u.Table.Columns)))
		}

		deferred := make(map[string]bool, len(u.Deferred))
		for _, d := range u.Deferred {
			deferred[d] = true
		}
		for _, fk := range u.Table.ForeignKeys {
			ref := fk.RefTable
			if ref == name || loaded[ref] || cat.IsReference(ref) || deferred[ref] {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s.%s: references %s, which is loaded later",
				name, strings.Join(fk.Columns, ","), ref))
		}
		loaded[name] = true
	}

	for _, t := range cat.Tables {
		if !loaded[t.FQN] {
			problems = append(problems, fmt.Sprintf("%s: catalog table has no load unit", t.FQN))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("plan: invalid load order:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
