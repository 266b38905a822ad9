package analyzer

import (
	"strings"

	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

type column struct {
	name string
	typ  types.TypeKind
	// set for columns read straight from a catalog table
	fromCatalog bool
}

// source is one entry of a FROM clause.
type source struct {
	// qualifying name, empty for unaliased derived tables
	alias string
	// catalog path, nil for derived tables and WITH references
	path    []string
	columns []column
}

func (src *source) column(name string) *column {
	for i := range src.columns {
		if strings.EqualFold(src.columns[i].name, name) {
			return &src.columns[i]
		}
	}
	return nil
}

func (src *source) displayName() string {
	if src.path != nil {
		return formatPath(src.path)
	}
	return src.alias
}

type cteDef struct {
	name    string
	columns []column
}

type scope struct {
	parent  *scope
	sources []*source
	// WITH entries visible here, keyed by lower-case name
	ctes *pkg.InsertSortMap[string, *cteDef]
	// USING and NATURAL join columns, keyed by lower-case name
	coalesced pkg.Map[string, bool]
	// select-list outputs, visible to GROUP BY, HAVING and ORDER BY
	aliases []column
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:    parent,
		ctes:      pkg.NewInsertSortMap[string, *cteDef](),
		coalesced: pkg.Map[string, bool]{},
	}
}

// detached returns a scope that sees the same outer scopes and WITH
// entries as s but none of its FROM sources.
func (s *scope) detached() *scope {
	child := newScope(s.parent)
	child.ctes = s.ctes
	return child
}

func (s *scope) findCTE(name string) *cteDef {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.parent {
		if def, ok := sc.ctes.Lookup(key); ok {
			return def
		}
	}
	return nil
}

func (s *scope) findSource(qualifier []string) *source {
	if len(qualifier) == 1 {
		for _, src := range s.sources {
			if src.alias != "" && strings.EqualFold(src.alias, qualifier[0]) {
				return src
			}
		}
		return nil
	}
	for _, src := range s.sources {
		if len(src.path) >= len(qualifier) &&
			segmentsEqual(src.path[len(src.path)-len(qualifier):], qualifier) {
			return src
		}
	}
	return nil
}

// lookup finds an unqualified column among the sources of s. ambiguous is
// set when more than one source provides it and it is not a join column.
func (s *scope) lookup(name string) (owner *source, col *column, ambiguous bool) {
	for _, src := range s.sources {
		c := src.column(name)
		if c == nil {
			continue
		}
		if col != nil {
			return owner, col, !s.coalesced.Has(strings.ToLower(name))
		}
		owner, col = src, c
	}
	return owner, col, false
}

func (s *scope) lookupAlias(name string) *column {
	for i := range s.aliases {
		if strings.EqualFold(s.aliases[i].name, name) {
			return &s.aliases[i]
		}
	}
	return nil
}

// eachStarColumn walks the expansion of SELECT *, listing join columns once.
func (s *scope) eachStarColumn(f func(src *source, c column)) {
	seen := pkg.Map[string, bool]{}
	for _, src := range s.sources {
		for _, c := range src.columns {
			key := strings.ToLower(c.name)
			if s.coalesced.Has(key) && !seen.Add(key, true) {
				continue
			}
			f(src, c)
		}
	}
}
