package analyzer

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
)

type cteNameCollector struct {
	names pkg.Map[string, bool]
}

func (v *cteNameCollector) Enter(n ast.Node) (ast.Node, bool) {
	if with, ok := n.(*ast.WithClause); ok {
		for _, cte := range with.CTEs {
			v.names.Set(cte.Name.L, true)
		}
	}
	return n, false
}

func (v *cteNameCollector) Leave(n ast.Node) (ast.Node, bool) { return n, true }

type tableNameCollector struct {
	paths *pathShim
	ctes  pkg.Map[string, bool]
	seen  pkg.Map[string, bool]
	names []catalog.TableName
}

func (v *tableNameCollector) Enter(n ast.Node) (ast.Node, bool) {
	table, ok := n.(*ast.TableName)
	if !ok {
		return n, false
	}
	path := v.paths.tablePath(table.Schema.O, table.Name.O)
	if len(path) == 0 {
		return n, true
	}
	if len(path) == 1 && v.ctes.Has(strings.ToLower(path[0])) {
		return n, true
	}
	key := strings.ToLower(strings.Join(path, "."))
	if v.seen.Add(key, true) {
		v.names = append(v.names, catalog.NewTableName(path...))
	}
	return n, true
}

func (v *tableNameCollector) Leave(n ast.Node) (ast.Node, bool) { return n, true }

// ExtractTableNames lists every table path the statement references, once
// each, in parse-tree order. Names bound by a WITH clause are left out.
func ExtractTableNames(sql string) ([]catalog.TableName, error) {
	parsed, err := parseStatement(sql)
	if err != nil {
		return nil, err
	}

	ctes := &cteNameCollector{names: pkg.Map[string, bool]{}}
	parsed.stmt.Accept(ctes)

	collector := &tableNameCollector{
		paths: parsed.paths,
		ctes:  ctes.names,
		seen:  pkg.Map[string, bool]{},
		names: []catalog.TableName{},
	}
	parsed.stmt.Accept(collector)
	return collector.names, nil
}
