package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

type resolver struct {
	stmt    *parsedStatement
	catalog *catalog.SimpleCatalog
	options types.AnalyzerOptions
	// nil when the catalog was registered without builtin functions
	function_options *types.LanguageOptions

	// clause being resolved, empty for select lists
	clause       string
	in_aggregate bool

	tables  []protocol.ReferencedTable
	columns []protocol.ReferencedColumn
	seen    pkg.Map[string, bool]
}

func newResolver(stmt *parsedStatement, cat *catalog.SimpleCatalog, options types.AnalyzerOptions) *resolver {
	r := &resolver{
		stmt:    stmt,
		catalog: cat,
		options: options.Normalized(),
		seen:    pkg.Map[string, bool]{},
		tables:  []protocol.ReferencedTable{},
		columns: []protocol.ReferencedColumn{},
	}
	if cat.BuiltinFunctionOptions != nil {
		r.function_options = &cat.BuiltinFunctionOptions.LanguageOptions
	}
	return r
}

var statement_names = map[types.StatementKind]string{
	types.StatementQuery:       "QueryStatement",
	types.StatementInsert:      "InsertStatement",
	types.StatementUpdate:      "UpdateStatement",
	types.StatementDelete:      "DeleteStatement",
	types.StatementCreateTable: "CreateTableStatement",
	types.StatementDrop:        "DropStatement",
	types.StatementExplain:     "ExplainStatement",
}

func statementKind(stmt ast.StmtNode) (types.StatementKind, bool) {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return types.StatementQuery, true
	case *ast.InsertStmt:
		return types.StatementInsert, true
	case *ast.UpdateStmt:
		return types.StatementUpdate, true
	case *ast.DeleteStmt:
		return types.StatementDelete, true
	case *ast.CreateTableStmt:
		return types.StatementCreateTable, true
	case *ast.DropTableStmt:
		return types.StatementDrop, true
	case *ast.ExplainStmt:
		return types.StatementExplain, true
	}
	return "", false
}

// *ast.ShowStmt -> ShowStatement
func nodeName(node ast.Node) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")
	return strings.TrimSuffix(name, "Stmt") + "Statement"
}

func (r *resolver) resolveStatement(stmt ast.StmtNode) (types.StatementKind, []column, error) {
	kind, ok := statementKind(stmt)
	if !ok {
		return "", nil, newError(r.stmtStart(), "Statement not supported: %s", nodeName(stmt))
	}
	if !r.options.LanguageOptions.SupportsStatement(kind) {
		return "", nil, newError(r.stmtStart(), "Statement not supported: %s", statement_names[kind])
	}

	var err error
	var cols []column
	switch n := stmt.(type) {
	case *ast.SelectStmt:
		cols, err = r.resolveQuery(n, nil)
	case *ast.SetOprStmt:
		cols, err = r.resolveQuery(n, nil)
	case *ast.InsertStmt:
		err = r.resolveInsert(n)
	case *ast.UpdateStmt:
		err = r.resolveUpdate(n)
	case *ast.DeleteStmt:
		err = r.resolveDelete(n)
	case *ast.CreateTableStmt:
		if n.Select != nil {
			_, err = r.resolveQuery(n.Select, nil)
		}
	case *ast.DropTableStmt:
		// dropped tables need not exist
	case *ast.ExplainStmt:
		_, _, err = r.resolveStatement(n.Stmt)
	}
	return kind, cols, err
}

func (r *resolver) resolveQuery(node ast.Node, parent *scope) ([]column, error) {
	switch n := node.(type) {
	case *ast.SelectStmt:
		return r.resolveSelect(n, parent)
	case *ast.SetOprStmt:
		s := newScope(parent)
		if n.With != nil {
			if err := r.resolveWith(n.With, s); err != nil {
				return nil, err
			}
		}
		cols, err := r.resolveSetOprList(n.SelectList, s)
		if err != nil {
			return nil, err
		}
		if n.OrderBy != nil {
			order := newScope(s)
			order.sources = []*source{{columns: cols}}
			order.aliases = cols
			if err := r.resolveByItems("ORDER BY", n.OrderBy.Items, order); err != nil {
				return nil, err
			}
		}
		return cols, nil
	case *ast.SetOprSelectList:
		return r.resolveSetOprList(n, newScope(parent))
	case *ast.SubqueryExpr:
		return r.resolveQuery(n.Query, parent)
	}
	return nil, newError(r.stmtStart(), "Unsupported query expression: %s", nodeName(node))
}

func (r *resolver) resolveSetOprList(list *ast.SetOprSelectList, s *scope) ([]column, error) {
	if list == nil {
		return nil, nil
	}
	var first []column
	for i, sel := range list.Selects {
		cols, err := r.resolveQuery(sel, s)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = cols
			continue
		}
		if len(cols) != len(first) {
			return nil, newError(r.setOperatorOffset(),
				"Queries in set operation have mismatched column count; query 1 has %d columns, query %d has %d columns",
				len(first), i+1, len(cols))
		}
	}
	return first, nil
}

func (r *resolver) resolveSelect(sel *ast.SelectStmt, parent *scope) ([]column, error) {
	prev_clause, prev_aggregate := r.clause, r.in_aggregate
	r.clause, r.in_aggregate = "", false
	defer func() { r.clause, r.in_aggregate = prev_clause, prev_aggregate }()

	s := newScope(parent)
	if sel.With != nil {
		if err := r.resolveWith(sel.With, s); err != nil {
			return nil, err
		}
	}

	if sel.From != nil && sel.From.TableRefs != nil {
		if err := r.resolveFrom(sel.From.TableRefs, s); err != nil {
			return nil, err
		}
	}

	if sel.Where != nil {
		if err := r.resolveClause("WHERE", sel.Where, s); err != nil {
			return nil, err
		}
	}

	outputs, err := r.resolveSelectList(sel, s)
	if err != nil {
		return nil, err
	}
	s.aliases = outputs

	if sel.GroupBy != nil {
		if sel.GroupBy.Rollup && !r.options.LanguageOptions.FeatureEnabled(types.FeatureGroupByRollup) {
			return nil, newError(r.wordOffset("rollup"), "GROUP BY ROLLUP is unsupported")
		}
		if err := r.resolveByItems("GROUP BY", sel.GroupBy.Items, s); err != nil {
			return nil, err
		}
	}

	if sel.Having != nil {
		if err := r.resolveClause("HAVING", sel.Having.Expr, s); err != nil {
			return nil, err
		}
	}

	if sel.OrderBy != nil {
		if err := r.resolveByItems("ORDER BY", sel.OrderBy.Items, s); err != nil {
			return nil, err
		}
	}

	return outputs, nil
}

func (r *resolver) resolveSelectList(sel *ast.SelectStmt, s *scope) ([]column, error) {
	outputs := []column{}
	if sel.Fields == nil {
		return outputs, nil
	}

	for i, field := range sel.Fields.Fields {
		if field.WildCard != nil {
			cols, err := r.expandStar(field.WildCard, s)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, cols...)
			continue
		}

		typ, err := r.resolveExpr(field.Expr, s)
		if err != nil {
			return nil, err
		}
		name := field.AsName.O
		if name == "" {
			if ref, ok := field.Expr.(*ast.ColumnNameExpr); ok {
				name = ref.Name.Name.O
			} else {
				name = fmt.Sprintf("$col%d", i+1)
			}
		}
		outputs = append(outputs, column{name: name, typ: typ})
	}
	return outputs, nil
}

func (r *resolver) expandStar(wildcard *ast.WildCardField, s *scope) ([]column, error) {
	cols := []column{}
	var err error

	if wildcard.Table.O == "" {
		if len(s.sources) == 0 {
			return nil, newError(r.starOffset(), "SELECT * must have a FROM clause")
		}
		s.eachStarColumn(func(src *source, c column) {
			if err == nil {
				err = r.referenceColumn(src, &c, nil)
			}
			cols = append(cols, column{name: c.name, typ: c.typ})
		})
		return cols, err
	}

	qualifier := r.stmt.paths.qualifierPath(wildcard.Schema.O, wildcard.Table.O)
	src := s.findSource(qualifier)
	if src == nil {
		return nil, r.errorAt(qualifier, "Unrecognized name: %s", formatPath(qualifier))
	}
	for i := range src.columns {
		if err := r.referenceColumn(src, &src.columns[i], qualifier); err != nil {
			return nil, err
		}
		cols = append(cols, column{name: src.columns[i].name, typ: src.columns[i].typ})
	}
	return cols, nil
}

func (r *resolver) resolveWith(with *ast.WithClause, s *scope) error {
	if with.IsRecursive && !r.options.LanguageOptions.FeatureEnabled(types.FeatureWithRecursive) {
		return newError(r.wordOffset("recursive"), "RECURSIVE is not supported in the WITH clause")
	}

	for _, cte := range with.CTEs {
		name := cte.Name.O
		key := strings.ToLower(name)
		if s.ctes.Has(key) {
			return r.errorAt([]string{name}, "Duplicate alias %s for WITH subquery", name)
		}
		names := make([]string, 0, len(cte.ColNameList))
		for _, col := range cte.ColNameList {
			names = append(names, col.O)
		}

		var query ast.Node = cte.Query.Query
		def := &cteDef{name: name}
		if with.IsRecursive {
			// the anchor decides the columns the recursive part can see
			cols, err := r.resolveQuery(anchorOf(query), s)
			if err != nil {
				return err
			}
			if def.columns, err = r.renameColumns(name, cols, names); err != nil {
				return err
			}
			s.ctes.Push(key, def)
			if _, err := r.resolveQuery(query, s); err != nil {
				return err
			}
			continue
		}

		cols, err := r.resolveQuery(query, s)
		if err != nil {
			return err
		}
		if def.columns, err = r.renameColumns(name, cols, names); err != nil {
			return err
		}
		s.ctes.Push(key, def)
	}
	return nil
}

func anchorOf(node ast.Node) ast.Node {
	switch n := node.(type) {
	case *ast.SetOprStmt:
		if n.SelectList != nil && len(n.SelectList.Selects) > 0 {
			return anchorOf(n.SelectList.Selects[0])
		}
	case *ast.SetOprSelectList:
		if len(n.Selects) > 0 {
			return anchorOf(n.Selects[0])
		}
	}
	return node
}

func (r *resolver) renameColumns(cte string, cols []column, names []string) ([]column, error) {
	renamed := make([]column, len(cols))
	copy(renamed, cols)
	if len(names) == 0 {
		return renamed, nil
	}
	if len(names) != len(cols) {
		return nil, r.errorAt([]string{cte}, "WITH query %s has %d columns but %d column names were given",
			cte, len(cols), len(names))
	}
	for i := range renamed {
		renamed[i].name = names[i]
	}
	return renamed, nil
}

func (r *resolver) resolveFrom(node ast.ResultSetNode, s *scope) error {
	switch n := node.(type) {
	case *ast.Join:
		start := len(s.sources)
		if n.Left != nil {
			if err := r.resolveFrom(n.Left, s); err != nil {
				return err
			}
		}
		if n.Right == nil {
			return nil
		}
		mid := len(s.sources)
		if err := r.resolveFrom(n.Right, s); err != nil {
			return err
		}
		left, right := s.sources[start:mid], s.sources[mid:]

		if n.NaturalJoin {
			for _, src := range left {
				for _, c := range src.columns {
					if hasColumn(right, c.name) {
						s.coalesced.Set(strings.ToLower(c.name), true)
					}
				}
			}
		}
		for _, using := range n.Using {
			name := using.Name.O
			if !hasColumn(left, name) {
				return r.errorAt([]string{name}, "Column %s in USING clause not found on left side of join", name)
			}
			if !hasColumn(right, name) {
				return r.errorAt([]string{name}, "Column %s in USING clause not found on right side of join", name)
			}
			s.coalesced.Set(strings.ToLower(name), true)
		}
		if n.On != nil {
			return r.resolveClause("ON", n.On.Expr, s)
		}
		return nil

	case *ast.TableSource:
		alias := n.AsName.O
		switch src := n.Source.(type) {
		case *ast.TableName:
			return r.resolveTableName(src, alias, s)
		case *ast.Join:
			return r.resolveFrom(src, s)
		default:
			cols, err := r.resolveQuery(src, s.detached())
			if err != nil {
				return err
			}
			return r.addSource(&source{alias: alias, columns: cols}, s)
		}

	case *ast.TableName:
		return r.resolveTableName(n, "", s)
	}
	return newError(r.stmtStart(), "Unsupported FROM clause item: %s", nodeName(node))
}

func hasColumn(sources []*source, name string) bool {
	for _, src := range sources {
		if src.column(name) != nil {
			return true
		}
	}
	return false
}

func (r *resolver) addSource(src *source, s *scope) error {
	if src.alias != "" && s.findSource([]string{src.alias}) != nil {
		return r.errorAt([]string{src.alias}, "Duplicate table alias %s in the same FROM clause", src.alias)
	}
	s.sources = append(s.sources, src)
	return nil
}

func (r *resolver) resolveTableName(name *ast.TableName, alias string, s *scope) error {
	path := r.stmt.paths.tablePath(name.Schema.O, name.Name.O)

	if len(path) == 1 {
		if def := s.findCTE(path[0]); def != nil {
			if alias == "" {
				alias = def.name
			}
			cols := make([]column, len(def.columns))
			copy(cols, def.columns)
			return r.addSource(&source{alias: alias, columns: cols}, s)
		}
	}

	table := r.catalog.FindTable(path)
	if table == nil {
		return r.errorAt(path, "Table not found: %s", formatPath(path))
	}
	if alias == "" {
		alias = table.Name
	}
	src := &source{alias: alias, path: path}
	for _, c := range table.Columns {
		src.columns = append(src.columns, column{name: c.Name, typ: c.Type, fromCatalog: true})
	}
	r.referenceTable(path)
	return r.addSource(src, s)
}

func (r *resolver) resolveInsert(n *ast.InsertStmt) error {
	if n.Table == nil || n.Table.TableRefs == nil {
		return newError(r.stmtStart(), "INSERT is missing a target table")
	}
	s := newScope(nil)
	if err := r.resolveFrom(n.Table.TableRefs, s); err != nil {
		return err
	}
	if len(s.sources) == 0 {
		return newError(r.stmtStart(), "INSERT is missing a target table")
	}
	target := s.sources[0]

	expected := len(target.columns)
	if len(n.Columns) > 0 {
		expected = len(n.Columns)
		for _, name := range n.Columns {
			c := target.column(name.Name.O)
			if c == nil {
				return r.errorAt([]string{name.Name.O}, "Column %s is not present in table %s",
					name.Name.O, target.displayName())
			}
			if err := r.referenceColumn(target, c, nil); err != nil {
				return err
			}
		}
	}

	for _, row := range n.Lists {
		if len(row) != expected {
			return newError(r.wordOffset("values"), "Inserted row has wrong column count; Has %d, expected %d",
				len(row), expected)
		}
		for _, expr := range row {
			if _, err := r.resolveExpr(expr, newScope(nil)); err != nil {
				return err
			}
		}
	}

	if n.Select != nil {
		cols, err := r.resolveQuery(n.Select, nil)
		if err != nil {
			return err
		}
		if len(cols) != expected {
			return newError(r.wordOffset("select"), "Inserted row has wrong column count; Has %d, expected %d",
				len(cols), expected)
		}
	}

	for _, assignment := range n.OnDuplicate {
		if err := r.resolveAssignment(assignment, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveUpdate(n *ast.UpdateStmt) error {
	if n.TableRefs == nil || n.TableRefs.TableRefs == nil {
		return newError(r.stmtStart(), "UPDATE is missing a target table")
	}
	s := newScope(nil)
	if err := r.resolveFrom(n.TableRefs.TableRefs, s); err != nil {
		return err
	}
	for _, assignment := range n.List {
		if err := r.resolveAssignment(assignment, s); err != nil {
			return err
		}
	}
	if n.Where != nil {
		return r.resolveClause("WHERE", n.Where, s)
	}
	return nil
}

func (r *resolver) resolveDelete(n *ast.DeleteStmt) error {
	s := newScope(nil)
	if n.TableRefs != nil && n.TableRefs.TableRefs != nil {
		if err := r.resolveFrom(n.TableRefs.TableRefs, s); err != nil {
			return err
		}
	}
	if n.Where != nil {
		return r.resolveClause("WHERE", n.Where, s)
	}
	return nil
}

func (r *resolver) resolveAssignment(assignment *ast.Assignment, s *scope) error {
	if _, err := r.resolveColumn(assignment.Column, s); err != nil {
		return err
	}
	return r.resolveClause("SET", assignment.Expr, s)
}

func (r *resolver) referenceTable(path []string) {
	key := "table:" + strings.ToLower(strings.Join(path, "."))
	if !r.seen.Add(key, true) {
		return
	}

	ref := protocol.ReferencedTable{TableName: catalog.NewTableName(path...)}
	if r.recordLocations() {
		if start, end, ok := r.stmt.paths.findPath(path, 0); ok {
			ref.Location = &protocol.Range{Start: start, End: end}
		}
	}
	r.tables = append(r.tables, ref)
}

func (r *resolver) referenceColumn(src *source, c *column, qualifier []string) error {
	if !c.fromCatalog || src.path == nil {
		return nil
	}
	if feature, ok := c.typ.RequiredFeature(); ok && !r.options.LanguageOptions.FeatureEnabled(feature) {
		return r.errorAt(joinPath(qualifier, c.name), "Column %s has unsupported type %s", c.name, c.typ.SQLName())
	}

	table := strings.Join(src.path, ".")
	key := "column:" + strings.ToLower(table+"."+c.name)
	if !r.seen.Add(key, true) {
		return nil
	}

	ref := protocol.ReferencedColumn{Table: table, Column: c.name, Type: c.typ}
	if r.recordLocations() {
		if start, end, ok := r.locate(joinPath(qualifier, c.name)); ok {
			ref.Location = &protocol.Range{Start: start, End: end}
		}
	}
	r.columns = append(r.columns, ref)
	return nil
}

func (r *resolver) recordLocations() bool {
	return r.options.ParseLocationRecordType != types.ParseLocationRecordNone
}

func joinPath(prefix []string, names ...string) []string {
	path := make([]string, 0, len(prefix)+len(names))
	return append(append(path, prefix...), names...)
}

func (r *resolver) locate(path []string) (start, end int, ok bool) {
	if start, end, ok = r.stmt.paths.findPath(path, 0); ok {
		return
	}
	if len(path) > 0 {
		return r.stmt.paths.findName(path[len(path)-1], 0)
	}
	return 0, 0, false
}

func (r *resolver) errorAt(path []string, format string, args ...any) *Error {
	if start, _, ok := r.locate(path); ok {
		return newError(start, format, args...)
	}
	return newError(r.stmtStart(), format, args...)
}

func (r *resolver) stmtStart() int {
	return len(r.stmt.sql) - len(strings.TrimLeft(r.stmt.sql, " \t\r\n"))
}

func (r *resolver) wordOffset(word string) int {
	if start, _, ok := r.stmt.paths.findName(word, 0); ok {
		return start
	}
	return r.stmtStart()
}

// ordinalOffset finds the column number n following the clause keywords.
func (r *resolver) ordinalOffset(clause string, n int) int {
	keywords := `(?i)\b` + strings.Join(strings.Fields(clause), `\s+`) + `\b`
	number := regexp.MustCompile(`\b` + strconv.Itoa(n) + `\b`)
	for _, loc := range regexp.MustCompile(keywords).FindAllStringIndex(r.stmt.sql, -1) {
		if found := number.FindStringIndex(r.stmt.sql[loc[1]:]); found != nil {
			return loc[1] + found[0]
		}
	}
	return r.stmtStart()
}

func (r *resolver) setOperatorOffset() int {
	offset := -1
	for _, word := range []string{"union", "intersect", "except"} {
		if start, _, ok := r.stmt.paths.findName(word, 0); ok && (offset < 0 || start < offset) {
			offset = start
		}
	}
	if offset < 0 {
		return r.stmtStart()
	}
	return offset
}

func (r *resolver) starOffset() int {
	if i := strings.IndexByte(r.stmt.sql, '*'); i >= 0 {
		return i
	}
	return r.stmtStart()
}
