package analyzer

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	"github.com/tobsdb/sqlanalyzer/pkg/types"
)

func (r *resolver) resolveClause(clause string, expr ast.ExprNode, s *scope) error {
	prev := r.clause
	r.clause = clause
	defer func() { r.clause = prev }()
	_, err := r.resolveExpr(expr, s)
	return err
}

func (r *resolver) resolveByItems(clause string, items []*ast.ByItem, s *scope) error {
	for _, item := range items {
		if pos, ok := item.Expr.(*ast.PositionExpr); ok && pos.P == nil {
			if err := r.checkOrdinal(clause, pos.N, s); err != nil {
				return err
			}
			continue
		}
		if err := r.resolveClause(clause, item.Expr, s); err != nil {
			return err
		}
	}
	return nil
}

// checkOrdinal validates a 1-based column number against the select list.
func (r *resolver) checkOrdinal(clause string, n int, s *scope) error {
	if n < 1 {
		return newError(r.ordinalOffset(clause, n),
			"%s column number item is out of range. Column numbers must be greater than or equal to one. Found : %d", clause, n)
	}
	if n > len(s.aliases) {
		return newError(r.ordinalOffset(clause, n),
			"%s column number exceeds input table column count: %d vs %d", clause, n, len(s.aliases))
	}
	return nil
}

func (r *resolver) resolveExprs(exprs []ast.ExprNode, s *scope) ([]types.TypeKind, error) {
	kinds := make([]types.TypeKind, 0, len(exprs))
	for _, expr := range exprs {
		t, err := r.resolveExpr(expr, s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, t)
	}
	return kinds, nil
}

// resolveExpr checks every name in expr against s and infers its type.
func (r *resolver) resolveExpr(expr ast.ExprNode, s *scope) (types.TypeKind, error) {
	switch e := expr.(type) {
	case nil:
		return types.TypeUnknown, nil

	case *ast.ColumnNameExpr:
		return r.resolveColumn(e.Name, s)

	case *ast.ParenthesesExpr:
		return r.resolveExpr(e.Expr, s)

	case *ast.BinaryOperationExpr:
		l, err := r.resolveExpr(e.L, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		rt, err := r.resolveExpr(e.R, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		return binaryType(e.Op, l, rt), nil

	case *ast.UnaryOperationExpr:
		v, err := r.resolveExpr(e.V, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		switch e.Op {
		case opcode.Not:
			return types.TypeBool, nil
		case opcode.Minus, opcode.Plus:
			return v, nil
		case opcode.BitNeg:
			return types.TypeInt64, nil
		}
		return types.TypeUnknown, nil

	case *ast.IsNullExpr:
		return r.predicate(s, e.Expr)
	case *ast.IsTruthExpr:
		return r.predicate(s, e.Expr)
	case *ast.PatternLikeOrIlikeExpr:
		return r.predicate(s, e.Expr, e.Pattern)
	case *ast.PatternRegexpExpr:
		return r.predicate(s, e.Expr, e.Pattern)
	case *ast.BetweenExpr:
		return r.predicate(s, e.Expr, e.Left, e.Right)
	case *ast.PatternInExpr:
		exprs := append([]ast.ExprNode{e.Expr}, e.List...)
		if e.Sel != nil {
			exprs = append(exprs, e.Sel)
		}
		return r.predicate(s, exprs...)
	case *ast.ExistsSubqueryExpr:
		return r.predicate(s, e.Sel)
	case *ast.CompareSubqueryExpr:
		return r.predicate(s, e.L, e.R)

	case *ast.SubqueryExpr:
		cols, err := r.resolveQuery(e.Query, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		if len(cols) == 1 {
			return cols[0].typ, nil
		}
		return types.TypeUnknown, nil

	case *ast.FuncCallExpr:
		fn, err := r.lookupFunction(e.FnName.O)
		if err != nil {
			return types.TypeUnknown, err
		}
		if fn.kind == analyticFunction {
			return types.TypeUnknown, r.errorAt([]string{e.FnName.O},
				"Analytic function %s cannot be called without an OVER clause", strings.ToUpper(e.FnName.O))
		}
		return r.callFunction(fn, e.FnName.O, e.Args, s)

	case *ast.AggregateFuncExpr:
		fn, err := r.lookupFunction(e.F)
		if err != nil {
			return types.TypeUnknown, err
		}
		t, err := r.callFunction(fn, e.F, e.Args, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		if e.Order != nil {
			for _, item := range e.Order.Items {
				if _, err := r.resolveExpr(item.Expr, s); err != nil {
					return types.TypeUnknown, err
				}
			}
		}
		return t, nil

	case *ast.WindowFuncExpr:
		return r.resolveWindow(e, s)

	case *ast.CaseExpr:
		if _, err := r.resolveExpr(e.Value, s); err != nil {
			return types.TypeUnknown, err
		}
		result := types.TypeUnknown
		for _, when := range e.WhenClauses {
			if _, err := r.resolveExpr(when.Expr, s); err != nil {
				return types.TypeUnknown, err
			}
			t, err := r.resolveExpr(when.Result, s)
			if err != nil {
				return types.TypeUnknown, err
			}
			if result == types.TypeUnknown {
				result = t
			}
		}
		t, err := r.resolveExpr(e.ElseClause, s)
		if err != nil {
			return types.TypeUnknown, err
		}
		if result == types.TypeUnknown {
			result = t
		}
		return result, nil

	case *ast.FuncCastExpr:
		if _, err := r.resolveExpr(e.Expr, s); err != nil {
			return types.TypeUnknown, err
		}
		return castType(e.Tp.GetType()), nil

	case *ast.RowExpr:
		_, err := r.resolveExprs(e.Values, s)
		return types.TypeUnknown, err

	case ast.ValueExpr:
		return literalType(e.GetValue()), nil
	}

	walker := &exprWalker{r: r, s: s}
	expr.Accept(walker)
	return types.TypeUnknown, walker.err
}

func (r *resolver) predicate(s *scope, exprs ...ast.ExprNode) (types.TypeKind, error) {
	_, err := r.resolveExprs(exprs, s)
	return types.TypeBool, err
}

// exprWalker resolves the names inside expression kinds without a typing rule.
type exprWalker struct {
	r   *resolver
	s   *scope
	err error
}

func (w *exprWalker) Enter(n ast.Node) (ast.Node, bool) {
	if w.err != nil {
		return n, true
	}
	switch n := n.(type) {
	case *ast.ColumnNameExpr:
		_, w.err = w.r.resolveColumn(n.Name, w.s)
		return n, true
	case *ast.SubqueryExpr:
		_, w.err = w.r.resolveQuery(n.Query, w.s)
		return n, true
	case *ast.FuncCallExpr, *ast.AggregateFuncExpr, *ast.WindowFuncExpr:
		_, w.err = w.r.resolveExpr(n.(ast.ExprNode), w.s)
		return n, true
	}
	return n, false
}

func (w *exprWalker) Leave(n ast.Node) (ast.Node, bool) { return n, true }

func (r *resolver) resolveColumn(name *ast.ColumnName, s *scope) (types.TypeKind, error) {
	col_name := name.Name.O
	qualifier := r.stmt.paths.qualifierPath(name.Schema.O, name.Table.O)

	if len(qualifier) > 0 {
		for sc := s; sc != nil; sc = sc.parent {
			src := sc.findSource(qualifier)
			if src == nil {
				continue
			}
			c := src.column(col_name)
			if c == nil {
				return types.TypeUnknown, r.errorAt(joinPath(qualifier, col_name),
					"Name %s not found inside %s", col_name, formatPath(qualifier))
			}
			return c.typ, r.referenceColumn(src, c, qualifier)
		}
		return types.TypeUnknown, r.errorAt(qualifier, "Unrecognized name: %s", formatPath(qualifier))
	}

	for sc := s; sc != nil; sc = sc.parent {
		// ORDER BY prefers select-list aliases, GROUP BY and HAVING fall back to them
		if sc == s && r.clause == "ORDER BY" {
			if alias := sc.lookupAlias(col_name); alias != nil {
				return alias.typ, nil
			}
		}
		src, c, ambiguous := sc.lookup(col_name)
		if ambiguous {
			return types.TypeUnknown, r.errorAt([]string{col_name}, "Column name %s is ambiguous", col_name)
		}
		if c != nil {
			return c.typ, r.referenceColumn(src, c, nil)
		}
		if sc == s && (r.clause == "GROUP BY" || r.clause == "HAVING") {
			if alias := sc.lookupAlias(col_name); alias != nil {
				return alias.typ, nil
			}
		}
	}
	return types.TypeUnknown, r.errorAt([]string{col_name}, "Unrecognized name: %s", col_name)
}

func (r *resolver) lookupFunction(name string) (*function, error) {
	if r.function_options == nil {
		return nil, r.errorAt([]string{name}, "Function not found: %s", name)
	}
	fn := builtin_functions.Get(strings.ToLower(name))
	if fn == nil {
		return nil, r.errorAt([]string{name}, "Function not found: %s", name)
	}
	if fn.feature != "" && !r.featureEnabled(fn.feature) {
		if fn.kind == analyticFunction {
			return nil, r.errorAt([]string{name}, "Analytic functions not supported")
		}
		return nil, r.errorAt([]string{name}, "Function not found: %s", name)
	}
	return fn, nil
}

// featureEnabled requires the feature both in the request and in the
// options the catalog's functions were registered with.
func (r *resolver) featureEnabled(feature types.LanguageFeature) bool {
	return r.options.LanguageOptions.FeatureEnabled(feature) &&
		r.function_options != nil && r.function_options.FeatureEnabled(feature)
}

func (r *resolver) callFunction(fn *function, name string, args []ast.ExprNode, s *scope) (types.TypeKind, error) {
	if fn.kind == aggregateFunction {
		switch r.clause {
		case "", "HAVING", "ORDER BY":
		default:
			return types.TypeUnknown, r.errorAt([]string{name},
				"Aggregate function %s not allowed in %s clause", strings.ToUpper(name), r.clause)
		}
		if r.in_aggregate {
			return types.TypeUnknown, r.errorAt([]string{name}, "Aggregations of aggregations are not allowed")
		}
		r.in_aggregate = true
		defer func() { r.in_aggregate = false }()
	}

	kinds, err := r.resolveExprs(args, s)
	if err != nil {
		return types.TypeUnknown, err
	}
	if !fn.acceptsArgs(len(kinds)) {
		return types.TypeUnknown, r.errorAt([]string{name},
			"No matching signature for function %s for argument types: %s",
			strings.ToUpper(name), joinKinds(kinds))
	}
	return fn.returns(kinds), nil
}

func (r *resolver) resolveWindow(e *ast.WindowFuncExpr, s *scope) (types.TypeKind, error) {
	if !r.featureEnabled(types.FeatureAnalyticFunctions) {
		return types.TypeUnknown, r.errorAt([]string{e.Name}, "Analytic functions not supported")
	}
	switch r.clause {
	case "", "ORDER BY":
	default:
		return types.TypeUnknown, r.errorAt([]string{e.Name}, "Analytic function not allowed in %s clause", r.clause)
	}

	fn, err := r.lookupFunction(e.Name)
	if err != nil {
		return types.TypeUnknown, err
	}
	if fn.kind == scalarFunction {
		return types.TypeUnknown, r.errorAt([]string{e.Name},
			"Function %s does not support an OVER clause", strings.ToUpper(e.Name))
	}

	kinds, err := r.resolveExprs(e.Args, s)
	if err != nil {
		return types.TypeUnknown, err
	}
	// window items take no column numbers, a literal there is a constant
	var items []*ast.ByItem
	if e.Spec.PartitionBy != nil {
		items = append(items, e.Spec.PartitionBy.Items...)
	}
	if e.Spec.OrderBy != nil {
		items = append(items, e.Spec.OrderBy.Items...)
	}
	for _, item := range items {
		if _, err := r.resolveExpr(item.Expr, s); err != nil {
			return types.TypeUnknown, err
		}
	}
	if !fn.acceptsArgs(len(kinds)) {
		return types.TypeUnknown, r.errorAt([]string{e.Name},
			"No matching signature for function %s for argument types: %s",
			strings.ToUpper(e.Name), joinKinds(kinds))
	}
	return fn.returns(kinds), nil
}

func joinKinds(kinds []types.TypeKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.SQLName()
	}
	return strings.Join(names, ", ")
}

func binaryType(op opcode.Op, l, r types.TypeKind) types.TypeKind {
	switch op {
	case opcode.EQ, opcode.NE, opcode.LT, opcode.LE, opcode.GT, opcode.GE, opcode.NullEQ,
		opcode.LogicAnd, opcode.LogicOr, opcode.LogicXor:
		return types.TypeBool
	case opcode.Plus, opcode.Minus, opcode.Mul:
		return arithmeticType(l, r)
	case opcode.Div:
		if l.IsNumeric() && r.IsNumeric() {
			return types.TypeDouble
		}
	case opcode.IntDiv:
		return types.TypeInt64
	case opcode.Mod:
		if l.IsInteger() && r.IsInteger() {
			return types.TypeInt64
		}
		if l.IsNumeric() && r.IsNumeric() {
			return types.TypeDouble
		}
	case opcode.And, opcode.Or, opcode.Xor, opcode.LeftShift, opcode.RightShift:
		return types.TypeInt64
	}
	return types.TypeUnknown
}

func arithmeticType(l, r types.TypeKind) types.TypeKind {
	switch {
	case l.IsInteger() && r.IsInteger():
		return types.TypeInt64
	case !l.IsNumeric() || !r.IsNumeric():
		return types.TypeUnknown
	case l == types.TypeDouble || l == types.TypeFloat || r == types.TypeDouble || r == types.TypeFloat:
		return types.TypeDouble
	case l == types.TypeBignumeric || r == types.TypeBignumeric:
		return types.TypeBignumeric
	}
	return types.TypeNumeric
}

func literalType(v any) types.TypeKind {
	switch v.(type) {
	case nil:
		return types.TypeUnknown
	case int64, uint64, int:
		return types.TypeInt64
	case float64, float32:
		return types.TypeDouble
	case string:
		return types.TypeString
	case []byte:
		return types.TypeBytes
	}
	// exact decimals such as 1.5
	if strings.Contains(fmt.Sprintf("%T", v), "Decimal") {
		return types.TypeDouble
	}
	return types.TypeUnknown
}

func castType(tp byte) types.TypeKind {
	switch tp {
	case mysql.TypeTiny, mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong:
		return types.TypeInt64
	case mysql.TypeFloat, mysql.TypeDouble:
		return types.TypeDouble
	case mysql.TypeNewDecimal:
		return types.TypeNumeric
	case mysql.TypeVarchar, mysql.TypeVarString, mysql.TypeString:
		return types.TypeString
	case mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		return types.TypeBytes
	case mysql.TypeDate:
		return types.TypeDate
	case mysql.TypeDatetime:
		return types.TypeDatetime
	case mysql.TypeTimestamp:
		return types.TypeTimestamp
	case mysql.TypeDuration:
		return types.TypeTime
	case mysql.TypeJSON:
		return types.TypeJSON
	}
	return types.TypeUnknown
}
