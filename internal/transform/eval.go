package transform

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/errs"
)

// Store is the minimal store-backed lookup surface Eval needs to resolve
// property access and entity introspection, implemented by
// internal/executor so this package stays free of any internal/reldb or
// internal/catalog import — the expression evaluator is pure given a Row,
// the query parameters, and this narrow interface.
type Store interface {
	NodeProperty(nodeID int64, key string) (any, bool, error)
	RelProperty(relID int64, key string) (any, bool, error)
	NodeLabels(nodeID int64) ([]string, error)
	NodeKeys(nodeID int64) ([]string, error)
	RelKeys(relID int64) ([]string, error)
	EdgeEndpoints(relID int64) (src, tgt int64, typ string, ok bool, err error)
}

// EvalContext is everything Eval needs to resolve one expression: the
// current row of bindings, the query's bound parameters, and the Store
// callback surface.
type EvalContext struct {
	Row    Row
	Params map[string]any
	Store  Store
}

// Eval evaluates expr against ctx and returns its runtime value. Missing
// property access yields (nil, nil) rather than an error, matching Cypher's
// NULL-propagation semantics.
func Eval(ctx *EvalContext, expr ast.Expression) (any, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil
	case *ast.ListLiteral:
		out := make([]any, len(e.Items))
		for i, item := range e.Items {
			v, err := Eval(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ast.MapLiteral:
		out := make(map[string]any, len(e.Keys))
		for i, k := range e.Keys {
			v, err := Eval(ctx, e.Values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *ast.Identifier:
		v, ok := ctx.Row[e.Name]
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "undefined variable %q", e.Name)
		}
		return v, nil
	case *ast.ParameterRef:
		v, ok := ctx.Params[e.Name]
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "undefined parameter $%s", e.Name)
		}
		return v, nil
	case *ast.PropertyAccess:
		return evalPropertyAccess(ctx, e)
	case *ast.FunctionCall:
		return evalFunction(ctx, e)
	case *ast.UnaryOp:
		return evalUnary(ctx, e)
	case *ast.BinaryOp:
		return evalBinary(ctx, e)
	case *ast.IsNull:
		v, err := Eval(ctx, e.Operand)
		if err != nil {
			return nil, err
		}
		isNil := v == nil
		if e.Negated {
			return !isNil, nil
		}
		return isNil, nil
	case *ast.InList:
		return evalInList(ctx, e)
	case *ast.StringMatch:
		return evalStringMatch(ctx, e)
	case *ast.ListIndex:
		return evalListIndex(ctx, e)
	case *ast.ListSlice:
		return evalListSlice(ctx, e)
	case *ast.CaseExpr:
		return evalCase(ctx, e)
	case *ast.MapProjection:
		return evalMapProjection(ctx, e)
	case *ast.PathExpr:
		v, ok := ctx.Row[e.Variable]
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "undefined path variable %q", e.Variable)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("transform: unhandled expression %T", expr)
	}
}

func evalPropertyAccess(ctx *EvalContext, e *ast.PropertyAccess) (any, error) {
	target, err := Eval(ctx, e.Target)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case NodeRef:
		v, ok, err := ctx.Store.NodeProperty(t.ID, e.Property)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return v, nil
	case RelRef:
		v, ok, err := ctx.Store.RelProperty(t.ID, e.Property)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return v, nil
	case map[string]any:
		return t[e.Property], nil
	case nil:
		return nil, nil
	default:
		return nil, errs.At(errs.Semantic, e.Pos, "cannot access property %q of a non-entity value", e.Property)
	}
}

func evalUnary(ctx *EvalContext, e *ast.UnaryOp) (any, error) {
	v, err := Eval(ctx, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "NOT":
		b, ok := asBool(v)
		if !ok {
			return nil, nil
		}
		return !b, nil
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, errs.At(errs.Semantic, e.Pos, "unary - requires a number")
	case "+":
		return v, nil
	default:
		return nil, errs.At(errs.Semantic, e.Pos, "unknown unary operator %q", e.Op)
	}
}

func evalBinary(ctx *EvalContext, e *ast.BinaryOp) (any, error) {
	switch e.Op {
	case "AND":
		l, err := Eval(ctx, e.Left)
		if err != nil {
			return nil, err
		}
		if lb, ok := asBool(l); ok && !lb {
			return false, nil
		}
		r, err := Eval(ctx, e.Right)
		if err != nil {
			return nil, err
		}
		rb, rok := asBool(r)
		lb, lok := asBool(l)
		if !lok || !rok {
			return nil, nil
		}
		return lb && rb, nil
	case "OR":
		l, err := Eval(ctx, e.Left)
		if err != nil {
			return nil, err
		}
		if lb, ok := asBool(l); ok && lb {
			return true, nil
		}
		r, err := Eval(ctx, e.Right)
		if err != nil {
			return nil, err
		}
		rb, rok := asBool(r)
		lb, lok := asBool(l)
		if !lok || !rok {
			return nil, nil
		}
		return lb || rb, nil
	case "XOR":
		l, err := Eval(ctx, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, e.Right)
		if err != nil {
			return nil, err
		}
		lb, lok := asBool(l)
		rb, rok := asBool(r)
		if !lok || !rok {
			return nil, nil
		}
		return lb != rb, nil
	}

	l, err := Eval(ctx, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := Eval(ctx, e.Right)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		switch e.Op {
		case "=":
			return nil, nil
		case "<>":
			return nil, nil
		}
		return nil, nil
	}

	switch e.Op {
	case "=":
		return equalValues(l, r), nil
	case "<>":
		return !equalValues(l, r), nil
	case "<", "<=", ">", ">=":
		return compareValues(e.Op, l, r)
	case "+":
		return arith(e.Op, l, r)
	case "-", "*", "/", "%", "^":
		return arith(e.Op, l, r)
	default:
		return nil, errs.At(errs.Semantic, e.Pos, "unknown binary operator %q", e.Op)
	}
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func equalValues(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func compareValues(op string, a, b any) (any, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return stringCompare(op, as, bs), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, nil
	}
	switch op {
	case "<":
		return af < bf, nil
	case "<=":
		return af <= bf, nil
	case ">":
		return af > bf, nil
	case ">=":
		return af >= bf, nil
	}
	return nil, nil
}

func stringCompare(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func arith(op string, a, b any) (any, error) {
	if op == "+" {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
		}
		if al, ok := a.([]any); ok {
			if bl, ok := b.([]any); ok {
				out := make([]any, 0, len(al)+len(bl))
				out = append(out, al...)
				out = append(out, bl...)
				return out, nil
			}
		}
	}
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt && op != "/" {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "%":
			if bi == 0 {
				return nil, fmt.Errorf("transform: modulo by zero")
			}
			return ai % bi, nil
		case "^":
			return int64(math.Pow(float64(ai), float64(bi))), nil
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return nil, fmt.Errorf("transform: arithmetic operator %q requires numbers", op)
	}
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, fmt.Errorf("transform: division by zero")
		}
		return af / bf, nil
	case "%":
		return math.Mod(af, bf), nil
	case "^":
		return math.Pow(af, bf), nil
	}
	return nil, fmt.Errorf("transform: unknown arithmetic operator %q", op)
}

func evalInList(ctx *EvalContext, e *ast.InList) (any, error) {
	v, err := Eval(ctx, e.Operand)
	if err != nil {
		return nil, err
	}
	list, err := Eval(ctx, e.List)
	if err != nil {
		return nil, err
	}
	items, ok := list.([]any)
	if !ok {
		return nil, nil
	}
	for _, item := range items {
		if equalValues(v, item) {
			return true, nil
		}
	}
	return false, nil
}

func evalStringMatch(ctx *EvalContext, e *ast.StringMatch) (any, error) {
	v, err := Eval(ctx, e.Operand)
	if err != nil {
		return nil, err
	}
	arg, err := Eval(ctx, e.Argument)
	if err != nil {
		return nil, err
	}
	s, sok := v.(string)
	a, aok := arg.(string)
	if !sok || !aok {
		return nil, nil
	}
	switch e.Op {
	case "STARTS":
		return strings.HasPrefix(s, a), nil
	case "ENDS":
		return strings.HasSuffix(s, a), nil
	case "CONTAINS":
		return strings.Contains(s, a), nil
	case "REGEX":
		return matchRegex(s, a)
	default:
		return nil, fmt.Errorf("transform: unknown string operator %q", e.Op)
	}
}

func evalListIndex(ctx *EvalContext, e *ast.ListIndex) (any, error) {
	listVal, err := Eval(ctx, e.List)
	if err != nil {
		return nil, err
	}
	idxVal, err := Eval(ctx, e.Index)
	if err != nil {
		return nil, err
	}
	list, ok := listVal.([]any)
	if !ok {
		return nil, nil
	}
	idx, ok := idxVal.(int64)
	if !ok {
		return nil, nil
	}
	n := int64(len(list))
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return nil, nil
	}
	return list[idx], nil
}

func evalListSlice(ctx *EvalContext, e *ast.ListSlice) (any, error) {
	listVal, err := Eval(ctx, e.List)
	if err != nil {
		return nil, err
	}
	list, ok := listVal.([]any)
	if !ok {
		return nil, nil
	}
	n := int64(len(list))
	from := int64(0)
	to := n
	if e.From != nil {
		v, err := Eval(ctx, e.From)
		if err != nil {
			return nil, err
		}
		if f, ok := v.(int64); ok {
			from = f
		}
	}
	if e.To != nil {
		v, err := Eval(ctx, e.To)
		if err != nil {
			return nil, err
		}
		if t, ok := v.(int64); ok {
			to = t
		}
	}
	if from < 0 {
		from += n
	}
	if to < 0 {
		to += n
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from >= to {
		return []any{}, nil
	}
	return append([]any(nil), list[from:to]...), nil
}

func evalCase(ctx *EvalContext, e *ast.CaseExpr) (any, error) {
	if e.Operand != nil {
		operand, err := Eval(ctx, e.Operand)
		if err != nil {
			return nil, err
		}
		for i, when := range e.Whens {
			w, err := Eval(ctx, when)
			if err != nil {
				return nil, err
			}
			if equalValues(operand, w) {
				return Eval(ctx, e.Thens[i])
			}
		}
	} else {
		for i, when := range e.Whens {
			w, err := Eval(ctx, when)
			if err != nil {
				return nil, err
			}
			if b, ok := asBool(w); ok && b {
				return Eval(ctx, e.Thens[i])
			}
		}
	}
	if e.ElseClause != nil {
		return Eval(ctx, e.ElseClause)
	}
	return nil, nil
}

func evalMapProjection(ctx *EvalContext, e *ast.MapProjection) (any, error) {
	target, err := Eval(ctx, e.Target)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, item := range e.Items {
		switch {
		case item.AllProps:
			props, err := entityProps(ctx, target)
			if err != nil {
				return nil, err
			}
			for k, v := range props {
				out[k] = v
			}
		case item.Property != "":
			v, err := evalPropertyAccess(ctx, &ast.PropertyAccess{Target: e.Target, Property: item.Property})
			if err != nil {
				return nil, err
			}
			out[item.Property] = v
		default:
			v, err := Eval(ctx, item.Value)
			if err != nil {
				return nil, err
			}
			out[item.Alias] = v
		}
	}
	return out, nil
}

func entityProps(ctx *EvalContext, target any) (map[string]any, error) {
	switch t := target.(type) {
	case NodeRef:
		keys, err := ctx.Store.NodeKeys(t.ID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			v, _, err := ctx.Store.NodeProperty(t.ID, k)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case RelRef:
		keys, err := ctx.Store.RelKeys(t.ID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			v, _, err := ctx.Store.RelProperty(t.ID, k)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case map[string]any:
		return t, nil
	default:
		return map[string]any{}, nil
	}
}

// sortKey builds a comparable representation of v for ORDER BY, tolerating
// mixed-type columns by falling back to a string encoding.
func sortKey(v any) string {
	switch n := v.(type) {
	case int64:
		return fmt.Sprintf("%020d", n)
	case float64:
		return strconv.FormatFloat(n, 'f', 12, 64)
	case string:
		return n
	case bool:
		if n {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", n)
	}
}

// SortRows orders rows in place by the given keys, stable, honoring each
// key's descending flag.
func SortRows(rows []Row, keyFns []func(Row) any, desc []bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		for k, fn := range keyFns {
			a, b := sortKey(fn(rows[i])), sortKey(fn(rows[j]))
			if a == b {
				continue
			}
			if desc[k] {
				return a > b
			}
			return a < b
		}
		return false
	})
}
