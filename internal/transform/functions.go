package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/errs"
)

func matchRegex(s, pattern string) (any, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("transform: invalid regex %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}

// aggregateFunctions is the set of function names internal/executor's
// grouping logic must handle instead of evalFunction, since they fold over
// every row of a group rather than evaluating independently per row.
var aggregateFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true,
	"min": true, "max": true, "collect": true,
}

// IsAggregate reports whether name is an aggregating function, per spec.md
// §4.4 ("Aggregation functions (count, sum, avg, min, max, collect, with
// and without DISTINCT) map to SQL aggregates").
func IsAggregate(name string) bool {
	return aggregateFunctions[strings.ToLower(name)]
}

// ContainsAggregate reports whether expr contains an aggregate function
// call anywhere in its tree, used to decide whether a RETURN/WITH
// projection requires grouping.
func ContainsAggregate(expr ast.Expression) bool {
	found := false
	var walk func(ast.Expression)
	walk = func(e ast.Expression) {
		if found || e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.FunctionCall:
			if IsAggregate(n.Name) {
				found = true
				return
			}
			for _, a := range n.Args {
				walk(a)
			}
		case *ast.BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *ast.UnaryOp:
			walk(n.Operand)
		case *ast.PropertyAccess:
			walk(n.Target)
		case *ast.IsNull:
			walk(n.Operand)
		case *ast.InList:
			walk(n.Operand)
			walk(n.List)
		case *ast.StringMatch:
			walk(n.Operand)
			walk(n.Argument)
		case *ast.ListIndex:
			walk(n.List)
			walk(n.Index)
		case *ast.ListSlice:
			walk(n.List)
			walk(n.From)
			walk(n.To)
		case *ast.CaseExpr:
			walk(n.Operand)
			for _, w := range n.Whens {
				walk(w)
			}
			for _, t := range n.Thens {
				walk(t)
			}
			walk(n.ElseClause)
		}
	}
	walk(expr)
	return found
}

func evalFunction(ctx *EvalContext, e *ast.FunctionCall) (any, error) {
	name := strings.ToLower(e.Name)
	if IsAggregate(name) {
		return nil, errs.At(errs.Semantic, e.Pos, "aggregate function %q used outside of a groupable projection", e.Name)
	}
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch name {
	case "id":
		return entityID(args, e.Pos)
	case "labels":
		n, ok := args[0].(NodeRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "labels() requires a node")
		}
		labels, err := ctx.Store.NodeLabels(n.ID)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(labels))
		for i, l := range labels {
			out[i] = l
		}
		return out, nil
	case "type":
		r, ok := args[0].(RelRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "type() requires a relationship")
		}
		return r.Type, nil
	case "keys":
		switch t := args[0].(type) {
		case NodeRef:
			keys, err := ctx.Store.NodeKeys(t.ID)
			return toAnyList(keys), err
		case RelRef:
			keys, err := ctx.Store.RelKeys(t.ID)
			return toAnyList(keys), err
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			return toAnyList(keys), nil
		default:
			return nil, errs.At(errs.Semantic, e.Pos, "keys() requires a node, relationship or map")
		}
	case "startnode":
		r, ok := args[0].(RelRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "startNode() requires a relationship")
		}
		return NodeRef{ID: r.Source}, nil
	case "endnode":
		r, ok := args[0].(RelRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "endNode() requires a relationship")
		}
		return NodeRef{ID: r.Target}, nil
	case "nodes":
		p, ok := args[0].(PathRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "nodes() requires a path")
		}
		out := make([]any, len(p.NodeIDs))
		for i, id := range p.NodeIDs {
			out[i] = NodeRef{ID: id}
		}
		return out, nil
	case "relationships":
		p, ok := args[0].(PathRef)
		if !ok {
			return nil, errs.At(errs.Semantic, e.Pos, "relationships() requires a path")
		}
		out := make([]any, len(p.RelIDs))
		for i, id := range p.RelIDs {
			src, tgt, typ, found, err := ctx.Store.EdgeEndpoints(id)
			if err != nil {
				return nil, err
			}
			if !found {
				out[i] = RelRef{ID: id}
				continue
			}
			out[i] = RelRef{ID: id, Source: src, Target: tgt, Type: typ}
		}
		return out, nil
	case "size":
		switch v := args[0].(type) {
		case []any:
			return int64(len(v)), nil
		case string:
			return int64(len(v)), nil
		case nil:
			return nil, nil
		default:
			return nil, errs.At(errs.Semantic, e.Pos, "size() requires a list or string")
		}
	case "coalesce":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "abs":
		f, ok := asFloat(args[0])
		if !ok {
			return nil, nil
		}
		if n, ok := args[0].(int64); ok {
			if n < 0 {
				return -n, nil
			}
			return n, nil
		}
		return math.Abs(f), nil
	case "ceil":
		f, _ := asFloat(args[0])
		return math.Ceil(f), nil
	case "floor":
		f, _ := asFloat(args[0])
		return math.Floor(f), nil
	case "round":
		f, _ := asFloat(args[0])
		return math.Round(f), nil
	case "sqrt":
		f, _ := asFloat(args[0])
		return math.Sqrt(f), nil
	case "sign":
		f, _ := asFloat(args[0])
		switch {
		case f > 0:
			return int64(1), nil
		case f < 0:
			return int64(-1), nil
		default:
			return int64(0), nil
		}
	case "tointeger":
		return toInteger(args[0])
	case "tofloat":
		f, ok := asFloat(args[0])
		if !ok {
			if s, ok := args[0].(string); ok {
				parsed, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, nil
				}
				return parsed, nil
			}
			return nil, nil
		}
		return f, nil
	case "tostring":
		return toStringValue(args[0]), nil
	case "toboolean":
		if s, ok := args[0].(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, nil
			}
			return b, nil
		}
		if b, ok := args[0].(bool); ok {
			return b, nil
		}
		return nil, nil
	case "range":
		return evalRange(args)
	case "head":
		if l, ok := args[0].([]any); ok && len(l) > 0 {
			return l[0], nil
		}
		return nil, nil
	case "last":
		if l, ok := args[0].([]any); ok && len(l) > 0 {
			return l[len(l)-1], nil
		}
		return nil, nil
	case "tail":
		if l, ok := args[0].([]any); ok && len(l) > 0 {
			return append([]any(nil), l[1:]...), nil
		}
		return []any{}, nil
	case "reverse":
		if s, ok := args[0].(string); ok {
			r := []rune(s)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return string(r), nil
		}
		if l, ok := args[0].([]any); ok {
			out := make([]any, len(l))
			for i, v := range l {
				out[len(l)-1-i] = v
			}
			return out, nil
		}
		return nil, nil
	case "toupper":
		if s, ok := args[0].(string); ok {
			return strings.ToUpper(s), nil
		}
		return nil, nil
	case "tolower":
		if s, ok := args[0].(string); ok {
			return strings.ToLower(s), nil
		}
		return nil, nil
	case "trim":
		if s, ok := args[0].(string); ok {
			return strings.TrimSpace(s), nil
		}
		return nil, nil
	case "substring":
		return evalSubstring(args)
	case "replace":
		if len(args) == 3 {
			s, sOk := args[0].(string)
			search, searchOk := args[1].(string)
			repl, replOk := args[2].(string)
			if sOk && searchOk && replOk {
				return strings.ReplaceAll(s, search, repl), nil
			}
		}
		return nil, nil
	case "split":
		if len(args) == 2 {
			s, sOk := args[0].(string)
			sep, sepOk := args[1].(string)
			if sOk && sepOk {
				return toAnyList(strings.Split(s, sep)), nil
			}
		}
		return nil, nil
	case "exists":
		return args[0] != nil, nil
	default:
		return nil, errs.At(errs.Semantic, e.Pos, "unknown function %q", e.Name)
	}
}

func entityID(args []any, pos errs.Pos) (any, error) {
	switch t := args[0].(type) {
	case NodeRef:
		return t.ID, nil
	case RelRef:
		return t.ID, nil
	default:
		return nil, errs.At(errs.Semantic, pos, "id() requires a node or relationship")
	}
}

func toAnyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toInteger(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, nil
		}
		return parsed, nil
	default:
		return nil, nil
	}
}

func toStringValue(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

func evalRange(args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("transform: range() requires at least 2 arguments")
	}
	start, ok1 := args[0].(int64)
	end, ok2 := args[1].(int64)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("transform: range() requires integer arguments")
	}
	step := int64(1)
	if len(args) == 3 {
		s, ok := args[2].(int64)
		if !ok || s == 0 {
			return nil, fmt.Errorf("transform: range() step must be a non-zero integer")
		}
		step = s
	}
	var out []any
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, i)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func evalSubstring(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, nil
	}
	start, ok := args[1].(int64)
	if !ok {
		return nil, nil
	}
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if start > int64(len(r)) {
		start = int64(len(r))
	}
	end := int64(len(r))
	if len(args) == 3 {
		if l, ok := args[2].(int64); ok {
			end = start + l
			if end > int64(len(r)) {
				end = int64(len(r))
			}
		}
	}
	if start > end {
		return "", nil
	}
	return string(r[start:end]), nil
}
