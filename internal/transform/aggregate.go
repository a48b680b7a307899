package transform

import (
	"fmt"
	"strings"

	"github.com/orneryd/cygraph/internal/ast"
)

// Aggregator accumulates one aggregate function's running value across a
// group of rows, per spec.md §4.4's mapping of count/sum/avg/min/max/collect
// to SQL aggregates.
type Aggregator struct {
	name     string
	distinct bool
	seen     map[string]bool
	count    int64
	sum      float64
	isFloat  bool
	min, max any
	have     bool
	items    []any
}

// NewAggregator returns an Aggregator for call, which must satisfy
// IsAggregate(call.Name).
func NewAggregator(call *ast.FunctionCall) *Aggregator {
	a := &Aggregator{name: strings.ToLower(call.Name), distinct: call.Distinct}
	if a.distinct {
		a.seen = make(map[string]bool)
	}
	return a
}

// Add folds one row's evaluated argument value into the running aggregate.
// isStar=true counts every row and skips DISTINCT de-duplication; the
// executor sets it for a count call with no arguments. A parsed count(*)
// carries a "*" literal argument, so it is counted as a non-null value.
func (a *Aggregator) Add(v any, isStar bool) {
	if a.distinct && !isStar {
		key := sortKey(v)
		if a.seen[key] {
			return
		}
		a.seen[key] = true
	}
	switch a.name {
	case "count":
		if isStar || v != nil {
			a.count++
		}
		return
	case "collect":
		if v != nil {
			a.items = append(a.items, v)
		}
		return
	}
	if v == nil {
		return
	}
	f, ok := asFloat(v)
	if !ok {
		return
	}
	if _, isInt := v.(float64); isInt {
		a.isFloat = true
	}
	a.count++
	a.sum += f
	if !a.have {
		a.min, a.max = v, v
		a.have = true
		return
	}
	if cmp, _ := compareValues("<", v, a.min); cmp == true {
		a.min = v
	}
	if cmp, _ := compareValues(">", v, a.max); cmp == true {
		a.max = v
	}
}

// Result returns the aggregate's final value.
func (a *Aggregator) Result() any {
	switch a.name {
	case "count":
		return a.count
	case "sum":
		if !a.have {
			if a.isFloat {
				return 0.0
			}
			return int64(0)
		}
		if a.isFloat {
			return a.sum
		}
		return int64(a.sum)
	case "avg":
		if a.count == 0 {
			return nil
		}
		return a.sum / float64(a.count)
	case "min":
		return a.min
	case "max":
		return a.max
	case "collect":
		if a.items == nil {
			return []any{}
		}
		return a.items
	default:
		panic(fmt.Sprintf("transform: unknown aggregate %q", a.name))
	}
}
