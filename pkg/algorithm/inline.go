package algorithm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/inline"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

const (
	InlineType        = "INLINE"
	ComplexInlineType = "COMPLEX_INLINE"
	HintInlineType    = "HINT_INLINE"

	allowRangeProp = "allow-range-query-with-inline-sharding"
)

// maxInlineCombinations caps the cartesian product COMPLEX_INLINE evaluates.
const maxInlineCombinations = 4096

func compileExpression(props config.Props, dflt string) (*inline.Expression, error) {
	expr, ok := props.GetString("algorithm-expression")
	if !ok || expr == "" {
		if dflt == "" {
			return nil, fmt.Errorf("property %q is required", "algorithm-expression")
		}
		expr = dflt
	}
	return inline.Compile(expr)
}

func allowRange(props config.Props) (bool, error) {
	b, _, err := props.GetBool(allowRangeProp)
	return b, err
}

// Inline evaluates an expression such as "t_order_${order_id % 4}" over the
// sharding column. Ranges route everywhere when explicitly allowed.
type Inline struct {
	expr       *inline.Expression
	allowRange bool
}

func newInline(props config.Props) (Algorithm, error) {
	expr, err := compileExpression(props, "")
	if err != nil {
		return nil, err
	}
	allow, err := allowRange(props)
	if err != nil {
		return nil, err
	}
	return &Inline{expr: expr, allowRange: allow}, nil
}

func (a *Inline) Type() string { return InlineType }

func (a *Inline) DoSharding(_ []string, v PreciseValue) (string, error) {
	return a.expr.Evaluate(map[string]shvalue.Value{v.Column: v.Value})
}

func (a *Inline) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	if !a.allowRange {
		return nil, fmt.Errorf("range condition on %s.%s is not supported by %s, set %s to route it to all targets",
			v.LogicTable, v.Column, InlineType, allowRangeProp)
	}
	return targets, nil
}

// ComplexInline evaluates the expression for every combination of column values.
type ComplexInline struct {
	expr       *inline.Expression
	columns    []string
	allowRange bool
}

func newComplexInline(props config.Props) (Algorithm, error) {
	expr, err := compileExpression(props, "")
	if err != nil {
		return nil, err
	}
	allow, err := allowRange(props)
	if err != nil {
		return nil, err
	}
	var columns []string
	if cols, ok := props.GetString("sharding-columns"); ok {
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}
	return &ComplexInline{expr: expr, columns: columns, allowRange: allow}, nil
}

func (a *ComplexInline) Type() string { return ComplexInlineType }

func (a *ComplexInline) DoSharding(targets []string, v ComplexValues) ([]string, error) {
	if len(v.Ranges) > 0 {
		if !a.allowRange {
			return nil, fmt.Errorf("range condition on %s is not supported by %s, set %s to route it to all targets",
				v.LogicTable, ComplexInlineType, allowRangeProp)
		}
		return targets, nil
	}

	columns := a.columns
	if len(columns) == 0 {
		for c := range v.Values {
			columns = append(columns, c)
		}
		sort.Strings(columns)
	}

	combos := []map[string]shvalue.Value{{}}
	for _, c := range columns {
		vals, ok := v.Values[c]
		if !ok || len(vals) == 0 {
			return nil, fmt.Errorf("sharding column %q of %s has no value", c, v.LogicTable)
		}
		if len(combos)*len(vals) > maxInlineCombinations {
			return targets, nil
		}
		next := make([]map[string]shvalue.Value, 0, len(combos)*len(vals))
		for _, combo := range combos {
			for _, val := range vals {
				m := make(map[string]shvalue.Value, len(combo)+1)
				for k, cv := range combo {
					m[k] = cv
				}
				m[c] = val
				next = append(next, m)
			}
		}
		combos = next
	}

	res := make([]string, 0, len(combos))
	for _, combo := range combos {
		t, err := a.expr.Evaluate(combo)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// HintInline evaluates the expression with each hint bound to "value".
type HintInline struct {
	expr *inline.Expression
}

func newHintInline(props config.Props) (Algorithm, error) {
	expr, err := compileExpression(props, "${value}")
	if err != nil {
		return nil, err
	}
	return &HintInline{expr: expr}, nil
}

func (a *HintInline) Type() string { return HintInlineType }

func (a *HintInline) DoSharding(_ []string, v HintValues) ([]string, error) {
	res := make([]string, 0, len(v.Values))
	for _, val := range v.Values {
		t, err := a.expr.Evaluate(map[string]shvalue.Value{"value": val})
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}
