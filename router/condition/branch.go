package condition

import (
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/router/rule"
	"github.com/shardgate/shardgate/router/stmt"
)

type columnKey struct {
	table  string
	column string
}

// columnState accumulates the predicates of one AND branch on one column.
type columnState struct {
	key       columnKey
	values    []shvalue.Value
	hasValues bool
	rng       shvalue.Range
	hasRange  bool
}

func (cs *columnState) addValues(vals []shvalue.Value) {
	if !cs.hasValues {
		cs.values = dedup(vals)
		cs.hasValues = true
		return
	}
	kept := cs.values[:0]
	for _, v := range cs.values {
		for _, o := range vals {
			if shvalue.Equal(v, o) {
				kept = append(kept, v)
				break
			}
		}
	}
	cs.values = kept
}

func (cs *columnState) addRange(r shvalue.Range) {
	if !cs.hasRange {
		cs.rng = r
		cs.hasRange = true
		return
	}
	cs.rng = cs.rng.Intersect(r)
}

// condition returns false when the column can match nothing.
func (cs *columnState) condition() (shcond.ConditionValue, bool) {
	cv := shcond.ConditionValue{Table: cs.key.table, Column: cs.key.column}
	if cs.hasValues {
		vals := cs.values
		if cs.hasRange {
			vals = make([]shvalue.Value, 0, len(cs.values))
			for _, v := range cs.values {
				if cs.rng.Contains(v) {
					vals = append(vals, v)
				}
			}
		}
		if len(vals) == 0 {
			return cv, false
		}
		cv.Values = vals
		cv.Operator = shcond.In
		if len(vals) == 1 {
			cv.Operator = shcond.Equal
		}
		return cv, true
	}
	if cs.rng.IsEmpty() {
		return cv, false
	}
	cv.Operator = shcond.Range
	cv.Range = cs.rng
	return cv, true
}

func dedup(vals []shvalue.Value) []shvalue.Value {
	res := make([]shvalue.Value, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, v)
	}
	return res
}

type extractor struct {
	st     *stmt.Statement
	r      *rule.ShardingRule
	params []any

	states []*columnState
	never bool
}

// branch turns one AND branch into a sharding condition. It returns false
// for branches that can never be true.
func (x *extractor) branch(leaves []stmt.Expr) (shcond.ShardingCondition, bool) {
	x.states = x.states[:0]
	x.never = false

	for _, leaf := range leaves {
		x.leaf(leaf)
		if x.never {
			return shcond.ShardingCondition{}, false
		}
	}

	var sc shcond.ShardingCondition
	for _, cs := range x.states {
		cv, ok := cs.condition()
		if !ok {
			return shcond.ShardingCondition{}, false
		}
		sc.Values = append(sc.Values, cv)
	}
	return sc, true
}

func (x *extractor) state(k columnKey) *columnState {
	for _, cs := range x.states {
		if cs.key == k {
			return cs
		}
	}
	cs := &columnState{key: k}
	x.states = append(x.states, cs)
	return cs
}

// columnKeys attributes a column reference to sharding tables of the statement.
func (x *extractor) columnKeys(c *stmt.ColumnRef) []columnKey {
	column := x.r.Normalize(c.Name)
	if c.Qualifier != "" {
		table := x.st.ResolveQualifier(c.Qualifier)
		if table == "" {
			return nil
		}
		table = x.r.Normalize(table)
		if tr, ok := x.r.TableRule(table); ok && tr.IsShardingColumn(column) {
			return []columnKey{{table: table, column: column}}
		}
		return nil
	}

	var res []columnKey
	for _, name := range x.st.TableNames() {
		table := x.r.Normalize(name)
		if tr, ok := x.r.TableRule(table); ok && tr.IsShardingColumn(column) {
			res = append(res, columnKey{table: table, column: column})
		}
	}
	return res
}

func (x *extractor) leaf(e stmt.Expr) {
	switch v := e.(type) {
	case *stmt.Comparison:
		x.comparison(v)
	case *stmt.InList:
		if v.Not {
			return
		}
		col, ok := v.Left.(*stmt.ColumnRef)
		if !ok {
			return
		}
		keys := x.columnKeys(col)
		if len(keys) == 0 {
			return
		}
		vals := make([]shvalue.Value, 0, len(v.Values))
		for _, ve := range v.Values {
			val, ok := bind(ve, x.params)
			if !ok {
				return
			}
			if !val.IsNull() {
				vals = append(vals, val)
			}
		}
		if len(vals) == 0 {
			x.never = true
			return
		}
		for _, k := range keys {
			x.state(k).addValues(vals)
		}
	case *stmt.Between:
		if v.Not {
			return
		}
		col, ok := v.Left.(*stmt.ColumnRef)
		if !ok {
			return
		}
		keys := x.columnKeys(col)
		if len(keys) == 0 {
			return
		}
		lo, okLo := bind(v.From, x.params)
		hi, okHi := bind(v.To, x.params)
		if !okLo || !okHi {
			return
		}
		if lo.IsNull() || hi.IsNull() {
			x.never = true
			return
		}
		for _, k := range keys {
			x.state(k).addRange(shvalue.Closed(lo, hi))
		}
	}
}

func (x *extractor) comparison(c *stmt.Comparison) {
	op := c.Op
	col, ok := c.Left.(*stmt.ColumnRef)
	valueExpr := c.Right
	if !ok {
		if col, ok = c.Right.(*stmt.ColumnRef); !ok {
			return
		}
		valueExpr = c.Left
		op = op.Flip()
	}

	val, ok := bind(valueExpr, x.params)
	if !ok {
		return
	}
	keys := x.columnKeys(col)
	if len(keys) == 0 {
		return
	}

	if val.IsNull() {
		// col <=> NULL may hold but carries no routable value
		if op != stmt.OpNsE {
			x.never = true
		}
		return
	}

	var rng shvalue.Range
	switch op {
	case stmt.OpEq, stmt.OpNsE:
		for _, k := range keys {
			x.state(k).addValues([]shvalue.Value{val})
		}
		return
	case stmt.OpLt:
		rng = shvalue.LessThan(val)
	case stmt.OpLe:
		rng = shvalue.AtMost(val)
	case stmt.OpGt:
		rng = shvalue.GreaterThan(val)
	case stmt.OpGe:
		rng = shvalue.AtLeast(val)
	default:
		return
	}
	for _, k := range keys {
		x.state(k).addRange(rng)
	}
}
