package merge

import (
	"math"
	"strconv"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/router/stmt"
)

// number is a partial aggregate. It stays integral until a float joins in.
type number struct {
	set     bool
	isFloat bool
	i       int64
	f       float64
}

func toNumber(v any, agg stmt.Aggregation) (number, error) {
	val := valueOf(v)
	switch val.Kind() {
	case shvalue.KindNull:
		return number{}, nil
	case shvalue.KindInt:
		n, _ := val.Int64()
		return number{set: true, i: n}, nil
	case shvalue.KindUint:
		if n, ok := val.Int64(); ok {
			return number{set: true, i: n}, nil
		}
		f, _ := val.Float64()
		return number{set: true, isFloat: true, f: f}, nil
	case shvalue.KindFloat:
		f, _ := val.Float64()
		return number{set: true, isFloat: true, f: f}, nil
	case shvalue.KindString, shvalue.KindBytes:
		// text protocols return numbers as strings
		if n, err := strconv.ParseInt(val.Str(), 10, 64); err == nil {
			return number{set: true, i: n}, nil
		}
		if f, err := strconv.ParseFloat(val.Str(), 64); err == nil && !math.IsNaN(f) {
			return number{set: true, isFloat: true, f: f}, nil
		}
	}
	return number{}, sgerror.Newf(sgerror.SG_MERGE_TYPE, "%s(%s) got non numeric partial value %v (%s)", agg.Kind, agg.Column, v, val.Kind())
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// add reports false when the integer sum does not fit into int64.
func (n number) add(o number) (number, bool) {
	switch {
	case !o.set:
		return n, true
	case !n.set:
		return o, true
	case n.isFloat || o.isFloat:
		return number{set: true, isFloat: true, f: n.float() + o.float()}, true
	}
	sum := n.i + o.i
	if (n.i >= 0) == (o.i >= 0) && (sum >= 0) != (n.i >= 0) {
		return number{}, false
	}
	return number{set: true, i: sum}, true
}

func (st *aggState) sum(acc *number, v number) error {
	res, ok := acc.add(v)
	if !ok {
		return sgerror.Newf(sgerror.SG_MERGE_TYPE, "%s(%s) overflows int64: %d + %d", st.agg.Kind, st.agg.Column, acc.i, v.i)
	}
	*acc = res
	return nil
}

func (n number) value() any {
	switch {
	case !n.set:
		return nil
	case n.isFloat:
		return n.f
	default:
		return n.i
	}
}

type aggState struct {
	agg stmt.Aggregation

	n     number
	count number
	best  any
}

func (st *aggState) fold(row []any) error {
	switch st.agg.Kind {
	case stmt.AggCount, stmt.AggSum:
		v, err := toNumber(row[st.agg.Index], st.agg)
		if err != nil {
			return err
		}
		return st.sum(&st.n, v)
	case stmt.AggAvg:
		s, err := toNumber(row[st.agg.SumIndex], st.agg)
		if err != nil {
			return err
		}
		c, err := toNumber(row[st.agg.CountIndex], st.agg)
		if err != nil {
			return err
		}
		if err := st.sum(&st.n, s); err != nil {
			return err
		}
		return st.sum(&st.count, c)
	case stmt.AggMin, stmt.AggMax:
		v := row[st.agg.Index]
		if v == nil {
			return nil
		}
		if st.best == nil {
			st.best = v
			return nil
		}
		c := shvalue.Compare(valueOf(v), valueOf(st.best))
		if (st.agg.Kind == stmt.AggMin && c < 0) || (st.agg.Kind == stmt.AggMax && c > 0) {
			st.best = v
		}
	}
	return nil
}

func (st *aggState) apply(row []any) {
	switch st.agg.Kind {
	case stmt.AggCount:
		if st.n.isFloat {
			row[st.agg.Index] = int64(st.n.f)
		} else {
			row[st.agg.Index] = st.n.i
		}
	case stmt.AggSum:
		row[st.agg.Index] = st.n.value()
	case stmt.AggAvg:
		row[st.agg.SumIndex] = st.n.value()
		row[st.agg.CountIndex] = st.count.value()
		if !st.n.set || !st.count.set || st.count.float() == 0 {
			row[st.agg.Index] = nil
		} else {
			row[st.agg.Index] = st.n.float() / st.count.float()
		}
	case stmt.AggMin, stmt.AggMax:
		row[st.agg.Index] = st.best
	}
}

// groupAcc folds the rows of one group, keeping non aggregate columns of
// the first row.
type groupAcc struct {
	row    []any
	states []*aggState
}

func newGroupAcc(first []any, aggs []stmt.Aggregation) (*groupAcc, error) {
	acc := &groupAcc{
		row:    append([]any(nil), first...),
		states: make([]*aggState, len(aggs)),
	}
	for i, agg := range aggs {
		acc.states[i] = &aggState{agg: agg}
	}
	return acc, acc.add(first)
}

func (g *groupAcc) add(row []any) error {
	for _, st := range g.states {
		if err := st.fold(row); err != nil {
			return err
		}
	}
	return nil
}

func (g *groupAcc) result() []any {
	res := append([]any(nil), g.row...)
	for _, st := range g.states {
		st.apply(res)
	}
	return res
}
