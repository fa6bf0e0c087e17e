// Package condition extracts sharding conditions from a bound statement.
package condition

import (
	"context"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/rule"
	"github.com/shardgate/shardgate/router/stmt"
)

// MaxBranches caps the disjunctive normal form of a WHERE clause. Larger
// expressions are routed as if unrestricted.
const MaxBranches = 1024

// Extract builds the sharding conditions of st. INSERT statements omitting the
// key column of their table get keys from the table key generator.
func Extract(ctx context.Context, st *stmt.Statement, r *rule.ShardingRule, params []any) (*shcond.Conditions, error) {
	if st.Kind == stmt.Insert && st.Insert != nil {
		return extractInsert(ctx, st.Insert, r, params)
	}
	if st.Where == nil {
		return shcond.Unrestricted(), nil
	}

	branches, ok := dnf(st.Where)
	if !ok {
		sglog.Zero.Debug().Int("limit", MaxBranches).Msg("where clause too large, routing unrestricted")
		return shcond.Unrestricted(), nil
	}

	x := &extractor{st: st, r: r, params: params}
	res := &shcond.Conditions{}
	for _, branch := range branches {
		sc, ok := x.branch(branch)
		if !ok {
			continue
		}
		res.Items = append(res.Items, sc)
	}
	if len(res.Items) == 0 {
		res.AlwaysFalse = true
	}
	return res, nil
}

func extractInsert(ctx context.Context, ins *stmt.InsertContext, r *rule.ShardingRule, params []any) (*shcond.Conditions, error) {
	table := r.Normalize(ins.Table)
	tr, ok := r.TableRule(table)
	if !ok || len(ins.Rows) == 0 {
		return shcond.Unrestricted(), nil
	}

	columns := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		columns[i] = r.Normalize(c)
	}
	generate := tr.NeedsKeyGeneration(columns)

	res := &shcond.Conditions{}
	for rowIdx, row := range ins.Rows {
		var sc shcond.ShardingCondition
		for _, col := range tr.ShardingColumns() {
			idx := ins.ColumnIndex(col, r.Normalize)
			if idx < 0 || idx >= len(row) {
				continue
			}
			v, ok := bind(row[idx], params)
			if !ok || v.IsNull() {
				continue
			}
			sc.Values = append(sc.Values, shcond.ConditionValue{
				Table: table, Column: col, Operator: shcond.Equal, Values: []shvalue.Value{v},
			})
		}

		if generate {
			key, err := tr.KeyGenerator.NextKey(ctx)
			if err != nil {
				return nil, err
			}
			res.GeneratedKeys = append(res.GeneratedKeys, shcond.GeneratedKey{
				Table: table, Column: tr.KeyColumn, Row: rowIdx, Value: key,
			})
			if tr.IsShardingColumn(tr.KeyColumn) {
				v, err := shvalue.FromAny(key)
				if err != nil {
					return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "generated key %v: %w", key, err)
				}
				sc.Values = append(sc.Values, shcond.ConditionValue{
					Table: table, Column: tr.KeyColumn, Operator: shcond.Equal, Values: []shvalue.Value{v},
				})
			}
		}
		res.Items = append(res.Items, sc)
	}
	return res, nil
}

// bind resolves a literal or a bound parameter. Anything else has no value
// known before execution.
func bind(e stmt.Expr, params []any) (shvalue.Value, bool) {
	switch v := e.(type) {
	case *stmt.Literal:
		return v.Value, true
	case *stmt.Param:
		if v.Index < 0 || v.Index >= len(params) {
			return shvalue.Null, false
		}
		val, err := shvalue.FromAny(params[v.Index])
		if err != nil {
			sglog.Zero.Debug().Err(err).Int("param", v.Index).Msg("parameter cannot be used as sharding value")
			return shvalue.Null, false
		}
		return val, true
	default:
		return shvalue.Null, false
	}
}

// dnf flattens e into OR-ed branches of AND-ed leaves.
func dnf(e stmt.Expr) ([][]stmt.Expr, bool) {
	switch v := e.(type) {
	case *stmt.And:
		l, ok := dnf(v.Left)
		if !ok {
			return nil, false
		}
		r, ok := dnf(v.Right)
		if !ok {
			return nil, false
		}
		if len(l)*len(r) > MaxBranches {
			return nil, false
		}
		res := make([][]stmt.Expr, 0, len(l)*len(r))
		for _, lb := range l {
			for _, rb := range r {
				b := make([]stmt.Expr, 0, len(lb)+len(rb))
				b = append(b, lb...)
				b = append(b, rb...)
				res = append(res, b)
			}
		}
		return res, true
	case *stmt.Or:
		l, ok := dnf(v.Left)
		if !ok {
			return nil, false
		}
		r, ok := dnf(v.Right)
		if !ok {
			return nil, false
		}
		if len(l)+len(r) > MaxBranches {
			return nil, false
		}
		return append(l, r...), true
	default:
		return [][]stmt.Expr{{e}}, true
	}
}
