package sqlbind

import (
	"strconv"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/router/stmt"
	"github.com/xwb1989/sqlparser"
)

type selectBinder struct {
	*binder
	sel     *sqlparser.Select
	visible int
	star    bool
	derived int
}

// selectContext describes how shard results of sel are merged. It reports
// whether derived projections were appended to sel.
func (b *binder) selectContext(sel *sqlparser.Select) (*stmt.SelectContext, bool, error) {
	sb := &selectBinder{binder: b, sel: sel, visible: len(sel.SelectExprs)}
	sc := &stmt.SelectContext{Distinct: sel.Distinct == sqlparser.DistinctStr}

	for _, se := range sel.SelectExprs {
		switch se.(type) {
		case *sqlparser.StarExpr:
			sb.star = true
		case *sqlparser.AliasedExpr:
		default:
			return nil, false, sgerror.Newf(sgerror.SG_UNSUPPORTED, "unsupported select expression %s", sqlparser.String(se))
		}
	}

	if err := sb.aggregations(sc); err != nil {
		return nil, false, err
	}

	for i, e := range sel.GroupBy {
		it, err := sb.item(e, GroupByPrefix+strconv.Itoa(i))
		if err != nil {
			return nil, false, err
		}
		sc.GroupBy = append(sc.GroupBy, it)
	}
	for i, o := range sel.OrderBy {
		it, err := sb.item(o.Expr, OrderByPrefix+strconv.Itoa(i))
		if err != nil {
			return nil, false, err
		}
		it.Desc = o.Direction == sqlparser.DescScr
		sc.OrderBy = append(sc.OrderBy, it)
	}

	p, err := b.pagination(sel.Limit)
	if err != nil {
		return nil, false, err
	}
	sc.Pagination = p

	sc.DerivedColumns = sb.derived
	if !sb.star {
		sc.VisibleColumns = sb.visible
		for _, se := range sel.SelectExprs {
			sc.Columns = append(sc.Columns, label(se.(*sqlparser.AliasedExpr)))
		}
	}
	return sc, sb.derived > 0, nil
}

func (sb *selectBinder) aggregations(sc *stmt.SelectContext) error {
	avgs := 0
	for i := 0; i < sb.visible; i++ {
		ae, ok := sb.sel.SelectExprs[i].(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		if _, ok := ae.Expr.(*sqlparser.GroupConcatExpr); ok {
			return sgerror.New(sgerror.SG_UNSUPPORTED, "aggregate group_concat cannot be merged")
		}
		f, ok := ae.Expr.(*sqlparser.FuncExpr)
		if !ok || !f.IsAggregate() {
			continue
		}
		kind, ok := aggKind(f.Name.Lowered())
		if !ok {
			return sgerror.Newf(sgerror.SG_UNSUPPORTED, "aggregate %s cannot be merged", f.Name.String())
		}
		if sb.star {
			return sgerror.New(sgerror.SG_UNSUPPORTED, "aggregates next to * cannot be merged")
		}

		agg := stmt.Aggregation{
			Kind:     kind,
			Column:   sqlparser.String(f.Exprs),
			Index:    i,
			Distinct: f.Distinct,
		}
		if kind == stmt.AggAvg {
			n := strconv.Itoa(avgs)
			avgs++
			agg.SumIndex = sb.derive(AvgSumPrefix+n, &sqlparser.FuncExpr{Name: sqlparser.NewColIdent("sum"), Distinct: f.Distinct, Exprs: f.Exprs})
			agg.CountIndex = sb.derive(AvgCountPrefix+n, &sqlparser.FuncExpr{Name: sqlparser.NewColIdent("count"), Distinct: f.Distinct, Exprs: f.Exprs})
		}
		sc.Aggregations = append(sc.Aggregations, agg)
	}
	return nil
}

// derive returns the position of the projection labelled alias, appending
// e under that alias when there is none.
func (sb *selectBinder) derive(alias string, e sqlparser.Expr) int {
	for i, se := range sb.sel.SelectExprs {
		if ae, ok := se.(*sqlparser.AliasedExpr); ok && ae.As.EqualString(alias) {
			return sb.position(i)
		}
	}
	sb.sel.SelectExprs = append(sb.sel.SelectExprs, aliasOf(e, alias))
	sb.derived++
	return sb.position(len(sb.sel.SelectExprs) - 1)
}

// position maps a projection number onto a result column, or -1 once a star
// makes the width unknown.
func (sb *selectBinder) position(i int) int {
	if sb.star {
		return -1
	}
	return i
}

// item finds e among the projections, deriving it under alias otherwise.
func (sb *selectBinder) item(e sqlparser.Expr, alias string) (stmt.OrderItem, error) {
	if v, ok := e.(*sqlparser.SQLVal); ok && v.Type == sqlparser.IntVal {
		n, err := strconv.Atoi(string(v.Val))
		if err != nil || n < 1 || n > sb.visible || sb.star {
			return stmt.OrderItem{}, sgerror.Newf(sgerror.SG_UNSUPPORTED, "unsupported column position %s", string(v.Val))
		}
		ae := sb.sel.SelectExprs[n-1].(*sqlparser.AliasedExpr)
		return stmt.OrderItem{Column: label(ae), Index: n - 1}, nil
	}

	for i, se := range sb.sel.SelectExprs {
		ae, ok := se.(*sqlparser.AliasedExpr)
		if !ok || !matches(e, ae) {
			continue
		}
		if sb.star {
			if ae.As.IsEmpty() {
				// only an alias identifies the column next to *
				break
			}
			return stmt.OrderItem{Column: label(ae), Index: -1}, nil
		}
		return stmt.OrderItem{Column: label(ae), Index: i}, nil
	}

	idx := sb.derive(alias, e)
	return stmt.OrderItem{Column: alias, Index: idx}, nil
}

func matches(e sqlparser.Expr, ae *sqlparser.AliasedExpr) bool {
	if c, ok := e.(*sqlparser.ColName); ok {
		if c.Qualifier.IsEmpty() && !ae.As.IsEmpty() && ae.As.Equal(c.Name) {
			return true
		}
		if pc, ok := ae.Expr.(*sqlparser.ColName); ok && pc.Name.Equal(c.Name) {
			return c.Qualifier.IsEmpty() || pc.Qualifier.IsEmpty() || c.Qualifier.Name.String() == pc.Qualifier.Name.String()
		}
	}
	return sqlparser.String(e) == sqlparser.String(ae.Expr)
}
