package stmt_test

import (
	"strings"
	"testing"

	"github.com/shardgate/shardgate/router/stmt"
	"github.com/stretchr/testify/assert"
)

func TestResolveQualifier(t *testing.T) {
	assert := assert.New(t)

	s := &stmt.Statement{
		Kind: stmt.Select,
		Tables: []stmt.TableRef{
			{Name: "t_order", Alias: "o"},
			{Name: "t_order_item"},
			{Name: "t_order", Alias: "o2"},
		},
	}

	assert.Equal("t_order", s.ResolveQualifier("o"))
	assert.Equal("t_order_item", s.ResolveQualifier("t_order_item"))
	assert.Equal("", s.ResolveQualifier("x"))
	assert.Equal([]string{"t_order", "t_order_item"}, s.TableNames())
}

func TestExprString(t *testing.T) {
	assert := assert.New(t)

	e := stmt.OrOf(
		stmt.AndOf(stmt.Eq(stmt.Col("o", "order_id"), stmt.P(0)), stmt.Cmp(stmt.OpGt, stmt.Col("", "user_id"), stmt.Lit(3))),
		stmt.In(stmt.Col("", "status"), stmt.Lit("new"), stmt.Lit("paid")),
	)
	assert.Equal("((o.order_id = $1 AND user_id > 3) OR status IN ('new', 'paid'))", e.String())
	assert.Equal(stmt.OpLt, stmt.OpGt.Flip())
	assert.Equal(stmt.OpEq, stmt.OpEq.Flip())
}

func TestSelectContext(t *testing.T) {
	assert := assert.New(t)

	sc := &stmt.SelectContext{
		GroupBy: []stmt.OrderItem{{Column: "user_id", Index: 0}},
		OrderBy: []stmt.OrderItem{{Column: "user_id", Index: 0}},
	}
	assert.True(sc.GroupByEqualsOrderBy())
	assert.True(sc.NeedsGrouping())

	sc.OrderBy[0].Desc = true
	assert.False(sc.GroupByEqualsOrderBy())

	p := &stmt.Pagination{Offset: 2, RowCount: 3, HasRowCount: true}
	n, ok := p.RowCountForShards()
	assert.True(ok)
	assert.Equal(int64(5), n)

	_, ok = (&stmt.Pagination{Offset: 2}).RowCountForShards()
	assert.False(ok)

	var nilPage *stmt.Pagination
	_, ok = nilPage.RowCountForShards()
	assert.False(ok)
}

func TestShardRowCount(t *testing.T) {
	assert := assert.New(t)

	page := &stmt.Pagination{Offset: 2, RowCount: 3, HasRowCount: true}
	amount := stmt.OrderItem{Column: "amount", Index: 0}
	count := stmt.OrderItem{Column: "c", Index: 1, Desc: true}
	countAgg := []stmt.Aggregation{{Kind: stmt.AggCount, Column: "*", Index: 1}}

	type tcase struct {
		name       string
		sc         *stmt.SelectContext
		pushedDown bool
		exp        int64
		ok         bool
	}

	for _, tt := range []tcase{
		{
			name: "plain order",
			sc:   &stmt.SelectContext{OrderBy: []stmt.OrderItem{amount}, Pagination: page},
			exp:  5,
			ok:   true,
		},
		{
			name: "no limit",
			sc:   &stmt.SelectContext{OrderBy: []stmt.OrderItem{amount}},
		},
		{
			name: "group by equals order by",
			sc: &stmt.SelectContext{
				GroupBy: []stmt.OrderItem{amount}, OrderBy: []stmt.OrderItem{amount},
				Aggregations: countAgg, Pagination: page,
			},
			exp: 5,
			ok:  true,
		},
		{
			name: "ordered by an aggregate",
			sc: &stmt.SelectContext{
				GroupBy: []stmt.OrderItem{amount}, OrderBy: []stmt.OrderItem{count},
				Aggregations: countAgg, Pagination: page,
			},
		},
		{
			name: "group order not pushed down",
			sc: &stmt.SelectContext{
				GroupBy: []stmt.OrderItem{amount}, Aggregations: countAgg, Pagination: page,
			},
		},
		{
			name: "group order pushed down",
			sc: &stmt.SelectContext{
				GroupBy: []stmt.OrderItem{amount}, Aggregations: countAgg, Pagination: page,
			},
			pushedDown: true,
			exp:        5,
			ok:         true,
		},
		{
			name: "distinct",
			sc:   &stmt.SelectContext{Distinct: true, OrderBy: []stmt.OrderItem{amount}, Pagination: page},
		},
		{
			name: "unresolved labels differ",
			sc: &stmt.SelectContext{
				GroupBy:    []stmt.OrderItem{{Column: "GROUP_BY_DERIVED_0", Index: -1}},
				OrderBy:    []stmt.OrderItem{{Column: "ORDER_BY_DERIVED_0", Index: -1}},
				Pagination: page,
			},
		},
	} {
		n, ok := tt.sc.ShardRowCount(tt.pushedDown)
		assert.Equal(tt.ok, ok, tt.name)
		assert.Equal(tt.exp, n, tt.name)
	}
}

func TestInsertColumnIndex(t *testing.T) {
	ic := &stmt.InsertContext{Table: "t_order", Columns: []string{"user_id", "ORDER_ID"}}
	assert.Equal(t, 1, ic.ColumnIndex("order_id", strings.ToLower))
	assert.Equal(t, -1, ic.ColumnIndex("order_id", func(s string) string { return s }))
	assert.Equal(t, -1, ic.ColumnIndex("status", strings.ToLower))
}
