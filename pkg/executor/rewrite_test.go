package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardgate/shardgate/pkg/executor"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/sqlbind"
	"github.com/shardgate/shardgate/router/route"
)

func unit(ds string, pairs ...string) route.RouteUnit {
	u := route.RouteUnit{DataSourceName: ds}
	for i := 0; i+1 < len(pairs); i += 2 {
		u.TableMappers = append(u.TableMappers, route.TableMapper{Logic: pairs[i], Actual: pairs[i+1]})
	}
	return u
}

func TestRewrite(t *testing.T) {
	assert := assert.New(t)

	one := unit("ds1", "t_order", "t_order_1", "t_order_item", "t_order_item_1")
	other := unit("ds0", "t_order", "t_order_0", "t_order_item", "t_order_item_0")

	type tcase struct {
		query  string
		params []any
		units  []route.RouteUnit
		exp    string
		args   []any
	}

	for _, tt := range []tcase{
		{
			query:  "select o.order_id, i.item_id from t_order o join t_order_item i on o.order_id = i.order_id where o.order_id = ?",
			params: []any{int64(7)},
			units:  []route.RouteUnit{one},
			exp:    "select o.order_id, i.item_id from t_order_1 as o join t_order_item_1 as i on o.order_id = i.order_id where o.order_id = ?",
			args:   []any{int64(7)},
		},
		{
			query: "select t_order.order_id from t_order where t_order.user_id = 1",
			units: []route.RouteUnit{one},
			exp:   "select t_order_1.order_id from t_order_1 where t_order_1.user_id = 1",
		},
		{
			query: "select order_id from t_order order by order_id limit 2, 3",
			units: []route.RouteUnit{one},
			exp:   "select order_id from t_order_1 order by order_id asc limit 2, 3",
		},
		{
			query: "select order_id from t_order order by order_id limit 2, 3",
			units: []route.RouteUnit{one, other},
			exp:   "select order_id from t_order_1 order by order_id asc limit 5",
		},
		{
			query: "select amount, count(*) as c from t_order group by amount order by c desc limit 1",
			units: []route.RouteUnit{one, other},
			exp:   "select amount, count(*) as c from t_order_1 group by amount order by c desc",
		},
		{
			query: "select amount, count(*) as c from t_order group by amount order by amount asc limit 1, 2",
			units: []route.RouteUnit{one, other},
			exp:   "select amount, count(*) as c from t_order_1 group by amount order by amount asc limit 3",
		},
		{
			query: "select amount, count(*) as c from t_order group by amount order by c desc limit 1",
			units: []route.RouteUnit{one},
			exp:   "select amount, count(*) as c from t_order_1 group by amount order by c desc limit 1",
		},
		{
			query:  "update t_order set amount = ? where order_id = ?",
			params: []any{35, int64(3)},
			units:  []route.RouteUnit{one},
			exp:    "update t_order_1 set amount = ? where order_id = ?",
			args:   []any{35, int64(3)},
		},
		{
			query: "delete from t_order_item where order_id in (1, 3)",
			units: []route.RouteUnit{one},
			exp:   "delete from t_order_item_1 where order_id in (1, 3)",
		},
		{
			query: "alter table t_order add column status varchar(10)",
			units: []route.RouteUnit{one},
			exp:   "alter table t_order_1 add column status varchar(10)",
		},
	} {
		st, err := sqlbind.Bind(tt.query, tt.params)
		assert.NoError(err, tt.query)

		rc := route.NewRouteContext(route.SingleTable, tt.units)
		sql, args, err := executor.Rewriter{}.Rewrite(st, rc, tt.units[0], tt.params)
		assert.NoError(err, tt.query)
		assert.Equal(tt.exp, sql, tt.query)
		if tt.args == nil {
			assert.Empty(args, tt.query)
		} else {
			assert.Equal(tt.args, args, tt.query)
		}
	}
}

func TestRewriteInsertRows(t *testing.T) {
	assert := assert.New(t)

	ds0 := unit("ds0", "t_order", "t_order_0")
	ds1 := unit("ds1", "t_order", "t_order_1")

	st, err := sqlbind.Bind("insert into t_order (user_id, amount) values (1, ?), (2, 20)", []any{10})
	assert.NoError(err)

	rc := route.NewRouteContext(route.SingleTable, []route.RouteUnit{ds1, ds0})
	rc.GeneratedKeys = []shcond.GeneratedKey{
		{Table: "t_order", Column: "order_id", Row: 0, Value: int64(1)},
		{Table: "t_order", Column: "order_id", Row: 1, Value: int64(2)},
	}
	rc.InsertRows = map[string][]int{
		ds1.Key(): {0},
		ds0.Key(): {1},
	}

	rw := executor.Rewriter{}

	sql, args, err := rw.Rewrite(st, rc, ds1, []any{10})
	assert.NoError(err)
	assert.Equal("insert into t_order_1(user_id, amount, order_id) values (1, ?, 1)", sql)
	assert.Equal([]any{10}, args)

	sql, args, err = rw.Rewrite(st, rc, ds0, []any{10})
	assert.NoError(err)
	assert.Equal("insert into t_order_0(user_id, amount, order_id) values (2, 20, 2)", sql)
	assert.Empty(args)
}

func TestRewriteInsertWithoutColumns(t *testing.T) {
	assert := assert.New(t)

	u := unit("ds0", "t_order", "t_order_0")
	st, err := sqlbind.Bind("insert into t_order values (1, 10)", nil)
	assert.NoError(err)

	rc := route.NewRouteContext(route.SingleTable, []route.RouteUnit{u})
	rc.GeneratedKeys = []shcond.GeneratedKey{{Table: "t_order", Column: "order_id", Value: int64(1)}}

	_, _, err = executor.Rewriter{}.Rewrite(st, rc, u, nil)
	assert.True(sgerror.HasCode(err, sgerror.SG_UNSUPPORTED))
}
