package sqlbind_test

import (
	"testing"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sqlbind"
	"github.com/shardgate/shardgate/router/stmt"
	"github.com/stretchr/testify/assert"
)

func TestBindWhere(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query  string
		kind   stmt.Kind
		tables []stmt.TableRef
		where  stmt.Expr
		params int
	}

	for _, tt := range []tcase{
		{
			query:  "select * from t_order where order_id = 10 and user_id in (1, 2)",
			kind:   stmt.Select,
			tables: []stmt.TableRef{{Name: "t_order"}},
			where: stmt.AndOf(
				stmt.Eq(stmt.Col("", "order_id"), stmt.Lit(10)),
				stmt.In(stmt.Col("", "user_id"), stmt.Lit(1), stmt.Lit(2)),
			),
		},
		{
			query: "select o.status from t_order o join t_order_item i on o.order_id = i.order_id where o.order_id = ? and i.price between ? and ?",
			kind:  stmt.Select,
			tables: []stmt.TableRef{
				{Name: "t_order", Alias: "o"},
				{Name: "t_order_item", Alias: "i"},
			},
			where: stmt.AndOf(
				stmt.Eq(stmt.Col("o", "order_id"), stmt.P(0)),
				&stmt.Between{Left: stmt.Col("i", "price"), From: stmt.P(1), To: stmt.P(2)},
			),
			params: 3,
		},
		{
			query:  "select * from t_order where (order_id = 1 or order_id > 5.5) and not status = 'x'",
			kind:   stmt.Select,
			tables: []stmt.TableRef{{Name: "t_order"}},
			where: stmt.AndOf(
				stmt.OrOf(
					stmt.Eq(stmt.Col("", "order_id"), stmt.Lit(1)),
					stmt.Cmp(stmt.OpGt, stmt.Col("", "order_id"), stmt.Lit(5.5)),
				),
				&stmt.Not{Expr: stmt.Eq(stmt.Col("", "status"), stmt.Lit("x"))},
			),
		},
		{
			query:  "update t_order set status = ? where order_id = ?",
			kind:   stmt.Update,
			tables: []stmt.TableRef{{Name: "t_order"}},
			where:  stmt.Eq(stmt.Col("", "order_id"), stmt.P(1)),
			params: 2,
		},
		{
			query:  "delete from t_order where order_id not in (1, 2) and user_id <=> null",
			kind:   stmt.Delete,
			tables: []stmt.TableRef{{Name: "t_order"}},
			where: stmt.AndOf(
				&stmt.InList{Left: stmt.Col("", "order_id"), Values: []stmt.Expr{stmt.Lit(1), stmt.Lit(2)}, Not: true},
				stmt.Cmp(stmt.OpNsE, stmt.Col("", "user_id"), stmt.Lit(nil)),
			),
		},
		{
			query:  "select * from t_order where order_id = -3",
			kind:   stmt.Select,
			tables: []stmt.TableRef{{Name: "t_order"}},
			where:  stmt.Eq(stmt.Col("", "order_id"), stmt.Lit(-3)),
		},
	} {
		st, err := sqlbind.Bind(tt.query, nil)
		assert.NoError(err, tt.query)
		assert.Equal(tt.kind, st.Kind, tt.query)
		assert.Equal(tt.tables, st.Tables, tt.query)
		assert.Equal(tt.where, st.Where, tt.query)
		assert.Equal(tt.params, st.ParamCount, tt.query)
		assert.False(st.HasSubQuery, tt.query)
	}
}

func TestBindSubQuery(t *testing.T) {
	assert := assert.New(t)

	st, err := sqlbind.Bind("select * from t_order where user_id in (select id from t_user)", nil)
	assert.NoError(err)

	assert.True(st.HasSubQuery)
	assert.Equal([]string{"t_order", "t_user"}, st.TableNames())
	_, opaque := st.Where.(*stmt.Opaque)
	assert.True(opaque)
}

func TestBindInsert(t *testing.T) {
	assert := assert.New(t)

	st, err := sqlbind.Bind("insert into t_order (user_id, status) values (?, 'a'), (3, 'b')", nil)
	assert.NoError(err)

	assert.Equal(stmt.Insert, st.Kind)
	assert.Equal([]string{"t_order"}, st.TableNames())
	assert.Equal(1, st.ParamCount)
	assert.Equal(&stmt.InsertContext{
		Table:   "t_order",
		Columns: []string{"user_id", "status"},
		Rows: [][]stmt.Expr{
			{stmt.P(0), stmt.Lit("a")},
			{stmt.Lit(3), stmt.Lit("b")},
		},
	}, st.Insert)
}

func TestBindSelectContext(t *testing.T) {
	assert := assert.New(t)

	st, err := sqlbind.Bind("select user_id, count(*), avg(price) from t_order group by user_id order by user_id desc limit 2, 5", nil)
	assert.NoError(err)

	assert.Equal(&stmt.SelectContext{
		Columns:        []string{"user_id", "count(*)", "avg(price)", "AVG_DERIVED_SUM_0", "AVG_DERIVED_COUNT_0"},
		VisibleColumns: 3,
		DerivedColumns: 2,
		GroupBy:        []stmt.OrderItem{{Column: "user_id", Index: 0}},
		OrderBy:        []stmt.OrderItem{{Column: "user_id", Index: 0, Desc: true}},
		Aggregations: []stmt.Aggregation{
			{Kind: stmt.AggCount, Column: "*", Index: 1},
			{Kind: stmt.AggAvg, Column: "price", Index: 2, SumIndex: 3, CountIndex: 4},
		},
		Pagination: &stmt.Pagination{Offset: 2, RowCount: 5, HasRowCount: true},
	}, st.Select)
	assert.Contains(st.SQL, "sum(price) as AVG_DERIVED_SUM_0, count(price) as AVG_DERIVED_COUNT_0")
}

func TestBindOrderItems(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query   string
		params  []any
		columns []string
		orderBy []stmt.OrderItem
		derived int
		sql     string
		page    *stmt.Pagination
	}

	for _, tt := range []tcase{
		{
			query:   "select order_id from t_order order by create_time",
			columns: []string{"order_id", "ORDER_BY_DERIVED_0"},
			orderBy: []stmt.OrderItem{{Column: "ORDER_BY_DERIVED_0", Index: 1}},
			derived: 1,
			sql:     "create_time as ORDER_BY_DERIVED_0",
		},
		{
			query:   "select user_id, order_id as oid from t_order order by 2, oid desc",
			columns: []string{"user_id", "oid"},
			orderBy: []stmt.OrderItem{{Column: "oid", Index: 1}, {Column: "oid", Index: 1, Desc: true}},
		},
		{
			query:   "select o.order_id from t_order o order by order_id",
			columns: []string{"order_id"},
			orderBy: []stmt.OrderItem{{Column: "order_id", Index: 0}},
		},
		{
			query:   "select * from t_order order by order_id limit ?",
			params:  []any{int64(10)},
			orderBy: []stmt.OrderItem{{Column: "ORDER_BY_DERIVED_0", Index: -1}},
			derived: 1,
			sql:     "order_id as ORDER_BY_DERIVED_0 from t_order order by order_id asc limit :v1",
			page:    &stmt.Pagination{RowCount: 10, HasRowCount: true},
		},
	} {
		st, err := sqlbind.Bind(tt.query, tt.params)
		assert.NoError(err, tt.query)

		sc := st.Select
		assert.Equal(tt.columns, sc.Columns, tt.query)
		assert.Equal(tt.orderBy, sc.OrderBy, tt.query)
		assert.Equal(tt.derived, sc.DerivedColumns, tt.query)
		assert.Equal(tt.page, sc.Pagination, tt.query)
		if tt.sql == "" {
			assert.Equal(tt.query, st.SQL, tt.query)
		} else {
			assert.Contains(st.SQL, tt.sql, tt.query)
		}
	}
}

func TestBindDistinct(t *testing.T) {
	assert := assert.New(t)

	st, err := sqlbind.Bind("select distinct city from t_user", nil)
	assert.NoError(err)
	assert.True(st.Select.Distinct)
	assert.True(st.Select.NeedsGrouping())
}

func TestBindDDL(t *testing.T) {
	assert := assert.New(t)

	for _, query := range []string{
		"create table t_order (order_id bigint, user_id int)",
		"alter table t_order add column status varchar(10)",
		"drop table t_order",
	} {
		st, err := sqlbind.Bind(query, nil)
		assert.NoError(err, query)
		assert.Equal(stmt.DDL, st.Kind, query)
		assert.Equal([]string{"t_order"}, st.TableNames(), query)
	}
}

func TestBindOther(t *testing.T) {
	assert := assert.New(t)

	st, err := sqlbind.Bind("set autocommit = 1", nil)
	assert.NoError(err)
	assert.Equal(stmt.Other, st.Kind)
	assert.Empty(st.Tables)
}

func TestBindErrors(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		query  string
		params []any
	}

	for _, tt := range []tcase{
		{query: "selec * from t"},
		{query: "select a from t union select a from u"},
		{query: "select group_concat(a) from t"},
		{query: "select *, count(*) from t"},
		{query: "select a from t order by 3"},
		{query: "select a from t limit ?"},
		{query: "select a from t limit ?", params: []any{"many"}},
	} {
		_, err := sqlbind.Bind(tt.query, tt.params)
		assert.True(sgerror.HasCode(err, sgerror.SG_UNSUPPORTED), tt.query)
	}
}

func TestBindArgs(t *testing.T) {
	assert := assert.New(t)

	sql, args, err := sqlbind.BindArgs("insert into t(a, b) values (:v3, :v4), (:v1, 7)", []any{1, "x", 3, "y"})
	assert.NoError(err)
	assert.Equal("insert into t(a, b) values (?, ?), (?, 7)", sql)
	assert.Equal([]any{3, "y", 1}, args)

	_, _, err = sqlbind.BindArgs("select a from t where b = :v2", []any{1})
	assert.Error(err)
}
