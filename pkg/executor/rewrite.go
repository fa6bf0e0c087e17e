package executor

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sqlbind"
	"github.com/shardgate/shardgate/router/rfqn"
	"github.com/shardgate/shardgate/router/route"
	"github.com/shardgate/shardgate/router/stmt"
	"github.com/xwb1989/sqlparser"
)

// Rewriter produces the SQL of one route unit: logic tables become actual
// tables, generated keys are added to INSERT rows, and LIMIT is widened or
// dropped when results are merged.
type Rewriter struct {
	Normalize rfqn.Normalizer
	// GroupOrderPushedDown must match the merge engine setting of the same name.
	GroupOrderPushedDown bool
}

func (rw Rewriter) norm(name string) string {
	if rw.Normalize == nil {
		return name
	}
	return rw.Normalize(name)
}

func (rw Rewriter) actual(u route.RouteUnit, name string) (string, bool) {
	return u.ActualTable(rw.norm(name))
}

// Rewrite returns the query text for u and the arguments it takes.
func (rw Rewriter) Rewrite(st *stmt.Statement, rc *route.RouteContext, u route.RouteUnit, params []any) (string, []any, error) {
	if st.Kind == stmt.DDL || st.Kind == stmt.Other {
		return rw.renameText(st.SQL, u), params, nil
	}

	tree, err := sqlparser.Parse(st.SQL)
	if err != nil {
		return "", nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "parse %q: %v", st.SQL, err)
	}
	rw.renameTables(tree, u)

	switch node := tree.(type) {
	case *sqlparser.Select:
		if rc.NeedMerge && st.Select != nil && node.Limit != nil {
			if n, ok := st.Select.ShardRowCount(rw.GroupOrderPushedDown); ok {
				node.Limit = &sqlparser.Limit{Rowcount: sqlparser.NewIntVal([]byte(strconv.FormatInt(n, 10)))}
			} else {
				node.Limit = nil
			}
		}
	case *sqlparser.Insert:
		if err := rw.insertRows(node, rc, u); err != nil {
			return "", nil, err
		}
	}
	return sqlbind.BindArgs(sqlparser.String(tree), params)
}

func (rw Rewriter) renameTables(tree sqlparser.Statement, u route.RouteUnit) {
	rename := func(t *sqlparser.TableName) {
		if a, ok := rw.actual(u, t.Name.String()); ok {
			t.Name = sqlparser.NewTableIdent(a)
		}
	}
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		switch n := n.(type) {
		case *sqlparser.AliasedTableExpr:
			if t, ok := n.Expr.(sqlparser.TableName); ok {
				rename(&t)
				n.Expr = t
			}
		case *sqlparser.ColName:
			rename(&n.Qualifier)
		case *sqlparser.StarExpr:
			rename(&n.TableName)
		case *sqlparser.Insert:
			rename(&n.Table)
		case *sqlparser.Delete:
			for i := range n.Targets {
				rename(&n.Targets[i])
			}
		}
		return true, nil
	}, tree)
}

func (rw Rewriter) insertRows(node *sqlparser.Insert, rc *route.RouteContext, u route.RouteUnit) error {
	values, ok := node.Rows.(sqlparser.Values)
	if !ok {
		if len(rc.GeneratedKeys) > 0 {
			return sgerror.New(sgerror.SG_UNSUPPORTED, "keys cannot be generated for INSERT ... SELECT")
		}
		return nil
	}

	if len(rc.GeneratedKeys) > 0 {
		if len(node.Columns) == 0 {
			return sgerror.New(sgerror.SG_UNSUPPORTED, "keys cannot be generated for INSERT without a column list")
		}
		node.Columns = append(node.Columns, sqlparser.NewColIdent(rc.GeneratedKeys[0].Column))
		for _, gk := range rc.GeneratedKeys {
			if gk.Row >= len(values) {
				return sgerror.Newf(sgerror.SG_UNEXPECTED, "generated key for missing row %d", gk.Row)
			}
			values[gk.Row] = append(values[gk.Row], keyLiteral(gk.Value))
		}
	}

	if rows := rc.RowsOf(u); rows != nil {
		kept := make(sqlparser.Values, 0, len(rows))
		for _, i := range rows {
			kept = append(kept, values[i])
		}
		values = kept
	}
	node.Rows = values
	return nil
}

func keyLiteral(v any) sqlparser.Expr {
	switch v := v.(type) {
	case int64:
		return sqlparser.NewIntVal([]byte(strconv.FormatInt(v, 10)))
	case uint64:
		return sqlparser.NewIntVal([]byte(strconv.FormatUint(v, 10)))
	case string:
		return sqlparser.NewStrVal([]byte(v))
	default:
		return sqlparser.NewStrVal([]byte(fmt.Sprint(v)))
	}
}

// renameText replaces logic table names in statements the parser cannot
// render back, such as ALTER TABLE.
func (rw Rewriter) renameText(sql string, u route.RouteUnit) string {
	for _, tm := range u.TableMappers {
		if tm.Logic == tm.Actual {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tm.Logic) + `\b`)
		sql = re.ReplaceAllLiteralString(sql, tm.Actual)
	}
	return sql
}
