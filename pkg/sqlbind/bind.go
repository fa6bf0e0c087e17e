// Package sqlbind turns MySQL text into the statement model the router works
// on. It also adds the derived projections the merger relies on: SUM and
// COUNT behind every AVG, and ORDER BY or GROUP BY expressions that are not
// selected.
package sqlbind

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/stmt"
	"github.com/xwb1989/sqlparser"
)

const (
	AvgSumPrefix   = "AVG_DERIVED_SUM_"
	AvgCountPrefix = "AVG_DERIVED_COUNT_"
	OrderByPrefix  = "ORDER_BY_DERIVED_"
	GroupByPrefix  = "GROUP_BY_DERIVED_"
)

// sqlparser renders positional arguments as :v1, :v2, ...
var posArg = regexp.MustCompile(`:v\d+`)

// BindArgs turns rendered positional arguments back into question marks and
// lists the params they refer to, in order of appearance. Rewriting may drop
// or reorder arguments, so the list can differ from params.
func BindArgs(rendered string, params []any) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
		last int
	)
	for _, m := range posArg.FindAllStringIndex(rendered, -1) {
		n, err := strconv.Atoi(rendered[m[0]+2 : m[1]])
		if err != nil || n < 1 || n > len(params) {
			return "", nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "argument %s is not bound", rendered[m[0]:m[1]])
		}
		sb.WriteString(rendered[last:m[0]])
		sb.WriteByte('?')
		args = append(args, params[n-1])
		last = m[1]
	}
	sb.WriteString(rendered[last:])
	return sb.String(), args, nil
}

// Bind parses sql. Params are needed only to resolve LIMIT and OFFSET given
// as placeholders.
func Bind(sql string, params []any) (*stmt.Statement, error) {
	tree, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "parse %q: %v", sql, err)
	}

	b := &binder{params: params}
	st := &stmt.Statement{SQL: sql}

	switch node := tree.(type) {
	case *sqlparser.Select:
		st.Kind = stmt.Select
		b.collectTables(st, node)
		st.Where = b.where(st, node.Where)
		sc, rewritten, err := b.selectContext(node)
		if err != nil {
			return nil, err
		}
		st.Select = sc
		if rewritten {
			// keeps :vN so that derived projections do not renumber arguments
			st.SQL = sqlparser.String(node)
		}
	case *sqlparser.Insert:
		st.Kind = stmt.Insert
		st.Tables = append(st.Tables, tableRef(node.Table, sqlparser.TableIdent{}))
		b.collectTables(st, node.Rows)
		ic := &stmt.InsertContext{Table: node.Table.Name.String()}
		for _, c := range node.Columns {
			ic.Columns = append(ic.Columns, c.String())
		}
		if values, ok := node.Rows.(sqlparser.Values); ok {
			for _, tuple := range values {
				row := make([]stmt.Expr, len(tuple))
				for i, e := range tuple {
					row[i] = b.expr(st, e)
				}
				ic.Rows = append(ic.Rows, row)
			}
		}
		st.Insert = ic
	case *sqlparser.Update:
		st.Kind = stmt.Update
		b.collectTables(st, node)
		st.Where = b.where(st, node.Where)
	case *sqlparser.Delete:
		st.Kind = stmt.Delete
		b.collectTables(st, node)
		st.Where = b.where(st, node.Where)
	case *sqlparser.DDL:
		st.Kind = stmt.DDL
		for _, t := range []sqlparser.TableName{node.Table, node.NewName} {
			if !t.IsEmpty() {
				st.Tables = append(st.Tables, tableRef(t, sqlparser.TableIdent{}))
			}
		}
	case *sqlparser.Union, *sqlparser.ParenSelect:
		return nil, sgerror.New(sgerror.SG_UNSUPPORTED, "UNION is not supported")
	default:
		st.Kind = stmt.Other
	}

	b.countParams(tree)
	st.ParamCount = b.maxParam
	sglog.Zero.Debug().
		Str("kind", st.Kind.String()).
		Strs("tables", st.TableNames()).
		Int("params", st.ParamCount).
		Msg("bound statement")
	return st, nil
}

type binder struct {
	params   []any
	maxParam int
}

func tableRef(t sqlparser.TableName, alias sqlparser.TableIdent) stmt.TableRef {
	return stmt.TableRef{
		Schema: t.Qualifier.String(),
		Name:   t.Name.String(),
		Alias:  alias.String(),
	}
}

func (b *binder) collectTables(st *stmt.Statement, node sqlparser.SQLNode) {
	if node == nil {
		return
	}
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		switch n := n.(type) {
		case *sqlparser.AliasedTableExpr:
			if t, ok := n.Expr.(sqlparser.TableName); ok {
				st.Tables = append(st.Tables, tableRef(t, n.As))
			}
		case *sqlparser.Subquery:
			st.HasSubQuery = true
		}
		return true, nil
	}, node)
}

func (b *binder) where(st *stmt.Statement, w *sqlparser.Where) stmt.Expr {
	if w == nil || w.Expr == nil {
		return nil
	}
	return b.expr(st, w.Expr)
}

var compareOps = map[string]stmt.CompareOp{
	sqlparser.EqualStr:         stmt.OpEq,
	sqlparser.NotEqualStr:      stmt.OpNe,
	sqlparser.LessThanStr:      stmt.OpLt,
	sqlparser.LessEqualStr:     stmt.OpLe,
	sqlparser.GreaterThanStr:   stmt.OpGt,
	sqlparser.GreaterEqualStr:  stmt.OpGe,
	sqlparser.NullSafeEqualStr: stmt.OpNsE,
}

func (b *binder) expr(st *stmt.Statement, e sqlparser.Expr) stmt.Expr {
	switch e := e.(type) {
	case *sqlparser.AndExpr:
		return &stmt.And{Left: b.expr(st, e.Left), Right: b.expr(st, e.Right)}
	case *sqlparser.OrExpr:
		return &stmt.Or{Left: b.expr(st, e.Left), Right: b.expr(st, e.Right)}
	case *sqlparser.NotExpr:
		return &stmt.Not{Expr: b.expr(st, e.Expr)}
	case *sqlparser.ParenExpr:
		return b.expr(st, e.Expr)
	case *sqlparser.ComparisonExpr:
		if op, ok := compareOps[e.Operator]; ok {
			return &stmt.Comparison{Op: op, Left: b.expr(st, e.Left), Right: b.expr(st, e.Right)}
		}
		if e.Operator == sqlparser.InStr || e.Operator == sqlparser.NotInStr {
			if tuple, ok := e.Right.(sqlparser.ValTuple); ok {
				in := &stmt.InList{Left: b.expr(st, e.Left), Not: e.Operator == sqlparser.NotInStr}
				for _, v := range tuple {
					in.Values = append(in.Values, b.expr(st, v))
				}
				return in
			}
		}
		return &stmt.Opaque{Text: sqlparser.String(e)}
	case *sqlparser.RangeCond:
		return &stmt.Between{
			Left: b.expr(st, e.Left),
			From: b.expr(st, e.From),
			To:   b.expr(st, e.To),
			Not:  e.Operator == sqlparser.NotBetweenStr,
		}
	case *sqlparser.ColName:
		return &stmt.ColumnRef{Qualifier: e.Qualifier.Name.String(), Name: e.Name.String()}
	case *sqlparser.NullVal:
		return &stmt.Literal{Value: shvalue.Null}
	case sqlparser.BoolVal:
		return &stmt.Literal{Value: shvalue.Bool(bool(e))}
	case *sqlparser.SQLVal:
		if x := b.sqlVal(e); x != nil {
			return x
		}
	case *sqlparser.Subquery:
		st.HasSubQuery = true
		return &stmt.SubQuery{Text: sqlparser.String(e.Select)}
	}
	return &stmt.Opaque{Text: sqlparser.String(e)}
}

func (b *binder) countParams(tree sqlparser.SQLNode) {
	_ = sqlparser.Walk(func(n sqlparser.SQLNode) (bool, error) {
		if v, ok := n.(*sqlparser.SQLVal); ok && v.Type == sqlparser.ValArg {
			b.param(v)
		}
		return true, nil
	}, tree)
}

func (b *binder) param(v *sqlparser.SQLVal) (int, bool) {
	s := string(v.Val)
	if !strings.HasPrefix(s, ":v") {
		return 0, false
	}
	n, err := strconv.Atoi(s[2:])
	if err != nil || n < 1 {
		return 0, false
	}
	if n > b.maxParam {
		b.maxParam = n
	}
	return n - 1, true
}

func (b *binder) sqlVal(v *sqlparser.SQLVal) stmt.Expr {
	switch v.Type {
	case sqlparser.StrVal:
		return &stmt.Literal{Value: shvalue.String(string(v.Val))}
	case sqlparser.IntVal:
		if n, err := strconv.ParseInt(string(v.Val), 10, 64); err == nil {
			return &stmt.Literal{Value: shvalue.Int(n)}
		}
		if n, err := strconv.ParseUint(string(v.Val), 10, 64); err == nil {
			return &stmt.Literal{Value: shvalue.Uint(n)}
		}
	case sqlparser.FloatVal:
		if f, err := strconv.ParseFloat(string(v.Val), 64); err == nil {
			return &stmt.Literal{Value: shvalue.Float(f)}
		}
	case sqlparser.ValArg:
		if idx, ok := b.param(v); ok {
			return &stmt.Param{Index: idx}
		}
	}
	return nil
}

// intArg evaluates a LIMIT or OFFSET operand.
func (b *binder) intArg(e sqlparser.Expr) (int64, error) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok {
		return 0, sgerror.Newf(sgerror.SG_UNSUPPORTED, "unsupported limit expression %s", sqlparser.String(e))
	}
	var val shvalue.Value
	switch x := b.sqlVal(v).(type) {
	case *stmt.Literal:
		val = x.Value
	case *stmt.Param:
		if x.Index >= len(b.params) {
			return 0, sgerror.Newf(sgerror.SG_UNSUPPORTED, "limit parameter %d is not bound", x.Index+1)
		}
		pv, err := shvalue.FromAny(b.params[x.Index])
		if err != nil {
			return 0, sgerror.Newf(sgerror.SG_UNSUPPORTED, "limit parameter %d: %v", x.Index+1, err)
		}
		val = pv
	}
	n, ok := val.Int64()
	if !ok || n < 0 {
		return 0, sgerror.Newf(sgerror.SG_UNSUPPORTED, "invalid limit value %s", sqlparser.String(e))
	}
	return n, nil
}

func (b *binder) pagination(l *sqlparser.Limit) (*stmt.Pagination, error) {
	if l == nil {
		return nil, nil
	}
	p := &stmt.Pagination{}
	if l.Offset != nil {
		n, err := b.intArg(l.Offset)
		if err != nil {
			return nil, err
		}
		p.Offset = n
	}
	if l.Rowcount != nil {
		n, err := b.intArg(l.Rowcount)
		if err != nil {
			return nil, err
		}
		p.RowCount = n
		p.HasRowCount = true
	}
	return p, nil
}

func aggKind(name string) (stmt.AggKind, bool) {
	switch name {
	case "count":
		return stmt.AggCount, true
	case "sum":
		return stmt.AggSum, true
	case "min":
		return stmt.AggMin, true
	case "max":
		return stmt.AggMax, true
	case "avg":
		return stmt.AggAvg, true
	default:
		return 0, false
	}
}

func label(ae *sqlparser.AliasedExpr) string {
	if !ae.As.IsEmpty() {
		return ae.As.String()
	}
	if c, ok := ae.Expr.(*sqlparser.ColName); ok {
		return c.Name.String()
	}
	return sqlparser.String(ae.Expr)
}

func aliasOf(e sqlparser.Expr, alias string) *sqlparser.AliasedExpr {
	return &sqlparser.AliasedExpr{Expr: e, As: sqlparser.NewColIdent(alias)}
}
