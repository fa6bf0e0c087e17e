package stmt

import (
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

// Expr is a bound WHERE expression node.
type Expr interface {
	iExpr()
	String() string
}

type ColumnRef struct {
	Qualifier string // table name or alias, may be empty
	Name      string
}

// Literal is a constant value.
type Literal struct {
	Value shvalue.Value
}

// Param is a placeholder bound by position (0-based) at execution time.
type Param struct {
	Index int
}

type CompareOp string

const (
	OpEq  = CompareOp("=")
	OpNe  = CompareOp("!=")
	OpLt  = CompareOp("<")
	OpLe  = CompareOp("<=")
	OpGt  = CompareOp(">")
	OpGe  = CompareOp(">=")
	OpNsE = CompareOp("<=>")
)

// Flip returns the operator for swapped operands: a < b iff b > a.
func (op CompareOp) Flip() CompareOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

type Comparison struct {
	Op          CompareOp
	Left, Right Expr
}

type InList struct {
	Left   Expr
	Values []Expr
	Not    bool
}

type Between struct {
	Left     Expr
	From, To Expr
	Not      bool
}

type And struct {
	Left, Right Expr
}

type Or struct {
	Left, Right Expr
}

type Not struct {
	Expr Expr
}

type SubQuery struct {
	Text string
}

// Opaque is any expression the router does not interpret, e.g. a function call.
type Opaque struct {
	Text string
}

func (*ColumnRef) iExpr()  {}
func (*Literal) iExpr()    {}
func (*Param) iExpr()      {}
func (*Comparison) iExpr() {}
func (*InList) iExpr()     {}
func (*Between) iExpr()    {}
func (*And) iExpr()        {}
func (*Or) iExpr()         {}
func (*Not) iExpr()        {}
func (*SubQuery) iExpr()   {}
func (*Opaque) iExpr()     {}

func (e *ColumnRef) String() string {
	if e.Qualifier == "" {
		return e.Name
	}
	return e.Qualifier + "." + e.Name
}

func (e *Literal) String() string {
	if e.Value.Kind() == shvalue.KindString {
		return "'" + e.Value.String() + "'"
	}
	return e.Value.String()
}

func (e *Param) String() string { return fmt.Sprintf("$%d", e.Index+1) }

func (e *Comparison) String() string {
	return e.Left.String() + " " + string(e.Op) + " " + e.Right.String()
}

func (e *InList) String() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = v.String()
	}
	op := " IN ("
	if e.Not {
		op = " NOT IN ("
	}
	return e.Left.String() + op + strings.Join(parts, ", ") + ")"
}

func (e *Between) String() string {
	op := " BETWEEN "
	if e.Not {
		op = " NOT BETWEEN "
	}
	return e.Left.String() + op + e.From.String() + " AND " + e.To.String()
}

func (e *And) String() string { return "(" + e.Left.String() + " AND " + e.Right.String() + ")" }
func (e *Or) String() string  { return "(" + e.Left.String() + " OR " + e.Right.String() + ")" }
func (e *Not) String() string { return "NOT " + e.Expr.String() }

func (e *SubQuery) String() string { return "(" + e.Text + ")" }
func (e *Opaque) String() string   { return e.Text }

// Col, Lit, Eq and friends build expressions tersely.
func Col(qualifier, name string) *ColumnRef { return &ColumnRef{Qualifier: qualifier, Name: name} }

func Lit(v any) *Literal { return &Literal{Value: shvalue.MustFromAny(v)} }

func P(index int) *Param { return &Param{Index: index} }

func Cmp(op CompareOp, l, r Expr) *Comparison { return &Comparison{Op: op, Left: l, Right: r} }

func Eq(l, r Expr) *Comparison { return Cmp(OpEq, l, r) }

func In(l Expr, values ...Expr) *InList { return &InList{Left: l, Values: values} }

func AndOf(exprs ...Expr) Expr {
	var res Expr
	for _, e := range exprs {
		if res == nil {
			res = e
		} else {
			res = &And{Left: res, Right: e}
		}
	}
	return res
}

func OrOf(exprs ...Expr) Expr {
	var res Expr
	for _, e := range exprs {
		if res == nil {
			res = e
		} else {
			res = &Or{Left: res, Right: e}
		}
	}
	return res
}
