package shcond

import (
	"strings"

	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

type Operator int

const (
	Equal = Operator(iota)
	In
	Range
)

func (op Operator) String() string {
	switch op {
	case Equal:
		return "EQUAL"
	case In:
		return "IN"
	case Range:
		return "RANGE"
	default:
		return "?"
	}
}

// ConditionValue restricts one sharding column of one logic table.
// Equal and In carry Values, Range carries Range.
type ConditionValue struct {
	Table    string
	Column   string
	Operator Operator
	Values   []shvalue.Value
	Range    shvalue.Range
}

func (cv ConditionValue) String() string {
	var sb strings.Builder
	sb.WriteString(cv.Table)
	sb.WriteByte('.')
	sb.WriteString(cv.Column)
	switch cv.Operator {
	case Range:
		sb.WriteString(" IN RANGE ")
		sb.WriteString(cv.Range.String())
	default:
		sb.WriteString(" ")
		sb.WriteString(cv.Operator.String())
		sb.WriteString(" (")
		for i, v := range cv.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// ShardingCondition is one OR branch of a statement (one row of a multi-row
// INSERT). Columns without an entry are unrestricted.
type ShardingCondition struct {
	Values []ConditionValue
}

// Lookup returns the restriction on table.column in this branch.
func (sc ShardingCondition) Lookup(table, column string) (ConditionValue, bool) {
	for _, v := range sc.Values {
		if v.Table == table && v.Column == column {
			return v, true
		}
	}
	return ConditionValue{}, false
}

func (sc ShardingCondition) ForTable(table string) []ConditionValue {
	var res []ConditionValue
	for _, v := range sc.Values {
		if v.Table == table {
			res = append(res, v)
		}
	}
	return res
}

// GeneratedKey is a key produced for an INSERT row that omitted its key column.
type GeneratedKey struct {
	Table  string
	Column string
	Row    int
	Value  any
}

// Conditions are the sharding conditions of one statement. Items holds at
// least one branch unless AlwaysFalse is set.
type Conditions struct {
	Items         []ShardingCondition
	AlwaysFalse   bool
	GeneratedKeys []GeneratedKey
}

// Unrestricted returns conditions that select every data node.
func Unrestricted() *Conditions {
	return &Conditions{Items: []ShardingCondition{{}}}
}

func (c *Conditions) String() string {
	if c.AlwaysFalse {
		return "FALSE"
	}
	parts := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if len(it.Values) == 0 {
			parts = append(parts, "TRUE")
			continue
		}
		vals := make([]string, len(it.Values))
		for i, v := range it.Values {
			vals[i] = v.String()
		}
		parts = append(parts, "("+strings.Join(vals, " AND ")+")")
	}
	return strings.Join(parts, " OR ")
}
