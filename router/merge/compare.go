package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/router/stmt"
)

func valueOf(v any) shvalue.Value {
	val, err := shvalue.FromAny(v)
	if err != nil {
		return shvalue.String(fmt.Sprint(v))
	}
	return val
}

// compareValues orders a and b for one sort item, honouring direction and
// the NULLS clause. By default NULL is the lowest value.
func compareValues(a, b any, item stmt.OrderItem) int {
	va, vb := valueOf(a), valueOf(b)
	an, bn := va.IsNull(), vb.IsNull()

	switch {
	case an && bn:
		return 0
	case an || bn:
		nullFirst := !item.Desc
		switch item.Nulls {
		case stmt.NullsFirst:
			nullFirst = true
		case stmt.NullsLast:
			nullFirst = false
		}
		if an == nullFirst {
			return -1
		}
		return 1
	}

	c := shvalue.Compare(va, vb)
	if item.Desc {
		return -c
	}
	return c
}

func compareRows(a, b []any, items []stmt.OrderItem) int {
	for _, it := range items {
		if c := compareValues(a[it.Index], b[it.Index], it); c != 0 {
			return c
		}
	}
	return 0
}

// groupKey renders the group columns of row so that numerically equal
// values of different kinds share a key.
func groupKey(row []any, items []stmt.OrderItem) string {
	var sb strings.Builder
	for _, it := range items {
		v := valueOf(row[it.Index])
		switch v.Kind() {
		case shvalue.KindInt, shvalue.KindUint, shvalue.KindFloat:
			if n, ok := v.Int64(); ok {
				sb.WriteString("n:" + strconv.FormatInt(n, 10))
			} else {
				f, _ := v.Float64()
				sb.WriteString("f:" + strconv.FormatFloat(f, 'g', -1, 64))
			}
		default:
			sb.WriteString(v.Key())
		}
		sb.WriteByte(0)
	}
	return sb.String()
}
