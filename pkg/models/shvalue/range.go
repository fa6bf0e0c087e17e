package shvalue

import "strings"

// Bound is one end of a Range. An unset bound is unbounded.
type Bound struct {
	Value     Value
	Inclusive bool
	Set       bool
}

// Range is an interval over Values with optional ends.
type Range struct {
	Lower Bound
	Upper Bound
}

func All() Range { return Range{} }

func AtLeast(v Value) Range     { return Range{Lower: Bound{Value: v, Inclusive: true, Set: true}} }
func GreaterThan(v Value) Range { return Range{Lower: Bound{Value: v, Set: true}} }
func AtMost(v Value) Range      { return Range{Upper: Bound{Value: v, Inclusive: true, Set: true}} }
func LessThan(v Value) Range    { return Range{Upper: Bound{Value: v, Set: true}} }

// Closed returns [lo, hi].
func Closed(lo, hi Value) Range {
	return Range{
		Lower: Bound{Value: lo, Inclusive: true, Set: true},
		Upper: Bound{Value: hi, Inclusive: true, Set: true},
	}
}

// ClosedOpen returns [lo, hi).
func ClosedOpen(lo, hi Value) Range {
	return Range{
		Lower: Bound{Value: lo, Inclusive: true, Set: true},
		Upper: Bound{Value: hi, Set: true},
	}
}

func (r Range) HasLower() bool { return r.Lower.Set }
func (r Range) HasUpper() bool { return r.Upper.Set }

func (r Range) Contains(v Value) bool {
	if v.IsNull() {
		return false
	}
	if r.Lower.Set {
		c := Compare(v, r.Lower.Value)
		if c < 0 || (c == 0 && !r.Lower.Inclusive) {
			return false
		}
	}
	if r.Upper.Set {
		c := Compare(v, r.Upper.Value)
		if c > 0 || (c == 0 && !r.Upper.Inclusive) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no value can fall into r.
func (r Range) IsEmpty() bool {
	if !r.Lower.Set || !r.Upper.Set {
		return false
	}
	c := Compare(r.Lower.Value, r.Upper.Value)
	if c > 0 {
		return true
	}
	return c == 0 && !(r.Lower.Inclusive && r.Upper.Inclusive)
}

// Intersect returns the tightest range contained in both r and o.
func (r Range) Intersect(o Range) Range {
	res := r
	if o.Lower.Set {
		if !res.Lower.Set {
			res.Lower = o.Lower
		} else {
			c := Compare(o.Lower.Value, res.Lower.Value)
			if c > 0 || (c == 0 && !o.Lower.Inclusive) {
				res.Lower = o.Lower
			}
		}
	}
	if o.Upper.Set {
		if !res.Upper.Set {
			res.Upper = o.Upper
		} else {
			c := Compare(o.Upper.Value, res.Upper.Value)
			if c < 0 || (c == 0 && !o.Upper.Inclusive) {
				res.Upper = o.Upper
			}
		}
	}
	return res
}

// Overlaps reports whether r and o share at least one value.
func (r Range) Overlaps(o Range) bool {
	return !r.Intersect(o).IsEmpty()
}

func (r Range) String() string {
	var sb strings.Builder
	if r.Lower.Set && r.Lower.Inclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	if r.Lower.Set {
		sb.WriteString(r.Lower.Value.String())
	} else {
		sb.WriteString("-inf")
	}
	sb.WriteString(", ")
	if r.Upper.Set {
		sb.WriteString(r.Upper.Value.String())
	} else {
		sb.WriteString("+inf")
	}
	if r.Upper.Set && r.Upper.Inclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}
