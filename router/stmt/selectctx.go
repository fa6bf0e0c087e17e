package stmt

import "strings"

type NullsOrder int

const (
	// NullsDefault sorts NULL as the lowest value.
	NullsDefault = NullsOrder(iota)
	NullsFirst
	NullsLast
)

// OrderItem refers to a column of the per-shard result set. A negative Index
// means the position is only known once results arrive, and Column is the
// label to look for.
type OrderItem struct {
	Column string
	Index  int
	Desc   bool
	Nulls  NullsOrder
}

type AggKind int

const (
	AggCount = AggKind(iota)
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (k AggKind) String() string {
	switch k {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggAvg:
		return "AVG"
	default:
		return "?"
	}
}

// Aggregation is an aggregate projection. AVG is recomputed from derived SUM
// and COUNT columns found at SumIndex and CountIndex.
type Aggregation struct {
	Kind     AggKind
	Column   string
	Index    int
	Distinct bool

	SumIndex   int
	CountIndex int
}

type Pagination struct {
	Offset      int64
	RowCount    int64
	HasRowCount bool
}

// RowCountForShards is how many rows each shard must return so that the
// merged result can still apply OFFSET and LIMIT.
func (p *Pagination) RowCountForShards() (int64, bool) {
	if p == nil || !p.HasRowCount {
		return 0, false
	}
	return p.Offset + p.RowCount, true
}

type SelectContext struct {
	// Columns are the labels of the per-shard result set. Only the first
	// VisibleColumns are returned to the client; the rest are derived.
	Columns        []string
	VisibleColumns int
	// DerivedColumns is the number of trailing columns added for merging.
	// It gives the visible width when Columns is unknown, e.g. for SELECT *.
	DerivedColumns int

	OrderBy      []OrderItem
	GroupBy      []OrderItem
	Aggregations []Aggregation
	Distinct     bool
	Pagination   *Pagination
}

func (sc *SelectContext) HasAggregates() bool { return len(sc.Aggregations) > 0 }

// NeedsGrouping reports whether rows from different shards may have to be folded together.
func (sc *SelectContext) NeedsGrouping() bool {
	return len(sc.GroupBy) > 0 || sc.HasAggregates() || sc.Distinct
}

// GroupByEqualsOrderBy reports whether both lists name the same columns in the
// same order and directions, which lets groups be merged as streams.
func (sc *SelectContext) GroupByEqualsOrderBy() bool {
	if len(sc.GroupBy) != len(sc.OrderBy) {
		return false
	}
	for i := range sc.GroupBy {
		g, o := sc.GroupBy[i], sc.OrderBy[i]
		if g.Index != o.Index || g.Desc != o.Desc || g.Nulls != o.Nulls {
			return false
		}
		if g.Index < 0 && !strings.EqualFold(g.Column, o.Column) {
			return false
		}
	}
	return true
}

// ShardRowCount is the LIMIT each shard may apply without losing rows the
// merge needs. It is false when shards must return every row: grouped rows
// are then folded in memory, and a group cut off on one shard would be
// missing or undercounted. groupOrderPushedDown tells that shards return
// GROUP BY results ordered by the group items.
func (sc *SelectContext) ShardRowCount(groupOrderPushedDown bool) (int64, bool) {
	n, ok := sc.Pagination.RowCountForShards()
	if !ok {
		return 0, false
	}
	if !sc.NeedsGrouping() {
		return n, true
	}
	if len(sc.GroupBy) == 0 {
		return 0, false
	}
	if sc.GroupByEqualsOrderBy() || (len(sc.OrderBy) == 0 && groupOrderPushedDown) {
		return n, true
	}
	return 0, false
}
