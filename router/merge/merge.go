// Package merge recombines per-shard result streams into one logical result.
package merge

import (
	"strings"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/stmt"
	"golang.org/x/exp/slices"
)

// QueryResult is the result stream of one route unit.
type QueryResult interface {
	Columns() []string
	Next() bool
	Value(i int) (any, error)
	Err() error
	Close() error
}

// MergedResult is a pull cursor over merged rows. It is not restartable and
// must not be used from several goroutines.
type MergedResult interface {
	Columns() []string
	Next() bool
	Value(i int) (any, error)
	// Row returns a copy of the current row.
	Row() []any
	Err() error
	Close() error
}

type Engine struct {
	// GroupOrderPushedDown tells that shards return rows ordered by the
	// GROUP BY columns even when the statement has no ORDER BY.
	GroupOrderPushedDown bool
}

func NewEngine() *Engine {
	return &Engine{}
}

// Merge picks the merge strategy for sel. Streams must be given in route
// unit order.
func (e *Engine) Merge(streams []QueryResult, sel *stmt.SelectContext) (MergedResult, error) {
	if sel == nil {
		sel = &stmt.SelectContext{}
	}

	var columns []string
	switch {
	case len(sel.Columns) > 0:
		columns = sel.Columns
	case len(streams) > 0:
		columns = streams[0].Columns()
	}
	visible := sel.VisibleColumns
	if visible <= 0 {
		visible = len(columns) - sel.DerivedColumns
	}
	if visible <= 0 || visible > len(columns) {
		visible = len(columns)
	}

	if len(streams) == 0 {
		return newCursor(&memorySource{}, nil, columns, visible), nil
	}

	sources := make([]*streamSource, len(streams))
	for i, s := range streams {
		sources[i] = &streamSource{qr: s}
	}

	if len(streams) == 1 {
		sglog.Zero.Debug().Msg("single stream, passing through")
		return newCursor(sources[0], streams, columns, visible), nil
	}

	for _, agg := range sel.Aggregations {
		if agg.Distinct {
			return nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "%s(DISTINCT %s) cannot be merged across %d streams", agg.Kind, agg.Column, len(streams))
		}
	}

	orderBy, err := resolveItems(sel.OrderBy, columns)
	if err != nil {
		return nil, err
	}
	groupBy, err := resolveItems(sel.GroupBy, columns)
	if err != nil {
		return nil, err
	}

	var src rowSource
	switch {
	case sel.NeedsGrouping():
		groupItems := groupBy
		if len(groupItems) == 0 && sel.Distinct {
			groupItems = make([]stmt.OrderItem, visible)
			for i := range groupItems {
				groupItems[i] = stmt.OrderItem{Column: columns[i], Index: i}
			}
		}

		switch {
		case len(groupItems) > 0 && sameOrder(groupItems, orderBy):
			sglog.Zero.Debug().Msg("merging groups as streams")
			src = newGroupStreamSource(newOrderedSource(sources, groupItems), groupItems, sel.Aggregations)
		case len(groupItems) > 0 && len(orderBy) == 0 && e.GroupOrderPushedDown:
			sglog.Zero.Debug().Msg("merging groups as streams, order pushed down")
			src = newGroupStreamSource(newOrderedSource(sources, groupItems), groupItems, sel.Aggregations)
		default:
			sglog.Zero.Debug().Int("group items", len(groupItems)).Msg("merging groups in memory")
			src = newGroupMemorySource(newIteratorSource(sources), groupItems, sel.Aggregations, orderBy)
		}
	case len(orderBy) > 0:
		sglog.Zero.Debug().Int("streams", len(streams)).Msg("ordered merge")
		src = newOrderedSource(sources, orderBy)
	default:
		src = newIteratorSource(sources)
	}

	if p := sel.Pagination; p != nil && (p.Offset > 0 || p.HasRowCount) {
		src = &paginationSource{src: src, offset: p.Offset, rowCount: p.RowCount, limited: p.HasRowCount}
	}
	return newCursor(src, streams, columns, visible), nil
}

func sameOrder(a, b []stmt.OrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Index != b[i].Index || a[i].Desc != b[i].Desc || a[i].Nulls != b[i].Nulls {
			return false
		}
	}
	return true
}

// resolveItems fills in positions that were unknown when the statement was
// bound, looking the column label up in the result set.
func resolveItems(items []stmt.OrderItem, columns []string) ([]stmt.OrderItem, error) {
	res := make([]stmt.OrderItem, len(items))
	for i, it := range items {
		if it.Index < 0 {
			it.Index = slices.IndexFunc(columns, func(c string) bool { return strings.EqualFold(c, it.Column) })
			if it.Index < 0 {
				return nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "column %q is not in the result set", it.Column)
			}
		}
		if it.Index >= len(columns) {
			return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "column index %d out of range", it.Index)
		}
		res[i] = it
	}
	return res, nil
}
