package routehint

import (
	"context"
	"sort"
	"strings"

	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

// RouteHint is per-statement routing input that does not come from the SQL text.
type RouteHint interface {
	iRouteHint()
	// CacheKey renders the hint deterministically; route cache keys include it.
	CacheKey() string
}

type EmptyRouteHint struct{}

func (EmptyRouteHint) iRouteHint()      {}
func (EmptyRouteHint) CacheKey() string { return "" }

// ShardingValueHint feeds hint strategies with values per logic table.
type ShardingValueHint struct {
	DatabaseValues map[string][]shvalue.Value
	TableValues    map[string][]shvalue.Value
}

func (*ShardingValueHint) iRouteHint() {}

func NewShardingValueHint() *ShardingValueHint {
	return &ShardingValueHint{
		DatabaseValues: map[string][]shvalue.Value{},
		TableValues:    map[string][]shvalue.Value{},
	}
}

func (h *ShardingValueHint) AddDatabaseValue(logicTable string, v shvalue.Value) *ShardingValueHint {
	h.DatabaseValues[logicTable] = append(h.DatabaseValues[logicTable], v)
	return h
}

func (h *ShardingValueHint) AddTableValue(logicTable string, v shvalue.Value) *ShardingValueHint {
	h.TableValues[logicTable] = append(h.TableValues[logicTable], v)
	return h
}

func (h *ShardingValueHint) DatabaseShardingValues(logicTable string) ([]shvalue.Value, bool) {
	v, ok := h.DatabaseValues[logicTable]
	return v, ok && len(v) > 0
}

func (h *ShardingValueHint) TableShardingValues(logicTable string) ([]shvalue.Value, bool) {
	v, ok := h.TableValues[logicTable]
	return v, ok && len(v) > 0
}

func (h *ShardingValueHint) CacheKey() string {
	var sb strings.Builder
	writeValues := func(prefix string, m map[string][]shvalue.Value) {
		tables := make([]string, 0, len(m))
		for t := range m {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			sb.WriteString(prefix)
			sb.WriteString(t)
			sb.WriteByte('=')
			for i, v := range m[t] {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(v.Key())
			}
			sb.WriteByte(';')
		}
	}
	writeValues("db:", h.DatabaseValues)
	writeValues("tbl:", h.TableValues)
	return sb.String()
}

// TargetRouteHint pins the statement to one datasource.
type TargetRouteHint struct {
	DataSource string
}

func (TargetRouteHint) iRouteHint() {}

func (h TargetRouteHint) CacheKey() string { return "ds:" + h.DataSource }

type hintKey struct{}

func WithHint(ctx context.Context, hint RouteHint) context.Context {
	return context.WithValue(ctx, hintKey{}, hint)
}

// FromContext returns the hint attached to ctx, or EmptyRouteHint.
func FromContext(ctx context.Context) RouteHint {
	if ctx == nil {
		return EmptyRouteHint{}
	}
	if h, ok := ctx.Value(hintKey{}).(RouteHint); ok && h != nil {
		return h
	}
	return EmptyRouteHint{}
}
