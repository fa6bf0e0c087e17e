package route

import (
	"strings"

	"github.com/shardgate/shardgate/pkg/models/shcond"
)

// TableMapper maps a logic table onto the physical table of one data node.
type TableMapper struct {
	Logic  string
	Actual string
}

// RouteUnit is one physical destination of a statement.
type RouteUnit struct {
	DataSourceName string
	TableMappers   []TableMapper
}

// Key renders the unit canonically. Units with equal keys are equal.
func (u RouteUnit) Key() string {
	var sb strings.Builder
	sb.WriteString(u.DataSourceName)
	sb.WriteByte(':')
	for i, tm := range u.TableMappers {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(tm.Logic)
		sb.WriteByte('=')
		sb.WriteString(tm.Actual)
	}
	return sb.String()
}

func (u RouteUnit) Equal(o RouteUnit) bool {
	if u.DataSourceName != o.DataSourceName || len(u.TableMappers) != len(o.TableMappers) {
		return false
	}
	for i := range u.TableMappers {
		if u.TableMappers[i] != o.TableMappers[i] {
			return false
		}
	}
	return true
}

// ActualTable returns the physical name of logic in this unit.
func (u RouteUnit) ActualTable(logic string) (string, bool) {
	for _, tm := range u.TableMappers {
		if tm.Logic == logic {
			return tm.Actual, true
		}
	}
	return "", false
}

type Shape int

const (
	SingleTable = Shape(iota)
	Join
	SubQuery
	Broadcast
	Unicast
	Ignore
)

func (s Shape) String() string {
	switch s {
	case SingleTable:
		return "single-table"
	case Join:
		return "join"
	case SubQuery:
		return "subquery"
	case Broadcast:
		return "broadcast"
	case Unicast:
		return "unicast"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// RouteContext is the outcome of routing one statement. It is never mutated
// once built and may be shared through the route cache.
type RouteContext struct {
	Units     []RouteUnit
	Shape     Shape
	NeedMerge bool

	// GeneratedKeys are keys produced for INSERT rows, in row order.
	GeneratedKeys []shcond.GeneratedKey
	// InsertRows lists, by unit key, the rows of a multi-row INSERT that
	// belong to the unit. It is nil when every unit takes every row.
	InsertRows map[string][]int
}

// RowsOf returns the INSERT rows to send to u, or nil for all of them.
func (rc *RouteContext) RowsOf(u RouteUnit) []int {
	if rc.InsertRows == nil {
		return nil
	}
	return rc.InsertRows[u.Key()]
}

// NewRouteContext drops duplicate units keeping first occurrences.
func NewRouteContext(shape Shape, units []RouteUnit) *RouteContext {
	seen := make(map[string]struct{}, len(units))
	res := make([]RouteUnit, 0, len(units))
	for _, u := range units {
		k := u.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, u)
	}
	return &RouteContext{
		Units:     res,
		Shape:     shape,
		NeedMerge: len(res) > 1,
	}
}

// DataSourceNames lists the datasources of the units in unit order.
func (rc *RouteContext) DataSourceNames() []string {
	var res []string
	seen := map[string]struct{}{}
	for _, u := range rc.Units {
		if _, ok := seen[u.DataSourceName]; ok {
			continue
		}
		seen[u.DataSourceName] = struct{}{}
		res = append(res, u.DataSourceName)
	}
	return res
}

// String renders the route as shown by EXPLAIN.
func (rc *RouteContext) String() string {
	var sb strings.Builder
	sb.WriteString("shape: ")
	sb.WriteString(rc.Shape.String())
	if rc.NeedMerge {
		sb.WriteString(" (merge)")
	}
	for _, u := range rc.Units {
		sb.WriteString("\n  ")
		sb.WriteString(u.DataSourceName)
		if len(u.TableMappers) == 0 {
			continue
		}
		sb.WriteString(":")
		for _, tm := range u.TableMappers {
			sb.WriteString(" ")
			sb.WriteString(tm.Logic)
			sb.WriteString(" -> ")
			sb.WriteString(tm.Actual)
		}
	}
	return sb.String()
}
