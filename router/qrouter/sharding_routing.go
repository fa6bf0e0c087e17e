package qrouter

import (
	"context"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/rerrors"
	"github.com/shardgate/shardgate/router/route"
	"github.com/shardgate/shardgate/router/routehint"
	"github.com/shardgate/shardgate/router/rule"
	"github.com/shardgate/shardgate/router/stmt"
	"github.com/shardgate/shardgate/router/strategy"
)

// placement lists, per datasource, the alternative mapper sets of one table
// group (a single table or the tables of one binding group).
type placement struct {
	dataSources []string
	mappers     map[string][][]route.TableMapper
}

func newPlacement() *placement {
	return &placement{mappers: map[string][][]route.TableMapper{}}
}

func (p *placement) add(ds string, tms []route.TableMapper) {
	if _, ok := p.mappers[ds]; !ok {
		p.dataSources = append(p.dataSources, ds)
	}
	p.mappers[ds] = append(p.mappers[ds], tms)
}

type tableSet struct {
	sharding  []string
	broadcast []string
	other     []string
}

func (qr *ShardingRouter) classify(st *stmt.Statement) tableSet {
	var ts tableSet
	seen := map[string]struct{}{}
	for _, name := range st.TableNames() {
		table := qr.rule.Normalize(name)
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		switch {
		case qr.rule.IsShardingTable(table):
			ts.sharding = append(ts.sharding, table)
		case qr.rule.IsBroadcastTable(table):
			ts.broadcast = append(ts.broadcast, table)
		default:
			ts.other = append(ts.other, table)
		}
	}
	return ts
}

func identity(tables []string) []route.TableMapper {
	res := make([]route.TableMapper, len(tables))
	for i, t := range tables {
		res[i] = route.TableMapper{Logic: t, Actual: t}
	}
	return res
}

// RouteWithConditions implements QueryRouter.
func (qr *ShardingRouter) RouteWithConditions(ctx context.Context, st *stmt.Statement, conds *shcond.Conditions) (*route.RouteContext, error) {
	rc, err := qr.route(ctx, st, conds)
	if err != nil {
		sglog.Zero.Debug().Err(err).Str("kind", st.Kind.String()).Msg("failed to route statement")
		return nil, err
	}
	rc.GeneratedKeys = conds.GeneratedKeys
	if st.Kind == stmt.Insert && len(conds.Items) > 1 && len(rc.Units) > 1 {
		if rc.InsertRows, err = qr.insertRows(ctx, st, conds); err != nil {
			return nil, err
		}
	}

	sglog.Zero.Debug().
		Str("kind", st.Kind.String()).
		Str("shape", rc.Shape.String()).
		Int("units", len(rc.Units)).
		Msg("statement routed")
	return rc, nil
}

func (qr *ShardingRouter) route(ctx context.Context, st *stmt.Statement, conds *shcond.Conditions) (*route.RouteContext, error) {
	ts := qr.classify(st)
	hint := routehint.FromContext(ctx)

	if th, ok := hint.(routehint.TargetRouteHint); ok {
		return qr.routeToTarget(th.DataSource, ts)
	}

	if len(ts.other) > 0 && qr.rule.DefaultDataSource == "" {
		return nil, sgerror.Newf(sgerror.SG_NO_SUCH_TABLE, "table %q is neither sharding nor broadcast and no default datasource is configured", ts.other[0])
	}

	if len(ts.sharding) == 0 && len(ts.other) == 0 {
		return qr.routeBroadcast(st, ts)
	}

	if st.Kind == stmt.DDL {
		conds = shcond.Unrestricted()
	} else if conds.AlwaysFalse {
		return nil, sgerror.Newf(sgerror.SG_NO_ROUTE, "%w", rerrors.ErrAlwaysFalse)
	}

	var groups []*placement
	done := map[string]struct{}{}
	for _, table := range ts.sharding {
		if _, ok := done[table]; ok {
			continue
		}
		var (
			p   *placement
			err error
		)
		if group := qr.boundTables(table, ts.sharding); len(group) > 1 {
			p, err = qr.routeBinding(group, conds, hint)
			for _, t := range group {
				done[t] = struct{}{}
			}
		} else {
			p, err = qr.routeTable(table, conds, hint)
			done[table] = struct{}{}
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, p)
	}
	for _, table := range ts.other {
		p := newPlacement()
		p.add(qr.rule.DefaultDataSource, identity([]string{table}))
		groups = append(groups, p)
	}

	units, err := cartesian(groups, identity(ts.broadcast))
	if err != nil {
		code := sgerror.SG_CROSS_DS_JOIN
		if st.Kind == stmt.DDL {
			code = sgerror.SG_DDL_ROUTE
		}
		return nil, sgerror.Newf(code, "tables %v: %w", append(ts.sharding, ts.other...), err)
	}
	if len(units) == 0 {
		return nil, sgerror.Newf(sgerror.SG_NO_ROUTE, "%w", rerrors.ErrEmptyRoute)
	}

	shape := route.SingleTable
	switch {
	case st.Kind == stmt.DDL:
		shape = route.Broadcast
	case st.HasSubQuery:
		shape = route.SubQuery
	case len(ts.sharding)+len(ts.other) > 1:
		shape = route.Join
	}
	return route.NewRouteContext(shape, units), nil
}

// insertRows routes every row of a multi-row INSERT on its own.
func (qr *ShardingRouter) insertRows(ctx context.Context, st *stmt.Statement, conds *shcond.Conditions) (map[string][]int, error) {
	res := map[string][]int{}
	for i, item := range conds.Items {
		rc, err := qr.route(ctx, st, &shcond.Conditions{Items: []shcond.ShardingCondition{item}})
		if err != nil {
			return nil, err
		}
		for _, u := range rc.Units {
			res[u.Key()] = append(res[u.Key()], i)
		}
	}
	return res, nil
}

// boundTables returns the tables of tables sharing the binding group of table.
func (qr *ShardingRouter) boundTables(table string, tables []string) []string {
	group, ok := qr.rule.BindingGroup(table)
	if !ok {
		return nil
	}
	var res []string
	for _, t := range tables {
		for _, g := range group {
			if t == g {
				res = append(res, t)
				break
			}
		}
	}
	return res
}

func hintValues(h routehint.RouteHint, table string, database bool) ([]shvalue.Value, bool) {
	svh, ok := h.(*routehint.ShardingValueHint)
	if !ok {
		return nil, false
	}
	if database {
		return svh.DatabaseShardingValues(table)
	}
	return svh.TableShardingValues(table)
}

type nodeKey struct {
	ds    string
	table string
}

// tableNodes evaluates both strategies of one table over every OR branch.
func (qr *ShardingRouter) tableNodes(tr *rule.TableRule, conds *shcond.Conditions, hint routehint.RouteHint) (map[nodeKey]struct{}, error) {
	dbHint, dbHintOk := hintValues(hint, tr.LogicTable, true)
	tblHint, tblHintOk := hintValues(hint, tr.LogicTable, false)

	res := map[nodeKey]struct{}{}
	for _, item := range conds.Items {
		values := item.ForTable(tr.LogicTable)
		dss, err := strategy.DoSharding(tr.DatabaseStrategy, tr.DataSources, strategy.Input{
			LogicTable:  tr.LogicTable,
			Values:      values,
			HintValues:  dbHint,
			HintPresent: dbHintOk,
		})
		if err != nil {
			return nil, err
		}
		for _, ds := range dss {
			tables, err := strategy.DoSharding(tr.TableStrategy, tr.ActualTables(ds), strategy.Input{
				LogicTable:  tr.LogicTable,
				Values:      values,
				HintValues:  tblHint,
				HintPresent: tblHintOk,
			})
			if err != nil {
				return nil, err
			}
			for _, t := range tables {
				res[nodeKey{ds: ds, table: t}] = struct{}{}
			}
		}
	}
	return res, nil
}

func (qr *ShardingRouter) routeTable(table string, conds *shcond.Conditions, hint routehint.RouteHint) (*placement, error) {
	tr, _ := qr.rule.TableRule(table)
	nodes, err := qr.tableNodes(tr, conds, hint)
	if err != nil {
		return nil, err
	}
	p := newPlacement()
	for _, dn := range tr.DataNodes {
		if _, ok := nodes[nodeKey{ds: dn.DataSource, table: dn.Table}]; ok {
			p.add(dn.DataSource, []route.TableMapper{{Logic: table, Actual: dn.Table}})
		}
	}
	return p, nil
}

// routeBinding routes tables of one binding group together: actual tables
// are paired by their position on the datasource, and a position is kept only
// when every table of the group can reach it.
func (qr *ShardingRouter) routeBinding(group []string, conds *shcond.Conditions, hint routehint.RouteHint) (*placement, error) {
	type position struct {
		ds  string
		idx int
	}

	var allowed map[position]struct{}
	for _, table := range group {
		tr, _ := qr.rule.TableRule(table)
		nodes, err := qr.tableNodes(tr, conds, hint)
		if err != nil {
			return nil, err
		}
		cur := map[position]struct{}{}
		for n := range nodes {
			cur[position{ds: n.ds, idx: tr.ActualTableIndex(n.ds, n.table)}] = struct{}{}
		}
		if allowed == nil {
			allowed = cur
			continue
		}
		for pos := range allowed {
			if _, ok := cur[pos]; !ok {
				delete(allowed, pos)
			}
		}
	}

	primary, _ := qr.rule.TableRule(group[0])
	p := newPlacement()
	for _, dn := range primary.DataNodes {
		idx := primary.ActualTableIndex(dn.DataSource, dn.Table)
		if _, ok := allowed[position{ds: dn.DataSource, idx: idx}]; !ok {
			continue
		}
		tms := make([]route.TableMapper, 0, len(group))
		for _, table := range group {
			tr, _ := qr.rule.TableRule(table)
			tms = append(tms, route.TableMapper{Logic: table, Actual: tr.ActualTables(dn.DataSource)[idx]})
		}
		p.add(dn.DataSource, tms)
	}
	return p, nil
}

// cartesian combines table groups on the datasources they all reach.
func cartesian(groups []*placement, extra []route.TableMapper) ([]route.RouteUnit, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	var common []string
	for _, ds := range groups[0].dataSources {
		shared := true
		for _, g := range groups[1:] {
			if _, ok := g.mappers[ds]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, ds)
		}
	}
	if len(common) == 0 {
		for _, g := range groups {
			if len(g.dataSources) == 0 {
				return nil, nil
			}
		}
		return nil, rerrors.ErrNoCommonDataSource
	}

	var units []route.RouteUnit
	for _, ds := range common {
		combos := [][]route.TableMapper{nil}
		for _, g := range groups {
			next := make([][]route.TableMapper, 0, len(combos)*len(g.mappers[ds]))
			for _, c := range combos {
				for _, tms := range g.mappers[ds] {
					combo := make([]route.TableMapper, 0, len(c)+len(tms)+len(extra))
					combo = append(combo, c...)
					combo = append(combo, tms...)
					next = append(next, combo)
				}
			}
			combos = next
		}
		for _, c := range combos {
			units = append(units, route.RouteUnit{DataSourceName: ds, TableMappers: append(c, extra...)})
		}
	}
	return units, nil
}

// routeBroadcast handles statements touching broadcast tables only, or no
// table at all.
func (qr *ShardingRouter) routeBroadcast(st *stmt.Statement, ts tableSet) (*route.RouteContext, error) {
	dss := qr.rule.DataSourceNames()
	if len(dss) == 0 {
		return nil, sgerror.Newf(sgerror.SG_NO_ROUTE, "%w", rerrors.ErrNoDataSource)
	}
	tms := identity(ts.broadcast)

	if len(ts.broadcast) == 0 {
		ds := qr.rule.DefaultDataSource
		if ds == "" {
			ds = dss[0]
		}
		return route.NewRouteContext(route.Ignore, []route.RouteUnit{{DataSourceName: ds}}), nil
	}

	if st.Kind == stmt.Select {
		return route.NewRouteContext(route.Unicast, []route.RouteUnit{{DataSourceName: dss[0], TableMappers: tms}}), nil
	}

	units := make([]route.RouteUnit, len(dss))
	for i, ds := range dss {
		units[i] = route.RouteUnit{DataSourceName: ds, TableMappers: tms}
	}
	return route.NewRouteContext(route.Broadcast, units), nil
}

func (qr *ShardingRouter) routeToTarget(ds string, ts tableSet) (*route.RouteContext, error) {
	found := false
	for _, name := range qr.rule.DataSourceNames() {
		if name == ds {
			found = true
			break
		}
	}
	if !found {
		return nil, sgerror.Newf(sgerror.SG_NO_ROUTE, "%q: %w", ds, rerrors.ErrUnknownDataSource)
	}

	var tms []route.TableMapper
	for _, table := range ts.sharding {
		tr, _ := qr.rule.TableRule(table)
		if tables := tr.ActualTables(ds); len(tables) == 1 {
			tms = append(tms, route.TableMapper{Logic: table, Actual: tables[0]})
		}
	}
	tms = append(tms, identity(ts.broadcast)...)
	tms = append(tms, identity(ts.other)...)
	return route.NewRouteContext(route.Unicast, []route.RouteUnit{{DataSourceName: ds, TableMappers: tms}}), nil
}
