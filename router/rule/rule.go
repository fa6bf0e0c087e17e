// Package rule compiles the sharding configuration into the immutable rule set
// the router works against.
package rule

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/shardgate/shardgate/pkg/algorithm"
	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/keygen"
	"github.com/shardgate/shardgate/pkg/models/datanode"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/rfqn"
	"github.com/shardgate/shardgate/router/strategy"
)

// TableRule describes where the rows of one logic table live.
type TableRule struct {
	LogicTable string
	DataNodes  []datanode.DataNode

	// DataSources keeps the order of first appearance in DataNodes.
	DataSources []string
	tablesByDS  map[string][]string

	DatabaseStrategy strategy.Strategy
	TableStrategy    strategy.Strategy

	KeyColumn    string
	KeyGenerator keygen.Generator
}

// ActualTables returns the physical tables of the rule on ds, in data node order.
func (tr *TableRule) ActualTables(ds string) []string {
	return tr.tablesByDS[ds]
}

// ActualTableIndex is the position of table among the tables of ds, or -1.
func (tr *TableRule) ActualTableIndex(ds, table string) int {
	return slices.Index(tr.tablesByDS[ds], table)
}

// ShardingColumns lists database and table strategy columns without duplicates.
func (tr *TableRule) ShardingColumns() []string {
	var res []string
	for _, s := range []strategy.Strategy{tr.DatabaseStrategy, tr.TableStrategy} {
		for _, c := range strategy.Columns(s) {
			if !slices.Contains(res, c) {
				res = append(res, c)
			}
		}
	}
	return res
}

func (tr *TableRule) IsShardingColumn(column string) bool {
	return slices.Contains(tr.ShardingColumns(), column)
}

// NeedsKeyGeneration tells whether an INSERT listing columns must get a generated key.
func (tr *TableRule) NeedsKeyGeneration(columns []string) bool {
	return tr.KeyGenerator != nil && !slices.Contains(columns, tr.KeyColumn)
}

func (tr *TableRule) sameLayout(o *TableRule) bool {
	if !slices.Equal(tr.DataSources, o.DataSources) {
		return false
	}
	for _, ds := range tr.DataSources {
		if len(tr.tablesByDS[ds]) != len(o.tablesByDS[ds]) {
			return false
		}
	}
	return true
}

// ShardingRule is built once from configuration and never mutated afterwards.
type ShardingRule struct {
	tables    map[string]*TableRule
	binding   map[string][]string
	broadcast map[string]struct{}

	dataSources       []string
	DefaultDataSource string

	Normalize rfqn.Normalizer
	Cache     config.ShardingCacheOptions
}

// New compiles cfg. dataSources lists every configured datasource; when empty
// it is derived from the data nodes and the default datasource.
func New(cfg *config.ShardingRuleCfg, dataSources []string, env keygen.Env) (*ShardingRule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	norm, err := rfqn.NormalizerByName(cfg.IdentifierCase)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "%w", err)
	}

	r := &ShardingRule{
		tables:            map[string]*TableRule{},
		binding:           map[string][]string{},
		broadcast:         map[string]struct{}{},
		DefaultDataSource: cfg.DefaultDataSource,
		Normalize:         norm,
		Cache:             cfg.Cache,
	}

	algs := make(map[string]algorithm.Algorithm, len(cfg.Algorithms))
	for name, acfg := range cfg.Algorithms {
		alg, err := algorithm.New(name, acfg)
		if err != nil {
			return nil, err
		}
		algs[name] = alg
	}

	names := maps.Keys(cfg.Tables)
	slices.Sort(names)
	for _, name := range names {
		tr, err := buildTableRule(norm(name), cfg.Tables[name], cfg, algs, norm, env)
		if err != nil {
			return nil, err
		}
		if _, ok := r.tables[tr.LogicTable]; ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s is declared twice", tr.LogicTable)
		}
		r.tables[tr.LogicTable] = tr
	}

	known := map[string]struct{}{}
	for _, ds := range dataSources {
		known[ds] = struct{}{}
	}
	derived := map[string]struct{}{}
	for _, name := range names {
		tr := r.tables[norm(name)]
		for _, ds := range tr.DataSources {
			if len(known) > 0 {
				if _, ok := known[ds]; !ok {
					return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s references unknown datasource %q", tr.LogicTable, ds)
				}
			}
			derived[ds] = struct{}{}
		}
	}
	if r.DefaultDataSource != "" {
		if _, ok := known[r.DefaultDataSource]; len(known) > 0 && !ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "default datasource %q is not configured", r.DefaultDataSource)
		}
		derived[r.DefaultDataSource] = struct{}{}
	}
	if len(dataSources) > 0 {
		r.dataSources = slices.Clone(dataSources)
	} else {
		r.dataSources = maps.Keys(derived)
	}
	slices.Sort(r.dataSources)

	for _, b := range cfg.BroadcastTables {
		r.broadcast[norm(b)] = struct{}{}
	}

	for _, group := range cfg.BindingTables {
		if len(group) == 0 {
			continue
		}
		normalized := make([]string, len(group))
		for i, name := range group {
			normalized[i] = norm(name)
		}
		primary := r.tables[normalized[0]]
		for _, name := range normalized {
			if _, ok := r.binding[name]; ok {
				return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s is listed in more than one binding group", name)
			}
			if !primary.sameLayout(r.tables[name]) {
				return nil, sgerror.Newf(sgerror.SG_CONFIG, "binding tables %s and %s have different data node layouts", primary.LogicTable, name)
			}
		}
		for _, name := range normalized {
			r.binding[name] = normalized
		}
	}

	sglog.Zero.Debug().
		Int("tables", len(r.tables)).
		Int("binding groups", len(cfg.BindingTables)).
		Int("broadcast", len(r.broadcast)).
		Strs("datasources", r.dataSources).
		Msg("sharding rule built")

	return r, nil
}

func buildTableRule(
	name string,
	tcfg *config.TableRuleCfg,
	cfg *config.ShardingRuleCfg,
	algs map[string]algorithm.Algorithm,
	norm rfqn.Normalizer,
	env keygen.Env) (*TableRule, error) {

	expr := tcfg.ActualDataNodes
	if expr == "" {
		if cfg.DefaultDataSource == "" {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s has no actual data nodes and no default datasource", name)
		}
		expr = cfg.DefaultDataSource + "." + name
	}
	nodes, err := datanode.ParseActualDataNodes(expr)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s: %w", name, err)
	}

	tr := &TableRule{
		LogicTable: name,
		tablesByDS: map[string][]string{},
	}
	for _, dn := range nodes {
		dn.Table = norm(dn.Table)
		tr.DataNodes = append(tr.DataNodes, dn)
		if _, ok := tr.tablesByDS[dn.DataSource]; !ok {
			tr.DataSources = append(tr.DataSources, dn.DataSource)
		}
		tr.tablesByDS[dn.DataSource] = append(tr.tablesByDS[dn.DataSource], dn.Table)
	}

	dbCfg := tcfg.DatabaseStrategy
	if dbCfg == nil {
		dbCfg = cfg.DefaultDatabaseStrategy
	}
	tblCfg := tcfg.TableStrategy
	if tblCfg == nil {
		tblCfg = cfg.DefaultTableStrategy
	}
	if tr.DatabaseStrategy, err = strategy.FromConfig(dbCfg, algs, norm); err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s database strategy: %w", name, err)
	}
	if tr.TableStrategy, err = strategy.FromConfig(tblCfg, algs, norm); err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "table %s table strategy: %w", name, err)
	}

	if kgs := tcfg.KeyGenerateStrategy; kgs != nil {
		tr.KeyColumn = norm(kgs.Column)
		tr.KeyGenerator, err = keygen.New(kgs.KeyGeneratorName, cfg.KeyGenerators[kgs.KeyGeneratorName], env)
		if err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func (r *ShardingRule) TableRule(table string) (*TableRule, bool) {
	tr, ok := r.tables[table]
	return tr, ok
}

func (r *ShardingRule) IsShardingTable(table string) bool {
	_, ok := r.tables[table]
	return ok
}

func (r *ShardingRule) IsBroadcastTable(table string) bool {
	_, ok := r.broadcast[table]
	return ok
}

// BindingGroup returns the binding group of table, primary table first.
func (r *ShardingRule) BindingGroup(table string) ([]string, bool) {
	g, ok := r.binding[table]
	return g, ok
}

// AllBound tells whether every table of tables belongs to one binding group.
func (r *ShardingRule) AllBound(tables []string) bool {
	if len(tables) < 2 {
		return false
	}
	g, ok := r.binding[tables[0]]
	if !ok {
		return false
	}
	for _, t := range tables[1:] {
		if !slices.Contains(g, t) {
			return false
		}
	}
	return true
}

// ShardingColumns returns the sharding columns of table, nil for non sharding tables.
func (r *ShardingRule) ShardingColumns(table string) []string {
	if tr, ok := r.tables[table]; ok {
		return tr.ShardingColumns()
	}
	return nil
}

// DataSourceNames returns every datasource, sorted.
func (r *ShardingRule) DataSourceNames() []string {
	return r.dataSources
}

func (r *ShardingRule) LogicTables() []string {
	res := maps.Keys(r.tables)
	slices.Sort(res)
	return res
}
