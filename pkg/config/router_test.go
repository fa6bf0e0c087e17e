package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/stretchr/testify/assert"
)

const yamlCfg = `
log_level: debug
data_sources:
  ds0:
    driver: sqlite3
    dsn: "file:ds0?mode=memory"
  ds1:
    driver: sqlite3
    dsn: "file:ds1?mode=memory"
sharding:
  default_data_source: ds0
  tables:
    t_order:
      actual_data_nodes: "ds${0..1}.t_order_${0..1}"
      database_strategy:
        type: standard
        sharding_column: user_id
        algorithm_name: db_mod
      table_strategy:
        type: standard
        sharding_column: order_id
        algorithm_name: tbl_inline
      key_generate_strategy:
        column: order_id
        key_generator_name: snowflake
  binding_tables:
    - [t_order]
  broadcast_tables: [t_dict]
  algorithms:
    db_mod:
      type: MOD
      props:
        sharding-count: 2
    tbl_inline:
      type: INLINE
      props:
        algorithm-expression: "t_order_${order_id % 2}"
  key_generators:
    snowflake:
      type: SNOWFLAKE
      props:
        worker-id: 3
  cache:
    enabled: true
    maximum_size: 128
    ttl: 5m
`

const tomlCfg = `
log_level = "info"

[data_sources.ds0]
driver = "sqlite3"
dsn = "file:ds0?mode=memory"

[sharding.tables.t_user]
actual_data_nodes = "ds0.t_user_${0..3}"

[sharding.tables.t_user.table_strategy]
type = "standard"
sharding_column = "user_id"
algorithm_name = "hash"

[sharding.algorithms.hash]
type = "HASH_MOD"

[sharding.algorithms.hash.props]
sharding-count = 4
hash-function = "murmur"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRouterCfgYaml(t *testing.T) {
	assert := assert.New(t)

	_, err := config.LoadRouterCfg(writeFile(t, "router.yaml", yamlCfg))
	assert.NoError(err)

	cfg := config.RouterConfig()
	assert.Equal("debug", cfg.LogLevel)
	assert.Len(cfg.DataSources, 2)
	assert.Equal("sqlite3", cfg.DataSources["ds1"].Driver)

	tbl := cfg.Sharding.Tables["t_order"]
	assert.Equal("ds${0..1}.t_order_${0..1}", tbl.ActualDataNodes)
	assert.Equal(config.StandardStrategy, tbl.DatabaseStrategy.Type)
	assert.Equal([]string{"order_id"}, tbl.TableStrategy.Columns())
	assert.Equal("snowflake", tbl.KeyGenerateStrategy.KeyGeneratorName)
	assert.Equal([][]string{{"t_order"}}, cfg.Sharding.BindingTables)
	assert.Equal([]string{"t_dict"}, cfg.Sharding.BroadcastTables)

	n, ok, err := cfg.Sharding.Algorithms["db_mod"].Props.GetInt("sharding-count")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(int64(2), n)

	ttl, err := cfg.Sharding.Cache.TTLDuration()
	assert.NoError(err)
	assert.Equal(5*time.Minute, ttl)
}

func TestLoadRouterCfgToml(t *testing.T) {
	assert := assert.New(t)

	_, err := config.LoadRouterCfg(writeFile(t, "router.toml", tomlCfg))
	assert.NoError(err)

	cfg := config.RouterConfig()
	alg := cfg.Sharding.Algorithms["hash"]
	assert.Equal("HASH_MOD", alg.Type)
	n, ok, err := alg.Props.GetInt("sharding-count")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(int64(4), n)
	s, ok := alg.Props.GetString("hash-function")
	assert.True(ok)
	assert.Equal("murmur", s)
}

func TestLoadRouterCfgUnknownSuffix(t *testing.T) {
	_, err := config.LoadRouterCfg(writeFile(t, "router.ini", "x=1"))
	assert.True(t, sgerror.HasCode(err, sgerror.SG_CONFIG))
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		name string
		cfg  config.RouterCfg
		ok   bool
	}

	modAlg := map[string]*config.AlgorithmCfg{"mod": {Type: "MOD"}}

	for _, tt := range []tcase{
		{
			name: "empty config",
			ok:   true,
		},
		{
			name: "undeclared algorithm",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				Tables: map[string]*config.TableRuleCfg{
					"t": {TableStrategy: &config.StrategyCfg{Type: config.StandardStrategy, ShardingColumn: "id", AlgorithmName: "nope"}},
				},
			}},
		},
		{
			name: "standard without column",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				Algorithms: modAlg,
				Tables: map[string]*config.TableRuleCfg{
					"t": {TableStrategy: &config.StrategyCfg{Type: config.StandardStrategy, AlgorithmName: "mod"}},
				},
			}},
		},
		{
			name: "unknown strategy type",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				Algorithms:           modAlg,
				DefaultTableStrategy: &config.StrategyCfg{Type: "weird", AlgorithmName: "mod"},
			}},
		},
		{
			name: "binding table not sharded",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				BindingTables: [][]string{{"t_missing"}},
			}},
		},
		{
			name: "sharding and broadcast",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				Tables:          map[string]*config.TableRuleCfg{"t": {}},
				BroadcastTables: []string{"t"},
			}},
		},
		{
			name: "bad ttl",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				Cache: config.ShardingCacheOptions{TTL: "soon"},
			}},
		},
		{
			name: "default datasource undeclared",
			cfg: config.RouterCfg{
				DataSources: map[string]*config.DataSourceCfg{"ds0": {Driver: "sqlite3"}},
				Sharding:    config.ShardingRuleCfg{DefaultDataSource: "ds9"},
			},
		},
		{
			name: "bad quantile",
			cfg:  config.RouterCfg{TimeQuantiles: []float64{0.5, 1.5}},
		},
		{
			name: "none strategy needs no algorithm",
			cfg: config.RouterCfg{Sharding: config.ShardingRuleCfg{
				DefaultDatabaseStrategy: &config.StrategyCfg{Type: config.NoneStrategy},
			}},
			ok: true,
		},
	} {
		err := tt.cfg.Validate()
		if tt.ok {
			assert.NoError(err, tt.name)
		} else {
			assert.Error(err, tt.name)
			assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG), tt.name)
		}
	}
}

func TestProps(t *testing.T) {
	assert := assert.New(t)

	p := config.Props{
		"a": 3,
		"b": float64(4),
		"c": "5",
		"d": 1.5,
		"e": "true",
		"f": int64(7),
	}

	for key, exp := range map[string]int64{"a": 3, "b": 4, "c": 5, "f": 7} {
		v, ok, err := p.GetInt(key)
		assert.NoError(err)
		assert.True(ok)
		assert.Equal(exp, v, key)
	}

	_, ok, err := p.GetInt("d")
	assert.True(ok)
	assert.Error(err)

	_, ok, err = p.GetInt("missing")
	assert.False(ok)
	assert.NoError(err)

	b, ok, err := p.GetBool("e")
	assert.NoError(err)
	assert.True(ok)
	assert.True(b)

	s, ok := p.GetString("b")
	assert.True(ok)
	assert.Equal("4", s)
}
