package config

import (
	"time"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
)

type StrategyType string

const (
	StandardStrategy = StrategyType("standard")
	ComplexStrategy  = StrategyType("complex")
	HintStrategy     = StrategyType("hint")
	NoneStrategy     = StrategyType("none")
)

type ShardingRuleCfg struct {
	Tables          map[string]*TableRuleCfg `json:"tables" toml:"tables" yaml:"tables"`
	BindingTables   [][]string               `json:"binding_tables" toml:"binding_tables" yaml:"binding_tables"`
	BroadcastTables []string                 `json:"broadcast_tables" toml:"broadcast_tables" yaml:"broadcast_tables"`

	DefaultDataSource       string       `json:"default_data_source" toml:"default_data_source" yaml:"default_data_source"`
	DefaultDatabaseStrategy *StrategyCfg `json:"default_database_strategy" toml:"default_database_strategy" yaml:"default_database_strategy"`
	DefaultTableStrategy    *StrategyCfg `json:"default_table_strategy" toml:"default_table_strategy" yaml:"default_table_strategy"`

	Algorithms    map[string]*AlgorithmCfg    `json:"algorithms" toml:"algorithms" yaml:"algorithms"`
	KeyGenerators map[string]*KeyGeneratorCfg `json:"key_generators" toml:"key_generators" yaml:"key_generators"`

	Cache ShardingCacheOptions `json:"cache" toml:"cache" yaml:"cache"`

	// IdentifierCase selects identifier normalization: "as_is" (default), "lower" or "upper".
	IdentifierCase string `json:"identifier_case" toml:"identifier_case" yaml:"identifier_case"`
}

type TableRuleCfg struct {
	ActualDataNodes  string       `json:"actual_data_nodes" toml:"actual_data_nodes" yaml:"actual_data_nodes"`
	DatabaseStrategy *StrategyCfg `json:"database_strategy" toml:"database_strategy" yaml:"database_strategy"`
	TableStrategy    *StrategyCfg `json:"table_strategy" toml:"table_strategy" yaml:"table_strategy"`

	KeyGenerateStrategy *KeyGenerateStrategyCfg `json:"key_generate_strategy" toml:"key_generate_strategy" yaml:"key_generate_strategy"`
}

type StrategyCfg struct {
	Type            StrategyType `json:"type" toml:"type" yaml:"type"`
	ShardingColumn  string       `json:"sharding_column" toml:"sharding_column" yaml:"sharding_column"`
	ShardingColumns []string     `json:"sharding_columns" toml:"sharding_columns" yaml:"sharding_columns"`
	AlgorithmName   string       `json:"algorithm_name" toml:"algorithm_name" yaml:"algorithm_name"`
}

type KeyGenerateStrategyCfg struct {
	Column           string `json:"column" toml:"column" yaml:"column"`
	KeyGeneratorName string `json:"key_generator_name" toml:"key_generator_name" yaml:"key_generator_name"`
}

type AlgorithmCfg struct {
	Type  string `json:"type" toml:"type" yaml:"type"`
	Props Props  `json:"props" toml:"props" yaml:"props"`
}

type KeyGeneratorCfg struct {
	Type  string `json:"type" toml:"type" yaml:"type"`
	Props Props  `json:"props" toml:"props" yaml:"props"`
}

type ShardingCacheOptions struct {
	Enabled         bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	InitialCapacity int    `json:"initial_capacity" toml:"initial_capacity" yaml:"initial_capacity"`
	MaximumSize     int    `json:"maximum_size" toml:"maximum_size" yaml:"maximum_size"`
	TTL             string `json:"ttl" toml:"ttl" yaml:"ttl"`
}

const DefaultCacheSize = 1024

// TTLDuration parses TTL; an empty TTL means entries never expire.
func (c ShardingCacheOptions) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, sgerror.Newf(sgerror.SG_CONFIG, "invalid cache ttl %q: %w", c.TTL, err)
	}
	if d < 0 {
		return 0, sgerror.Newf(sgerror.SG_CONFIG, "negative cache ttl %q", c.TTL)
	}
	return d, nil
}

func (s *StrategyCfg) Columns() []string {
	if s == nil {
		return nil
	}
	if s.Type == ComplexStrategy {
		return s.ShardingColumns
	}
	if s.ShardingColumn == "" {
		return nil
	}
	return []string{s.ShardingColumn}
}

func (s *StrategyCfg) validate(where string, algs map[string]*AlgorithmCfg) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case NoneStrategy, "":
		return nil
	case StandardStrategy:
		if s.ShardingColumn == "" {
			return sgerror.Newf(sgerror.SG_CONFIG, "%s: standard strategy requires sharding_column", where)
		}
	case ComplexStrategy:
		if len(s.ShardingColumns) == 0 {
			return sgerror.Newf(sgerror.SG_CONFIG, "%s: complex strategy requires sharding_columns", where)
		}
	case HintStrategy:
	default:
		return sgerror.Newf(sgerror.SG_CONFIG, "%s: unknown strategy type %q", where, s.Type)
	}
	if s.AlgorithmName == "" {
		return sgerror.Newf(sgerror.SG_CONFIG, "%s: strategy %q has no algorithm_name", where, s.Type)
	}
	if _, ok := algs[s.AlgorithmName]; !ok {
		return sgerror.Newf(sgerror.SG_CONFIG, "%s: algorithm %q is not declared", where, s.AlgorithmName)
	}
	return nil
}

func (s *ShardingRuleCfg) Validate() error {
	for name, alg := range s.Algorithms {
		if alg == nil || alg.Type == "" {
			return sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q has no type", name)
		}
	}
	for name, kg := range s.KeyGenerators {
		if kg == nil || kg.Type == "" {
			return sgerror.Newf(sgerror.SG_CONFIG, "key generator %q has no type", name)
		}
	}
	if err := s.DefaultDatabaseStrategy.validate("default database strategy", s.Algorithms); err != nil {
		return err
	}
	if err := s.DefaultTableStrategy.validate("default table strategy", s.Algorithms); err != nil {
		return err
	}
	for name, t := range s.Tables {
		if t == nil {
			return sgerror.Newf(sgerror.SG_CONFIG, "table %q has empty rule", name)
		}
		if err := t.DatabaseStrategy.validate("table "+name+" database strategy", s.Algorithms); err != nil {
			return err
		}
		if err := t.TableStrategy.validate("table "+name+" table strategy", s.Algorithms); err != nil {
			return err
		}
		if kgs := t.KeyGenerateStrategy; kgs != nil {
			if kgs.Column == "" {
				return sgerror.Newf(sgerror.SG_CONFIG, "table %q: key generate strategy has no column", name)
			}
			if _, ok := s.KeyGenerators[kgs.KeyGeneratorName]; !ok {
				return sgerror.Newf(sgerror.SG_CONFIG, "table %q: key generator %q is not declared", name, kgs.KeyGeneratorName)
			}
		}
	}
	for _, group := range s.BindingTables {
		for _, name := range group {
			if _, ok := s.Tables[name]; !ok {
				return sgerror.Newf(sgerror.SG_CONFIG, "binding table %q is not a sharding table", name)
			}
		}
	}
	for _, name := range s.BroadcastTables {
		if _, ok := s.Tables[name]; ok {
			return sgerror.Newf(sgerror.SG_CONFIG, "table %q is both sharding and broadcast", name)
		}
	}
	switch s.IdentifierCase {
	case "", "as_is", "lower", "upper":
	default:
		return sgerror.Newf(sgerror.SG_CONFIG, "unknown identifier_case %q", s.IdentifierCase)
	}
	if _, err := s.Cache.TTLDuration(); err != nil {
		return err
	}
	if s.Cache.MaximumSize < 0 || s.Cache.InitialCapacity < 0 {
		return sgerror.New(sgerror.SG_CONFIG, "cache sizes must not be negative")
	}
	return nil
}
