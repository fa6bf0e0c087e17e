package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
)

type RouterCfg struct {
	LogLevel      string    `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFileName   string    `json:"log_filename" toml:"log_filename" yaml:"log_filename"`
	PrettyLogging bool      `json:"pretty_logging" toml:"pretty_logging" yaml:"pretty_logging"`
	TimeQuantiles []float64 `json:"time_quantiles" toml:"time_quantiles" yaml:"time_quantiles"`

	JaegerConfig JaegerCfg                 `json:"jaeger" toml:"jaeger" yaml:"jaeger"`
	DataSources  map[string]*DataSourceCfg `json:"data_sources" toml:"data_sources" yaml:"data_sources"`
	Sharding     ShardingRuleCfg           `json:"sharding" toml:"sharding" yaml:"sharding"`
}

type JaegerCfg struct {
	JaegerUrl   string `json:"jaeger_url" toml:"jaeger_url" yaml:"jaeger_url"`
	ServiceName string `json:"service_name" toml:"service_name" yaml:"service_name"`
}

var cfgRouter RouterCfg

// LoadRouterCfg reads the router config from cfgPath and validates it.
// On success the config becomes available through RouterConfig.
func LoadRouterCfg(cfgPath string) (string, error) {
	var rcfg RouterCfg
	file, err := os.Open(cfgPath)
	if err != nil {
		return "", err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			sglog.Zero.Error().Err(err).Msg("failed to close config file")
		}
	}(file)

	if err := initConfig(file, &rcfg); err != nil {
		return "", err
	}
	if err := rcfg.Validate(); err != nil {
		return "", err
	}

	configBytes, err := json.MarshalIndent(rcfg, "", "  ")
	if err != nil {
		return "", err
	}

	cfgRouter = rcfg
	return string(configBytes), nil
}

func RouterConfig() *RouterCfg {
	return &cfgRouter
}

// Validate checks cross references inside the config: every datasource, algorithm
// and key generator a rule names must be declared.
func (r *RouterCfg) Validate() error {
	for name, ds := range r.DataSources {
		if ds == nil {
			return sgerror.Newf(sgerror.SG_CONFIG, "datasource %q has empty definition", name)
		}
	}
	if err := r.Sharding.Validate(); err != nil {
		return err
	}
	if dflt := r.Sharding.DefaultDataSource; dflt != "" && len(r.DataSources) > 0 {
		if _, ok := r.DataSources[dflt]; !ok {
			return sgerror.Newf(sgerror.SG_CONFIG, "default datasource %q is not declared", dflt)
		}
	}
	for _, q := range r.TimeQuantiles {
		if q <= 0 || q >= 1 {
			return sgerror.Newf(sgerror.SG_CONFIG, "time quantile %v is out of (0, 1)", q)
		}
	}
	return nil
}

func (r *RouterCfg) String() string {
	return fmt.Sprintf("router config: %d datasources, %d sharding tables", len(r.DataSources), len(r.Sharding.Tables))
}
