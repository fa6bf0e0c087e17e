package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/keygen"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/cache"
	"github.com/shardgate/shardgate/router/qrouter"
	"github.com/shardgate/shardgate/router/rfqn"
	"github.com/shardgate/shardgate/router/routehint"
	"github.com/shardgate/shardgate/router/rule"
	"github.com/shardgate/shardgate/router/statistics"
)

var (
	params      []string
	hintDS      string
	hintDBVals  []string
	hintTblVals []string
)

func init() {
	for _, c := range []*cobra.Command{routeCmd, queryCmd} {
		c.Flags().StringArrayVarP(&params, "param", "p", nil, "positional parameter, repeat in order")
		c.Flags().StringVar(&hintDS, "hint-ds", "", "route to this datasource only")
		c.Flags().StringArrayVar(&hintDBVals, "hint-db", nil, "database sharding hint as table=value")
		c.Flags().StringArrayVar(&hintTblVals, "hint-table", nil, "table sharding hint as table=value")
	}
}

var routeCmd = &cobra.Command{
	Use:   "route `query`",
	Short: "Show the sharding conditions and the route of a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		closer, err := initJaegerTracer(cfg.JaegerConfig)
		if err != nil {
			return fmt.Errorf("could not initialize jaeger tracer: %w", err)
		}
		if closer != nil {
			defer func() { _ = closer.Close() }()
		}

		qr, err := newRouter(cfg, statistics.Default())
		if err != nil {
			return err
		}
		ctx, err := withHint(cmd.Context(), qr.Rule().Normalize)
		if err != nil {
			return err
		}
		st, params, err := bindQuery(args[0])
		if err != nil {
			return err
		}

		plan, err := qr.Explain(ctx, st, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), plan)
		return nil
	},
}

func dataSourceNames(cfg *config.RouterCfg) []string {
	names := maps.Keys(cfg.DataSources)
	slices.Sort(names)
	return names
}

func newRouter(cfg *config.RouterCfg, stats *statistics.Collector) (*qrouter.ShardingRouter, error) {
	r, err := rule.New(&cfg.Sharding, dataSourceNames(cfg), keygen.Env{})
	if err != nil {
		return nil, err
	}
	rc, err := cache.New(cfg.Sharding.Cache)
	if err != nil {
		return nil, err
	}
	sglog.Zero.Debug().
		Strs("datasources", r.DataSourceNames()).
		Strs("tables", r.LogicTables()).
		Msg("sharding rule built")
	return qrouter.NewShardingRouter(r, rc, stats), nil
}

// parseParam reads a command line parameter as an integer, a float or, failing
// both, a string. Quoting forces a string.
func parseParam(s string) any {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	if s == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseParams(raw []string) []any {
	res := make([]any, len(raw))
	for i, s := range raw {
		res[i] = parseParam(s)
	}
	return res
}

// withHint puts the hint given on the command line into ctx. Hint tables are
// normalized with norm, the identifier normalizer of the rule.
func withHint(ctx context.Context, norm rfqn.Normalizer) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if hintDS != "" {
		if len(hintDBVals) > 0 || len(hintTblVals) > 0 {
			return nil, sgerror.New(sgerror.SG_CONFIG, "--hint-ds cannot be combined with sharding value hints")
		}
		return routehint.WithHint(ctx, routehint.TargetRouteHint{DataSource: hintDS}), nil
	}
	if len(hintDBVals) == 0 && len(hintTblVals) == 0 {
		return ctx, nil
	}

	h := routehint.NewShardingValueHint()
	for _, kv := range hintDBVals {
		table, v, err := splitHint(kv, norm)
		if err != nil {
			return nil, err
		}
		h.AddDatabaseValue(table, v)
	}
	for _, kv := range hintTblVals {
		table, v, err := splitHint(kv, norm)
		if err != nil {
			return nil, err
		}
		h.AddTableValue(table, v)
	}
	return routehint.WithHint(ctx, h), nil
}

// splitHint parses [schema.]table=value. The schema is not part of logic
// table names and is dropped.
func splitHint(kv string, norm rfqn.Normalizer) (string, shvalue.Value, error) {
	name, raw, ok := strings.Cut(kv, "=")
	if !ok {
		return "", shvalue.Null, sgerror.Newf(sgerror.SG_CONFIG, "hint %q is not table=value", kv)
	}
	fqn, err := rfqn.ParseFQN(name)
	if err != nil {
		return "", shvalue.Null, sgerror.Newf(sgerror.SG_CONFIG, "hint %q: %v", kv, err)
	}
	v, err := shvalue.FromAny(parseParam(raw))
	if err != nil {
		return "", shvalue.Null, sgerror.Newf(sgerror.SG_CONFIG, "hint %q: %v", kv, err)
	}
	return fqn.Normalize(norm).RelationName, v, nil
}
