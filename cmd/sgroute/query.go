package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/pkg/executor"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sqlbind"
	"github.com/shardgate/shardgate/router/merge"
	"github.com/shardgate/shardgate/router/statistics"
	"github.com/shardgate/shardgate/router/stmt"
)

var (
	groupOrderPushedDown bool
	showStats            bool
)

func init() {
	queryCmd.Flags().BoolVar(&groupOrderPushedDown, "group-order-pushed-down", false, "shards return GROUP BY results ordered by the group items")
	queryCmd.Flags().BoolVar(&showStats, "stats", false, "print latency quantiles after the query")
}

func bindQuery(query string) (*stmt.Statement, []any, error) {
	args := parseParams(params)
	st, err := sqlbind.Bind(query, args)
	if err != nil {
		return nil, nil, err
	}
	if st.ParamCount > len(args) {
		return nil, nil, sgerror.Newf(sgerror.SG_UNSUPPORTED, "query takes %d parameters, %d given", st.ParamCount, len(args))
	}
	return st, args, nil
}

var queryCmd = &cobra.Command{
	Use:   "query `query`",
	Short: "Run a query on the configured datasources and print the merged result",
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

		statistics.SetQuantiles(cfg.TimeQuantiles)
		stats := statistics.Default()
		qr, err := newRouter(cfg, stats)
		if err != nil {
			return err
		}
		ctx, err := withHint(cmd.Context(), qr.Rule().Normalize)
		if err != nil {
			return err
		}
		st, qargs, err := bindQuery(args[0])
		if err != nil {
			return err
		}

		ex, err := executor.Open(ctx, cfg.DataSources, qr.Rule().Normalize)
		if err != nil {
			return err
		}
		defer func() { _ = ex.Close() }()
		ex.WithStatistics(stats).WithGroupOrderPushedDown(groupOrderPushedDown)

		rc, err := qr.Route(ctx, st, qargs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if st.Kind != stmt.Select {
			n, err := ex.Exec(ctx, st, rc, qargs)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d rows affected\n", n)
		} else {
			streams, err := ex.Query(ctx, st, rc, qargs)
			if err != nil {
				return err
			}
			merger := merge.NewEngine()
			merger.GroupOrderPushedDown = groupOrderPushedDown

			start := time.Now()
			res, err := merger.Merge(streams, st.Select)
			if err != nil {
				for _, s := range streams {
					_ = s.Close()
				}
				return err
			}
			err = printResult(out, res)
			stats.RecordSince(statistics.Merge, start)
			if cerr := res.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
		}

		if showStats {
			printStats(out, stats)
		}
		return nil
	},
}

func printResult(w io.Writer, res merge.MergedResult) error {
	fmt.Fprintln(w, strings.Join(res.Columns(), "\t"))
	rows := 0
	for res.Next() {
		cells := make([]string, 0, len(res.Columns()))
		for _, v := range res.Row() {
			if v == nil {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, fmt.Sprint(v))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
		rows++
	}
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", rows)
	return nil
}

func printStats(w io.Writer, stats *statistics.Collector) {
	for _, tip := range []statistics.StatisticsType{statistics.Route, statistics.Execute, statistics.Merge} {
		fmt.Fprintf(w, "%s: %d samples", tip, stats.Count(tip))
		snap := stats.Snapshot(tip)
		for i, q := range stats.Quantiles() {
			fmt.Fprintf(w, " p%g=%.3fms", q*100, snap[i])
		}
		fmt.Fprintln(w)
	}
}
