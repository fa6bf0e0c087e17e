package main

import (
	"fmt"
	"io"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerlog "github.com/uber/jaeger-client-go/log"
	"github.com/uber/jaeger-lib/metrics"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shardgate/shardgate/pkg"
	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/sglog"
)

var (
	cfgPath       string
	logLevel      string
	prettyLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "sgroute route --config `config-path` `query`",
	Short: "shardgate",
	Long:  "Sharding routing and result merging engine",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shardgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shardgate %s\n", pkg.ShardgateVersionRevision)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/shardgate/router.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&prettyLogging, "pretty-log", false, "write logs in human readable form")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(keygenCmd)
}

// loadConfig reads the router config and sets up logging from it. Command
// line flags take precedence over the file.
func loadConfig(cmd *cobra.Command) (*config.RouterCfg, error) {
	body, err := config.LoadRouterCfg(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := config.RouterConfig()
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("pretty-log") {
		cfg.PrettyLogging = prettyLogging
	}

	sglog.Zero = sglog.NewZeroLogger(cfg.LogFileName, cfg.LogLevel, cfg.PrettyLogging)
	sglog.Zero.Debug().Str("path", cfgPath).Msg("config loaded")
	sglog.Zero.Debug().Msg(body)
	return cfg, nil
}

// initJaegerTracer installs the global tracer. The closer is nil when no
// collector is configured.
func initJaegerTracer(cfg config.JaegerCfg) (io.Closer, error) {
	if cfg.JaegerUrl == "" {
		return nil, nil
	}
	name := cfg.ServiceName
	if name == "" {
		name = "shardgate"
	}

	jcfg := jaegercfg.Configuration{
		ServiceName: name,
		Sampler: &jaegercfg.SamplerConfig{
			Type:              "const",
			Param:             1,
			SamplingServerURL: cfg.JaegerUrl,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans: false,
		},
		Gen128Bit: true,
		Tags: []opentracing.Tag{
			{Key: "span.kind", Value: "client"},
		},
	}

	return jcfg.InitGlobalTracer(
		name,
		jaegercfg.Logger(jaegerlog.StdLogger),
		jaegercfg.Metrics(metrics.NullFactory),
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		sglog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}

func main() {
	Execute()
}
