package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/keygen"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
)

var (
	genName  string
	genType  string
	genProps []string
	genCount int
)

func init() {
	keygenCmd.Flags().StringVarP(&genName, "generator", "g", "", "key generator declared in the config")
	keygenCmd.Flags().StringVarP(&genType, "type", "t", "", fmt.Sprintf("ad hoc generator type, one of %s", strings.Join(keygen.Types(), ", ")))
	keygenCmd.Flags().StringArrayVar(&genProps, "prop", nil, "ad hoc generator property as key=value")
	keygenCmd.Flags().IntVarP(&genCount, "count", "n", 1, "number of keys to generate")
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate keys with a configured or ad hoc key generator",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, gcfg, err := generatorConfig(cmd)
		if err != nil {
			return err
		}
		gen, err := keygen.New(name, gcfg, keygen.Env{})
		if err != nil {
			return err
		}
		for i := 0; i < genCount; i++ {
			key, err := gen.NextKey(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

func generatorConfig(cmd *cobra.Command) (string, *config.KeyGeneratorCfg, error) {
	if genName != "" && genType != "" {
		return "", nil, sgerror.New(sgerror.SG_CONFIG, "--generator and --type are exclusive")
	}
	if genType != "" {
		props, err := parseProps(genProps)
		if err != nil {
			return "", nil, err
		}
		return strings.ToLower(genType), &config.KeyGeneratorCfg{Type: genType, Props: props}, nil
	}
	if genName == "" {
		return "", nil, sgerror.New(sgerror.SG_CONFIG, "either --generator or --type is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", nil, err
	}
	gcfg, ok := cfg.Sharding.KeyGenerators[genName]
	if !ok {
		return "", nil, sgerror.Newf(sgerror.SG_CONFIG, "key generator %q is not declared", genName)
	}
	return genName, gcfg, nil
}

func parseProps(raw []string) (config.Props, error) {
	props := config.Props{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "property %q is not key=value", kv)
		}
		props[k] = parseParam(v)
	}
	return props, nil
}
