package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
)

// initConfig decodes file into target, choosing the decoder by file suffix.
func initConfig(file *os.File, target any) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(file.Name())); ext {
	case ".toml":
		_, err = toml.NewDecoder(file).Decode(target)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(target)
	case ".json":
		err = json.NewDecoder(file).Decode(target)
	default:
		return sgerror.Newf(sgerror.SG_CONFIG, "unknown config format %q of %s, use .toml, .yaml or .json", ext, file.Name())
	}
	if err != nil {
		return sgerror.Newf(sgerror.SG_CONFIG, "decode %s: %v", file.Name(), err)
	}
	return nil
}
