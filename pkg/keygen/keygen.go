package keygen

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
)

// Generator produces primary keys for INSERT rows that omit them.
type Generator interface {
	NextKey(ctx context.Context) (any, error)
	Type() string
}

// Env carries collaborators generators may need.
type Env struct {
	Clock     Clock
	Sequences SequenceMgr
}

type Factory func(name string, props config.Props, env Env) (Generator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a generator type available to New. It panics on duplicates.
func Register(typ string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	typ = strings.ToUpper(typ)
	if _, ok := registry[typ]; ok {
		panic(fmt.Sprintf("key generator type %s registered twice", typ))
	}
	registry[typ] = f
}

func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	res := make([]string, 0, len(registry))
	for t := range registry {
		res = append(res, t)
	}
	sort.Strings(res)
	return res
}

// New builds the generator described by cfg.
func New(name string, cfg *config.KeyGeneratorCfg, env Env) (Generator, error) {
	if cfg == nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "key generator %q has no definition", name)
	}
	registryMu.RLock()
	f, ok := registry[strings.ToUpper(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "unknown key generator type %q", cfg.Type)
	}
	g, err := f(name, cfg.Props, env)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "key generator %q: %w", name, err)
	}
	return g, nil
}

func init() {
	Register(SnowflakeType, newSnowflakeFromProps)
	Register(UUIDType, newUUIDFromProps)
	Register(SequenceType, newSequenceFromProps)
}
