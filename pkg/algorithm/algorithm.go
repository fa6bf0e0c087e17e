// Package algorithm holds sharding algorithms and their registry. An algorithm
// maps sharding values onto a subset of the available targets, where a target
// is either a datasource name or an actual table name.
package algorithm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

type Algorithm interface {
	Type() string
}

// PreciseValue is a single EQUAL/IN value of one sharding column.
type PreciseValue struct {
	LogicTable string
	Column     string
	Value      shvalue.Value
}

// RangeValue is a RANGE condition on one sharding column.
type RangeValue struct {
	LogicTable string
	Column     string
	Range      shvalue.Range
}

// ComplexValues carries every sharding column of a complex strategy. A column
// appears either in Values (EQUAL/IN) or in Ranges.
type ComplexValues struct {
	LogicTable string
	Values     map[string][]shvalue.Value
	Ranges     map[string]shvalue.Range
}

type HintValues struct {
	LogicTable string
	Values     []shvalue.Value
}

type StandardAlgorithm interface {
	Algorithm
	DoSharding(targets []string, v PreciseValue) (string, error)
	DoRangeSharding(targets []string, v RangeValue) ([]string, error)
}

type ComplexAlgorithm interface {
	Algorithm
	DoSharding(targets []string, v ComplexValues) ([]string, error)
}

type HintAlgorithm interface {
	Algorithm
	DoSharding(targets []string, v HintValues) ([]string, error)
}

type Factory func(props config.Props) (Algorithm, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an algorithm type available to New. It panics on duplicates.
func Register(typ string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	typ = strings.ToUpper(typ)
	if _, ok := registry[typ]; ok {
		panic(fmt.Sprintf("sharding algorithm type %s registered twice", typ))
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

// New builds the algorithm declared under name.
func New(name string, cfg *config.AlgorithmCfg) (Algorithm, error) {
	if cfg == nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q has no definition", name)
	}
	registryMu.RLock()
	f, ok := registry[strings.ToUpper(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "unknown sharding algorithm type %q", cfg.Type)
	}
	alg, err := f(cfg.Props)
	if err != nil {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q: %w", name, err)
	}
	return alg, nil
}

func init() {
	Register(ModType, newMod)
	Register(HashModType, newHashMod)
	Register(InlineType, newInline)
	Register(ComplexInlineType, newComplexInline)
	Register(HintInlineType, newHintInline)
	Register(VolumeRangeType, newVolumeRange)
	Register(BoundaryRangeType, newBoundaryRange)
	Register(IntervalType, newInterval)
}

// suffixNumber returns the trailing decimal number of target.
func suffixNumber(target string) (int64, bool) {
	i := len(target)
	for i > 0 && target[i-1] >= '0' && target[i-1] <= '9' {
		i--
	}
	if i == len(target) {
		return 0, false
	}
	n, err := strconv.ParseInt(target[i:], 10, 64)
	return n, err == nil
}

// targetBySuffix finds the target whose trailing number equals n.
func targetBySuffix(targets []string, n int64) (string, error) {
	for _, t := range targets {
		if s, ok := suffixNumber(t); ok && s == n {
			return t, nil
		}
	}
	return "", fmt.Errorf("no target with suffix %d among %v", n, targets)
}

// targetsBySuffixes keeps the targets whose trailing number is in set, in target order.
func targetsBySuffixes(targets []string, set map[int64]struct{}) []string {
	res := make([]string, 0, len(set))
	for _, t := range targets {
		if s, ok := suffixNumber(t); ok {
			if _, ok := set[s]; ok {
				res = append(res, t)
			}
		}
	}
	return res
}

func requireInt(props config.Props, key string) (int64, error) {
	n, ok, err := props.GetInt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("property %q is required", key)
	}
	return n, nil
}

func requireString(props config.Props, key string) (string, error) {
	s, ok := props.GetString(key)
	if !ok || s == "" {
		return "", fmt.Errorf("property %q is required", key)
	}
	return s, nil
}

func intValue(v shvalue.Value) (int64, error) {
	n, ok := v.Int64()
	if !ok {
		return 0, fmt.Errorf("sharding value %s (%s) is not an integer", v, v.Kind())
	}
	return n, nil
}
