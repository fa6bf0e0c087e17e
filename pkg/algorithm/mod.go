package algorithm

import (
	"fmt"
	"math"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/hashfunction"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

const (
	ModType     = "MOD"
	HashModType = "HASH_MOD"
)

// Mod routes an integer value v to the target with suffix v mod sharding-count.
type Mod struct {
	count int64
}

func newMod(props config.Props) (Algorithm, error) {
	count, err := requireInt(props, "sharding-count")
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("sharding-count must be positive, got %d", count)
	}
	return &Mod{count: count}, nil
}

func (m *Mod) Type() string { return ModType }

func (m *Mod) mod(n int64) int64 {
	r := n % m.count
	if r < 0 {
		r += m.count
	}
	return r
}

func (m *Mod) DoSharding(targets []string, v PreciseValue) (string, error) {
	n, err := intValue(v.Value)
	if err != nil {
		return "", err
	}
	return targetBySuffix(targets, m.mod(n))
}

// DoRangeSharding narrows the targets only for bounded ranges shorter than sharding-count.
func (m *Mod) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	r := v.Range
	if !r.HasLower() || !r.HasUpper() {
		return targets, nil
	}
	lo, okLo := r.Lower.Value.Int64()
	hi, okHi := r.Upper.Value.Int64()
	if !okLo || !okHi {
		return targets, nil
	}
	if !r.Lower.Inclusive {
		if lo == math.MaxInt64 {
			return nil, nil
		}
		lo++
	}
	if !r.Upper.Inclusive {
		if hi == math.MinInt64 {
			return nil, nil
		}
		hi--
	}
	if hi < lo {
		return nil, nil
	}
	// hi >= lo, so the difference fits into uint64
	span := uint64(hi) - uint64(lo)
	if span >= uint64(m.count-1) {
		return targets, nil
	}
	set := map[int64]struct{}{}
	for i := uint64(0); i <= span; i++ {
		set[m.mod(lo+int64(i))] = struct{}{}
	}
	return targetsBySuffixes(targets, set), nil
}

// HashMod hashes the value first, so any hashable kind can be sharded.
type HashMod struct {
	count int64
	hf    hashfunction.HashFunctionType
}

func newHashMod(props config.Props) (Algorithm, error) {
	count, err := requireInt(props, "sharding-count")
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("sharding-count must be positive, got %d", count)
	}
	hfName, ok := props.GetString("hash-function")
	if !ok {
		hfName = "murmur"
	}
	hf, err := hashfunction.HashFunctionByName(hfName)
	if err != nil {
		return nil, err
	}
	return &HashMod{count: count, hf: hf}, nil
}

func (h *HashMod) Type() string { return HashModType }

func (h *HashMod) Shard(v shvalue.Value) (int64, error) {
	hash, err := hashfunction.ApplyHashFunction(v, h.hf)
	if err != nil {
		return 0, err
	}
	return int64(hash % uint64(h.count)), nil
}

func (h *HashMod) DoSharding(targets []string, v PreciseValue) (string, error) {
	n, err := h.Shard(v.Value)
	if err != nil {
		return "", err
	}
	return targetBySuffix(targets, n)
}

// DoRangeSharding returns every target: hashing does not preserve order.
func (h *HashMod) DoRangeSharding(targets []string, _ RangeValue) ([]string, error) {
	return targets, nil
}
