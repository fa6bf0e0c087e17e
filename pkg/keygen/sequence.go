package keygen

import (
	"context"
	"fmt"
	"sync"

	"github.com/shardgate/shardgate/pkg/config"
)

const SequenceType = "SEQUENCE"

const DEFAULT_ID_RANGE_SIZE uint64 = 1

// IdRange is a closed interval of reserved sequence values.
type IdRange struct {
	Left  int64
	Right int64
}

// SequenceMgr hands out ranges of a named sequence. Ranges must not overlap.
type SequenceMgr interface {
	NextRange(ctx context.Context, seqName string, rangeSize uint64) (*IdRange, error)
	CurrVal(ctx context.Context, seqName string) (int64, error)
}

type cachedIdRange struct {
	idRange *IdRange
	mu      sync.Mutex
}

func (cir *cachedIdRange) nextVal() (int64, bool) {
	if cir.idRange == nil {
		return 0, false
	}
	if cir.idRange.Left < cir.idRange.Right {
		res := cir.idRange.Left
		cir.idRange.Left++
		return res, true
	} else if cir.idRange.Left == cir.idRange.Right {
		res := cir.idRange.Left
		cir.idRange = nil // the range is over
		return res, true
	}
	return 0, false
}

// RangeCache serves sequence values from locally reserved ranges and asks the
// SequenceMgr for a new range only when the current one is exhausted.
type RangeCache struct {
	cached    map[string]*cachedIdRange
	rangeSize uint64
	mu        sync.Mutex
	mngr      SequenceMgr
}

func NewRangeCache(rangeSize uint64, mgr SequenceMgr) *RangeCache {
	rngSize := DEFAULT_ID_RANGE_SIZE
	if rangeSize > 0 {
		rngSize = rangeSize
	}
	return &RangeCache{
		cached:    make(map[string]*cachedIdRange),
		rangeSize: rngSize,
		mngr:      mgr,
	}
}

func (rc *RangeCache) getRangeForSeq(seqName string) *cachedIdRange {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rng, ok := rc.cached[seqName]
	if !ok {
		rng = &cachedIdRange{}
		rc.cached[seqName] = rng
	}
	return rng
}

func (rc *RangeCache) NextVal(ctx context.Context, seqName string) (int64, error) {
	rng := rc.getRangeForSeq(seqName)
	rng.mu.Lock()
	defer rng.mu.Unlock()

	if nextVal, ok := rng.nextVal(); ok {
		return nextVal, nil
	}
	newRange, err := rc.mngr.NextRange(ctx, seqName, rc.rangeSize)
	if err != nil {
		return 0, err
	}
	rng.idRange = newRange
	if nextVal, ok := rng.nextVal(); ok {
		return nextVal, nil
	}
	return 0, fmt.Errorf("can`t get next value from fresh id range! sequence='%s'", seqName)
}

// MemSequenceMgr is a process local SequenceMgr.
type MemSequenceMgr struct {
	mu   sync.Mutex
	curr map[string]int64
}

func NewMemSequenceMgr() *MemSequenceMgr {
	return &MemSequenceMgr{curr: map[string]int64{}}
}

func (m *MemSequenceMgr) NextRange(_ context.Context, seqName string, rangeSize uint64) (*IdRange, error) {
	if rangeSize == 0 {
		return nil, fmt.Errorf("empty range requested for sequence %q", seqName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	left := m.curr[seqName] + 1
	right := left + int64(rangeSize) - 1
	m.curr[seqName] = right
	return &IdRange{Left: left, Right: right}, nil
}

func (m *MemSequenceMgr) CurrVal(_ context.Context, seqName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curr[seqName], nil
}

// SequenceGenerator draws keys from one named sequence.
type SequenceGenerator struct {
	seqName string
	cache   *RangeCache
}

func NewSequenceGenerator(seqName string, cache *RangeCache) *SequenceGenerator {
	return &SequenceGenerator{seqName: seqName, cache: cache}
}

func (g *SequenceGenerator) Type() string { return SequenceType }

func (g *SequenceGenerator) NextKey(ctx context.Context) (any, error) {
	return g.cache.NextVal(ctx, g.seqName)
}

var (
	defaultSequencesOnce sync.Once
	defaultSequences     SequenceMgr
)

func newSequenceFromProps(name string, props config.Props, env Env) (Generator, error) {
	seqName, ok := props.GetString("sequence-name")
	if !ok || seqName == "" {
		seqName = name
	}
	rangeSize, _, err := props.GetInt("range-size")
	if err != nil {
		return nil, err
	}
	if rangeSize < 0 {
		return nil, fmt.Errorf("negative range-size %d", rangeSize)
	}

	mgr := env.Sequences
	if mgr == nil {
		defaultSequencesOnce.Do(func() { defaultSequences = NewMemSequenceMgr() })
		mgr = defaultSequences
	}
	return NewSequenceGenerator(seqName, NewRangeCache(uint64(rangeSize), mgr)), nil
}
