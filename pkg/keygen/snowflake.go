package keygen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
)

const SnowflakeType = "SNOWFLAKE"

const (
	DefaultWorkerBits   = 10
	DefaultSequenceBits = 12
	payloadBits         = 63
)

// DefaultEpoch is 2016-11-01T00:00:00Z.
var DefaultEpoch = time.Date(2016, time.November, 1, 0, 0, 0, 0, time.UTC)

var ErrClockRollback = sgerror.New(sgerror.SG_CLOCK_ROLLBACK, "clock moved backwards")

// Clock is the time source of a Snowflake.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

var SystemClock Clock = systemClock{}

// Snowflake generates 63-bit keys laid out as
// [timestamp ms since epoch][worker id][sequence].
type Snowflake struct {
	mu sync.Mutex

	clock    Clock
	epoch    time.Time
	workerID int64

	workerBits    uint
	sequenceBits  uint
	timestampBits uint
	sequenceMask  int64

	lastMs   int64
	sequence int64
}

type SnowflakeOption func(*Snowflake)

func WithClock(c Clock) SnowflakeOption {
	return func(s *Snowflake) { s.clock = c }
}

func WithEpoch(epoch time.Time) SnowflakeOption {
	return func(s *Snowflake) { s.epoch = epoch }
}

// WithBits overrides the worker and sequence widths. The timestamp takes the rest of 63 bits.
func WithBits(workerBits, sequenceBits uint) SnowflakeOption {
	return func(s *Snowflake) {
		s.workerBits = workerBits
		s.sequenceBits = sequenceBits
	}
}

func NewSnowflake(workerID int64, opts ...SnowflakeOption) (*Snowflake, error) {
	s := &Snowflake{
		clock:        SystemClock,
		epoch:        DefaultEpoch,
		workerID:     workerID,
		workerBits:   DefaultWorkerBits,
		sequenceBits: DefaultSequenceBits,
		lastMs:       -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sequenceBits == 0 || s.workerBits+s.sequenceBits >= payloadBits-31 {
		return nil, fmt.Errorf("invalid snowflake layout: %d worker bits, %d sequence bits", s.workerBits, s.sequenceBits)
	}
	s.timestampBits = payloadBits - s.workerBits - s.sequenceBits
	s.sequenceMask = int64(1)<<s.sequenceBits - 1

	if workerID < 0 || workerID >= int64(1)<<s.workerBits {
		return nil, fmt.Errorf("worker id %d does not fit into %d bits", workerID, s.workerBits)
	}
	return s, nil
}

func (s *Snowflake) Type() string { return SnowflakeType }

func (s *Snowflake) NextKey(_ context.Context) (any, error) {
	return s.Next()
}

func (s *Snowflake) currentMs() int64 {
	return s.clock.Now().Sub(s.epoch).Milliseconds()
}

// Next returns the next key. A clock that moved backwards is fatal: no key is
// produced and ErrClockRollback is returned.
func (s *Snowflake) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.currentMs()
	if now < s.lastMs {
		return 0, sgerror.Newf(sgerror.SG_CLOCK_ROLLBACK, "%w: last %dms, now %dms", ErrClockRollback, s.lastMs, now)
	}

	// state is written back only once a key is produced
	seq := int64(0)
	if now == s.lastMs {
		seq = (s.sequence + 1) & s.sequenceMask
		if seq == 0 {
			var err error
			if now, err = s.waitNextMs(s.lastMs); err != nil {
				return 0, err
			}
		}
	}

	if now < 0 || now >= int64(1)<<s.timestampBits {
		return 0, sgerror.Newf(sgerror.SG_UNEXPECTED, "timestamp %dms is outside of the %d-bit snowflake range", now, s.timestampBits)
	}
	s.lastMs = now
	s.sequence = seq

	return now<<(s.workerBits+s.sequenceBits) | s.workerID<<s.sequenceBits | s.sequence, nil
}

// waitNextMs blocks on the clock until it passes last.
func (s *Snowflake) waitNextMs(last int64) (int64, error) {
	for {
		s.clock.Sleep(time.Millisecond - time.Duration(s.clock.Now().Sub(s.epoch).Nanoseconds()%int64(time.Millisecond)))
		now := s.currentMs()
		if now > last {
			return now, nil
		}
		if now < last {
			return 0, sgerror.Newf(sgerror.SG_CLOCK_ROLLBACK, "%w: last %dms, now %dms", ErrClockRollback, last, now)
		}
	}
}

type SnowflakeKey struct {
	Timestamp time.Time
	WorkerID  int64
	Sequence  int64
}

// Decode splits a key produced by s into its fields.
func (s *Snowflake) Decode(key int64) SnowflakeKey {
	ms := key >> (s.workerBits + s.sequenceBits)
	return SnowflakeKey{
		Timestamp: s.epoch.Add(time.Duration(ms) * time.Millisecond),
		WorkerID:  (key >> s.sequenceBits) & (int64(1)<<s.workerBits - 1),
		Sequence:  key & s.sequenceMask,
	}
}

func newSnowflakeFromProps(name string, props config.Props, env Env) (Generator, error) {
	workerID, _, err := props.GetInt("worker-id")
	if err != nil {
		return nil, err
	}
	opts := []SnowflakeOption{}
	if env.Clock != nil {
		opts = append(opts, WithClock(env.Clock))
	}

	workerBits, okW, err := props.GetInt("worker-id-bits")
	if err != nil {
		return nil, err
	}
	sequenceBits, okS, err := props.GetInt("sequence-bits")
	if err != nil {
		return nil, err
	}
	if okW || okS {
		if !okW {
			workerBits = DefaultWorkerBits
		}
		if !okS {
			sequenceBits = DefaultSequenceBits
		}
		if workerBits < 0 || sequenceBits < 0 {
			return nil, fmt.Errorf("negative snowflake bit width")
		}
		opts = append(opts, WithBits(uint(workerBits), uint(sequenceBits)))
	}

	if epoch, ok := props.GetString("epoch"); ok {
		t, err := time.Parse(time.RFC3339, epoch)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch %q: %w", epoch, err)
		}
		opts = append(opts, WithEpoch(t))
	}

	if props.Has("max-tolerate-time-difference-milliseconds") {
		sglog.Zero.Warn().
			Str("key generator", name).
			Msg("max-tolerate-time-difference-milliseconds is ignored, clock rollback is always fatal")
	}

	return NewSnowflake(workerID, opts...)
}
