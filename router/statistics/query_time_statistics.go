package statistics

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest"
)

type StatisticsType string

const (
	Route   = StatisticsType("route")
	Execute = StatisticsType("execute")
	Merge   = StatisticsType("merge")
)

// Collector keeps latency digests per statistics type, in milliseconds.
type Collector struct {
	mu        sync.Mutex
	digests   map[StatisticsType]*tdigest.TDigest
	quantiles []float64
}

func NewCollector(quantiles []float64) *Collector {
	return &Collector{
		digests:   map[StatisticsType]*tdigest.TDigest{},
		quantiles: quantiles,
	}
}

var queryStatistics = NewCollector(nil)

// Default returns the process wide collector.
func Default() *Collector {
	return queryStatistics
}

func SetQuantiles(q []float64) {
	queryStatistics.mu.Lock()
	defer queryStatistics.mu.Unlock()
	queryStatistics.quantiles = q
}

func GetQuantiles() []float64 {
	return queryStatistics.Quantiles()
}

func (c *Collector) Quantiles() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantiles
}

func (c *Collector) RecordDuration(tip StatisticsType, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, ok := c.digests[tip]
	if !ok {
		var err error
		if td, err = tdigest.New(); err != nil {
			return
		}
		c.digests[tip] = td
	}
	_ = td.Add(float64(d.Microseconds()) / 1000)
}

func (c *Collector) RecordSince(tip StatisticsType, start time.Time) {
	c.RecordDuration(tip, time.Since(start))
}

// Quantile returns the q-quantile of tip in milliseconds, 0 without samples.
func (c *Collector) Quantile(tip StatisticsType, q float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, ok := c.digests[tip]
	if !ok || td.Count() == 0 {
		return 0
	}
	return td.Quantile(q)
}

func (c *Collector) Count(tip StatisticsType) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if td, ok := c.digests[tip]; ok {
		return td.Count()
	}
	return 0
}

// Snapshot evaluates every configured quantile of tip.
func (c *Collector) Snapshot(tip StatisticsType) []float64 {
	qs := c.Quantiles()
	res := make([]float64, len(qs))
	for i, q := range qs {
		res[i] = c.Quantile(tip, q)
	}
	return res
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.digests = map[StatisticsType]*tdigest.TDigest{}
}
