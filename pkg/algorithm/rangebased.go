package algorithm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

const (
	VolumeRangeType   = "VOLUME_RANGE"
	BoundaryRangeType = "BOUNDARY_RANGE"
)

// maxPartitions bounds VOLUME_RANGE layouts.
const maxPartitions = 1 << 16

// partitioned maps integer values onto consecutive partitions. Partition i
// is served by the target with suffix i.
type partitioned struct {
	typ        string
	partitions []shvalue.Range
}

// newPartitioned builds (-inf, b0), [b0, b1), ..., [bn, +inf) from ascending bounds.
func newPartitioned(typ string, bounds []int64) (*partitioned, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%s needs at least one boundary", typ)
	}
	p := &partitioned{typ: typ}
	p.partitions = append(p.partitions, shvalue.LessThan(shvalue.Int(bounds[0])))
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return nil, fmt.Errorf("%s boundaries must be strictly ascending, got %d after %d", typ, bounds[i], bounds[i-1])
		}
		p.partitions = append(p.partitions, shvalue.ClosedOpen(shvalue.Int(bounds[i-1]), shvalue.Int(bounds[i])))
	}
	p.partitions = append(p.partitions, shvalue.AtLeast(shvalue.Int(bounds[len(bounds)-1])))
	return p, nil
}

func (p *partitioned) Type() string { return p.typ }

func (p *partitioned) PartitionCount() int { return len(p.partitions) }

func (p *partitioned) DoSharding(targets []string, v PreciseValue) (string, error) {
	n, err := intValue(v.Value)
	if err != nil {
		return "", err
	}
	val := shvalue.Int(n)
	for i, part := range p.partitions {
		if part.Contains(val) {
			return targetBySuffix(targets, int64(i))
		}
	}
	return "", fmt.Errorf("value %d falls outside every partition", n)
}

func (p *partitioned) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	for _, b := range []shvalue.Bound{v.Range.Lower, v.Range.Upper} {
		if b.Set && !b.Value.IsNumeric() {
			return nil, fmt.Errorf("range bound %s (%s) is not numeric", b.Value, b.Value.Kind())
		}
	}
	set := map[int64]struct{}{}
	for i, part := range p.partitions {
		if part.Overlaps(v.Range) {
			set[int64(i)] = struct{}{}
		}
	}
	return targetsBySuffixes(targets, set), nil
}

func newVolumeRange(props config.Props) (Algorithm, error) {
	lower, err := requireInt(props, "range-lower")
	if err != nil {
		return nil, err
	}
	upper, err := requireInt(props, "range-upper")
	if err != nil {
		return nil, err
	}
	volume, err := requireInt(props, "sharding-volume")
	if err != nil {
		return nil, err
	}
	if volume <= 0 {
		return nil, fmt.Errorf("sharding-volume must be positive, got %d", volume)
	}
	if upper <= lower {
		return nil, fmt.Errorf("range-upper %d must be greater than range-lower %d", upper, lower)
	}
	if (upper-lower)/volume > maxPartitions {
		return nil, fmt.Errorf("volume range yields more than %d partitions", maxPartitions)
	}
	var bounds []int64
	for b := lower; b < upper; b += volume {
		bounds = append(bounds, b)
	}
	bounds = append(bounds, upper)
	return newPartitioned(VolumeRangeType, bounds)
}

func newBoundaryRange(props config.Props) (Algorithm, error) {
	raw, err := requireString(props, "sharding-ranges")
	if err != nil {
		return nil, err
	}
	var bounds []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sharding-ranges entry %q: %w", s, err)
		}
		bounds = append(bounds, n)
	}
	return newPartitioned(BoundaryRangeType, bounds)
}
