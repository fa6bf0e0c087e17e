package algorithm_test

import (
	"math"
	"testing"
	"time"

	"github.com/shardgate/shardgate/pkg/algorithm"
	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/stretchr/testify/assert"
)

var (
	orderTables = []string{"t_order_0", "t_order_1", "t_order_2", "t_order_3"}
	dataSources = []string{"ds0", "ds1", "ds2", "ds3"}
)

func standard(t *testing.T, typ string, props config.Props) algorithm.StandardAlgorithm {
	t.Helper()
	alg, err := algorithm.New("alg", &config.AlgorithmCfg{Type: typ, Props: props})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	s, ok := alg.(algorithm.StandardAlgorithm)
	if !assert.True(t, ok) {
		t.FailNow()
	}
	return s
}

func precise(v shvalue.Value) algorithm.PreciseValue {
	return algorithm.PreciseValue{LogicTable: "t_order", Column: "order_id", Value: v}
}

func rng(r shvalue.Range) algorithm.RangeValue {
	return algorithm.RangeValue{LogicTable: "t_order", Column: "order_id", Range: r}
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{
		"BOUNDARY_RANGE", "COMPLEX_INLINE", "HASH_MOD", "HINT_INLINE",
		"INLINE", "INTERVAL", "MOD", "VOLUME_RANGE",
	}, algorithm.Types())

	_, err := algorithm.New("x", &config.AlgorithmCfg{Type: "CLASS_BASED"})
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))

	_, err = algorithm.New("x", &config.AlgorithmCfg{Type: "MOD"})
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))

	_, err = algorithm.New("x", &config.AlgorithmCfg{Type: "mod", Props: config.Props{"sharding-count": 0}})
	assert.Error(err)

	assert.Panics(func() {
		algorithm.Register("MOD", nil)
	})
}

func TestMod(t *testing.T) {
	assert := assert.New(t)
	alg := standard(t, "MOD", config.Props{"sharding-count": 4})

	res, err := alg.DoSharding(orderTables, precise(shvalue.Int(10)))
	assert.NoError(err)
	assert.Equal("t_order_2", res)

	res, err = alg.DoSharding(dataSources, precise(shvalue.Int(-3)))
	assert.NoError(err)
	assert.Equal("ds1", res)

	res, err = alg.DoSharding(orderTables, precise(shvalue.String("7")))
	assert.NoError(err)
	assert.Equal("t_order_3", res)

	_, err = alg.DoSharding(orderTables, precise(shvalue.String("abc")))
	assert.Error(err)

	_, err = alg.DoSharding([]string{"t_order_0", "t_order_1"}, precise(shvalue.Int(3)))
	assert.Error(err)

	many, err := alg.DoRangeSharding(orderTables, rng(shvalue.Closed(shvalue.Int(5), shvalue.Int(6))))
	assert.NoError(err)
	assert.Equal([]string{"t_order_1", "t_order_2"}, many)

	many, err = alg.DoRangeSharding(orderTables, rng(shvalue.Range{
		Lower: shvalue.Bound{Value: shvalue.Int(4), Set: true},
		Upper: shvalue.Bound{Value: shvalue.Int(6), Set: true},
	}))
	assert.NoError(err)
	assert.Equal([]string{"t_order_1"}, many)

	many, err = alg.DoRangeSharding(orderTables, rng(shvalue.Closed(shvalue.Int(0), shvalue.Int(100))))
	assert.NoError(err)
	assert.Equal(orderTables, many)

	many, err = alg.DoRangeSharding(orderTables, rng(shvalue.AtLeast(shvalue.Int(5))))
	assert.NoError(err)
	assert.Equal(orderTables, many)

	type tcase struct {
		name string
		r    shvalue.Range
		exp  []string
	}

	for _, tt := range []tcase{
		{
			name: "upper int64 bound",
			r:    shvalue.Closed(shvalue.Int(math.MaxInt64-1), shvalue.Int(math.MaxInt64)),
			exp:  []string{"t_order_2", "t_order_3"},
		},
		{
			name: "lower int64 bound",
			r:    shvalue.Closed(shvalue.Int(math.MinInt64), shvalue.Int(math.MinInt64+1)),
			exp:  []string{"t_order_0", "t_order_1"},
		},
		{
			name: "span wider than int64",
			r:    shvalue.Closed(shvalue.Int(-5e18), shvalue.Int(5e18)),
			exp:  orderTables,
		},
		{
			name: "open above max",
			r:    shvalue.GreaterThan(shvalue.Int(math.MaxInt64)).Intersect(shvalue.AtMost(shvalue.Int(math.MaxInt64))),
			exp:  nil,
		},
		{
			name: "open below min",
			r: shvalue.Range{
				Lower: shvalue.Bound{Value: shvalue.Int(math.MinInt64), Inclusive: true, Set: true},
				Upper: shvalue.Bound{Value: shvalue.Int(math.MinInt64), Set: true},
			},
			exp: nil,
		},
	} {
		got, err := alg.DoRangeSharding(orderTables, rng(tt.r))
		assert.NoError(err, tt.name)
		assert.Equal(tt.exp, got, tt.name)
	}
}

func TestModSuffixIsNumeric(t *testing.T) {
	alg := standard(t, "MOD", config.Props{"sharding-count": 12})
	targets := []string{"t_1", "t_2", "t_11", "t_12"}

	res, err := alg.DoSharding(targets, precise(shvalue.Int(2)))
	assert.NoError(t, err)
	assert.Equal(t, "t_2", res)
}

func TestHashMod(t *testing.T) {
	assert := assert.New(t)
	alg := standard(t, "HASH_MOD", config.Props{"sharding-count": 4, "hash-function": "city"})

	first, err := alg.DoSharding(orderTables, precise(shvalue.String("alice")))
	assert.NoError(err)
	assert.Contains(orderTables, first)

	again, err := alg.DoSharding(orderTables, precise(shvalue.String("alice")))
	assert.NoError(err)
	assert.Equal(first, again)

	all, err := alg.DoRangeSharding(orderTables, rng(shvalue.Closed(shvalue.Int(1), shvalue.Int(2))))
	assert.NoError(err)
	assert.Equal(orderTables, all)

	_, err = algorithm.New("x", &config.AlgorithmCfg{Type: "HASH_MOD", Props: config.Props{"sharding-count": 4, "hash-function": "md5"}})
	assert.Error(err)
}

func TestInline(t *testing.T) {
	assert := assert.New(t)
	alg := standard(t, "INLINE", config.Props{"algorithm-expression": "t_order_${order_id % 4}"})

	res, err := alg.DoSharding(orderTables, precise(shvalue.Int(10)))
	assert.NoError(err)
	assert.Equal("t_order_2", res)

	_, err = alg.DoRangeSharding(orderTables, rng(shvalue.AtLeast(shvalue.Int(1))))
	assert.Error(err)

	allowing := standard(t, "INLINE", config.Props{
		"algorithm-expression":                   "t_order_${order_id % 4}",
		"allow-range-query-with-inline-sharding": true,
	})
	all, err := allowing.DoRangeSharding(orderTables, rng(shvalue.AtLeast(shvalue.Int(1))))
	assert.NoError(err)
	assert.Equal(orderTables, all)
}

func TestComplexInline(t *testing.T) {
	assert := assert.New(t)

	alg, err := algorithm.New("c", &config.AlgorithmCfg{Type: "COMPLEX_INLINE", Props: config.Props{
		"algorithm-expression": "t_order_${(user_id + order_id) % 4}",
		"sharding-columns":     "user_id, order_id",
	}})
	assert.NoError(err)
	c := alg.(algorithm.ComplexAlgorithm)

	res, err := c.DoSharding(orderTables, algorithm.ComplexValues{
		LogicTable: "t_order",
		Values: map[string][]shvalue.Value{
			"user_id":  {shvalue.Int(1), shvalue.Int(2)},
			"order_id": {shvalue.Int(1)},
		},
	})
	assert.NoError(err)
	assert.Equal([]string{"t_order_2", "t_order_3"}, res)

	_, err = c.DoSharding(orderTables, algorithm.ComplexValues{
		LogicTable: "t_order",
		Values:     map[string][]shvalue.Value{"user_id": {shvalue.Int(1)}},
	})
	assert.Error(err)

	_, err = c.DoSharding(orderTables, algorithm.ComplexValues{
		LogicTable: "t_order",
		Ranges:     map[string]shvalue.Range{"user_id": shvalue.AtLeast(shvalue.Int(1))},
	})
	assert.Error(err)
}

func TestHintInline(t *testing.T) {
	assert := assert.New(t)

	alg, err := algorithm.New("h", &config.AlgorithmCfg{Type: "HINT_INLINE", Props: config.Props{
		"algorithm-expression": "ds${value % 2}",
	}})
	assert.NoError(err)
	h := alg.(algorithm.HintAlgorithm)

	res, err := h.DoSharding(dataSources, algorithm.HintValues{Values: []shvalue.Value{shvalue.Int(3), shvalue.Int(4)}})
	assert.NoError(err)
	assert.Equal([]string{"ds1", "ds0"}, res)

	dflt, err := algorithm.New("h", &config.AlgorithmCfg{Type: "HINT_INLINE"})
	assert.NoError(err)
	res, err = dflt.(algorithm.HintAlgorithm).DoSharding(dataSources, algorithm.HintValues{Values: []shvalue.Value{shvalue.String("ds3")}})
	assert.NoError(err)
	assert.Equal([]string{"ds3"}, res)
}

func TestVolumeRange(t *testing.T) {
	assert := assert.New(t)
	// partitions: (-inf,10) [10,20) [20,30) [30,40) [40,+inf)
	alg := standard(t, "VOLUME_RANGE", config.Props{"range-lower": 10, "range-upper": 40, "sharding-volume": 10})
	targets := []string{"t_0", "t_1", "t_2", "t_3", "t_4"}

	type tcase struct {
		v   int64
		exp string
	}
	for _, tt := range []tcase{
		{v: -5, exp: "t_0"},
		{v: 10, exp: "t_1"},
		{v: 19, exp: "t_1"},
		{v: 35, exp: "t_3"},
		{v: 1000, exp: "t_4"},
	} {
		res, err := alg.DoSharding(targets, precise(shvalue.Int(tt.v)))
		assert.NoError(err)
		assert.Equal(tt.exp, res, tt.v)
	}

	res, err := alg.DoRangeSharding(targets, rng(shvalue.Closed(shvalue.Int(15), shvalue.Int(25))))
	assert.NoError(err)
	assert.Equal([]string{"t_1", "t_2"}, res)

	res, err = alg.DoRangeSharding(targets, rng(shvalue.ClosedOpen(shvalue.Int(15), shvalue.Int(20))))
	assert.NoError(err)
	assert.Equal([]string{"t_1"}, res)

	_, err = algorithm.New("x", &config.AlgorithmCfg{Type: "VOLUME_RANGE", Props: config.Props{"range-lower": 10, "range-upper": 5, "sharding-volume": 1}})
	assert.Error(err)
}

func TestBoundaryRange(t *testing.T) {
	assert := assert.New(t)
	alg := standard(t, "BOUNDARY_RANGE", config.Props{"sharding-ranges": "1, 5, 10"})
	targets := []string{"t_0", "t_1", "t_2", "t_3"}

	res, err := alg.DoSharding(targets, precise(shvalue.Int(5)))
	assert.NoError(err)
	assert.Equal("t_2", res)

	res, err = alg.DoSharding(targets, precise(shvalue.Int(0)))
	assert.NoError(err)
	assert.Equal("t_0", res)

	all, err := alg.DoRangeSharding(targets, rng(shvalue.AtMost(shvalue.Int(4))))
	assert.NoError(err)
	assert.Equal([]string{"t_0", "t_1"}, all)

	_, err = algorithm.New("x", &config.AlgorithmCfg{Type: "BOUNDARY_RANGE", Props: config.Props{"sharding-ranges": "5,1"}})
	assert.Error(err)
}

func TestInterval(t *testing.T) {
	assert := assert.New(t)
	alg := standard(t, "INTERVAL", config.Props{
		"datetime-pattern":         "2006-01-02",
		"datetime-lower":           "2024-01-01",
		"datetime-upper":           "2024-12-31",
		"sharding-suffix-pattern":  "200601",
		"datetime-interval-unit":   "months",
		"datetime-interval-amount": 1,
	})
	targets := []string{"t_log_202401", "t_log_202402", "t_log_202403", "t_log_202404"}

	res, err := alg.DoSharding(targets, precise(shvalue.String("2024-02-15")))
	assert.NoError(err)
	assert.Equal("t_log_202402", res)

	res, err = alg.DoSharding(targets, precise(shvalue.Time(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))))
	assert.NoError(err)
	assert.Equal("t_log_202403", res)

	_, err = alg.DoSharding(targets, precise(shvalue.String("2023-12-31")))
	assert.Error(err)

	_, err = alg.DoSharding(targets, precise(shvalue.String("2024-07-01")))
	assert.Error(err)

	many, err := alg.DoRangeSharding(targets, rng(shvalue.Closed(shvalue.String("2024-01-20"), shvalue.String("2024-03-05"))))
	assert.NoError(err)
	assert.Equal([]string{"t_log_202401", "t_log_202402", "t_log_202403"}, many)

	many, err = alg.DoRangeSharding(targets, rng(shvalue.AtLeast(shvalue.String("2024-04-02"))))
	assert.NoError(err)
	assert.Equal([]string{"t_log_202404"}, many)
}
