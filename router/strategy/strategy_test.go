package strategy_test

import (
	"strings"
	"testing"

	"github.com/shardgate/shardgate/pkg/algorithm"
	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/router/strategy"
	"github.com/stretchr/testify/assert"
)

var tables = []string{"t_order_0", "t_order_1", "t_order_2", "t_order_3"}

func mustAlg(t *testing.T, typ string, props config.Props) algorithm.Algorithm {
	t.Helper()
	alg, err := algorithm.New(typ, &config.AlgorithmCfg{Type: typ, Props: props})
	assert.NoError(t, err)
	return alg
}

func eq(col string, vals ...int64) shcond.ConditionValue {
	cv := shcond.ConditionValue{Table: "t_order", Column: col, Operator: shcond.Equal}
	if len(vals) > 1 {
		cv.Operator = shcond.In
	}
	for _, v := range vals {
		cv.Values = append(cv.Values, shvalue.Int(v))
	}
	return cv
}

func TestStandard(t *testing.T) {
	assert := assert.New(t)

	st := &strategy.Standard{
		Column:    "order_id",
		Algorithm: mustAlg(t, algorithm.ModType, config.Props{"sharding-count": 4}).(algorithm.StandardAlgorithm),
	}

	type tcase struct {
		name   string
		values []shcond.ConditionValue
		exp    []string
	}

	for _, tt := range []tcase{
		{
			name:   "equal",
			values: []shcond.ConditionValue{eq("order_id", 10)},
			exp:    []string{"t_order_2"},
		},
		{
			name:   "in keeps target order and dedups",
			values: []shcond.ConditionValue{eq("order_id", 7, 1, 5, 3)},
			exp:    []string{"t_order_1", "t_order_3"},
		},
		{
			name: "range",
			values: []shcond.ConditionValue{{
				Table: "t_order", Column: "order_id", Operator: shcond.Range,
				Range: shvalue.Closed(shvalue.Int(5), shvalue.Int(6)),
			}},
			exp: []string{"t_order_1", "t_order_2"},
		},
		{
			name:   "uncovered column",
			values: []shcond.ConditionValue{eq("user_id", 1)},
			exp:    tables,
		},
		{
			name: "no conditions",
			exp:  tables,
		},
	} {
		res, err := strategy.DoSharding(st, tables, strategy.Input{LogicTable: "t_order", Values: tt.values})
		assert.NoError(err, tt.name)
		assert.Equal(tt.exp, res, tt.name)
	}
}

func TestStandardErrors(t *testing.T) {
	assert := assert.New(t)

	st := &strategy.Standard{
		Column:    "order_id",
		Algorithm: mustAlg(t, algorithm.InlineType, config.Props{"algorithm-expression": "t_order_${order_id % 8}"}).(algorithm.StandardAlgorithm),
	}

	_, err := strategy.DoSharding(st, tables, strategy.Input{LogicTable: "t_order", Values: []shcond.ConditionValue{eq("order_id", 6)}})
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))

	res, err := strategy.DoSharding(st, tables, strategy.Input{LogicTable: "t_order", Values: []shcond.ConditionValue{eq("order_id", 3)}})
	assert.NoError(err)
	assert.Equal([]string{"t_order_3"}, res)

	_, err = strategy.DoSharding(st, tables, strategy.Input{LogicTable: "t_order", Values: []shcond.ConditionValue{{
		Table: "t_order", Column: "order_id", Operator: shcond.Range, Range: shvalue.AtLeast(shvalue.Int(1)),
	}}})
	assert.True(sgerror.HasCode(err, sgerror.SG_ALGORITHM))
}

func TestComplexAndHint(t *testing.T) {
	assert := assert.New(t)

	cx := &strategy.Complex{
		Columns: []string{"order_id", "user_id"},
		Algorithm: mustAlg(t, algorithm.ComplexInlineType, config.Props{
			"algorithm-expression": "t_order_${(order_id + user_id) % 4}",
		}).(algorithm.ComplexAlgorithm),
	}

	res, err := strategy.DoSharding(cx, tables, strategy.Input{
		LogicTable: "t_order",
		Values:     []shcond.ConditionValue{eq("order_id", 1), eq("user_id", 1, 2)},
	})
	assert.NoError(err)
	assert.Equal([]string{"t_order_2", "t_order_3"}, res)

	res, err = strategy.DoSharding(cx, tables, strategy.Input{
		LogicTable: "t_order",
		Values:     []shcond.ConditionValue{eq("order_id", 1)},
	})
	assert.NoError(err)
	assert.Equal(tables, res)

	h := &strategy.Hint{
		Algorithm: mustAlg(t, algorithm.HintInlineType, config.Props{
			"algorithm-expression": "t_order_${value % 4}",
		}).(algorithm.HintAlgorithm),
	}

	res, err = strategy.DoSharding(h, tables, strategy.Input{LogicTable: "t_order", Values: []shcond.ConditionValue{eq("order_id", 1)}})
	assert.NoError(err)
	assert.Equal(tables, res)

	res, err = strategy.DoSharding(h, tables, strategy.Input{
		LogicTable:  "t_order",
		HintValues:  []shvalue.Value{shvalue.Int(6)},
		HintPresent: true,
	})
	assert.NoError(err)
	assert.Equal([]string{"t_order_2"}, res)

	res, err = strategy.DoSharding(strategy.None{}, tables, strategy.Input{Values: []shcond.ConditionValue{eq("order_id", 1)}})
	assert.NoError(err)
	assert.Equal(tables, res)
}

func TestFromConfig(t *testing.T) {
	assert := assert.New(t)

	algs := map[string]algorithm.Algorithm{
		"mod":  mustAlg(t, algorithm.ModType, config.Props{"sharding-count": 4}),
		"hint": mustAlg(t, algorithm.HintInlineType, config.Props{"algorithm-expression": "ds${value}"}),
	}

	s, err := strategy.FromConfig(&config.StrategyCfg{
		Type: config.StandardStrategy, ShardingColumn: "Order_ID", AlgorithmName: "mod",
	}, algs, strings.ToLower)
	assert.NoError(err)
	assert.Equal([]string{"order_id"}, strategy.Columns(s))
	assert.Equal("standard(order_id, MOD)", s.String())

	s, err = strategy.FromConfig(nil, algs, strings.ToLower)
	assert.NoError(err)
	assert.Equal(strategy.None{}, s)

	_, err = strategy.FromConfig(&config.StrategyCfg{
		Type: config.StandardStrategy, ShardingColumn: "order_id", AlgorithmName: "hint",
	}, algs, strings.ToLower)
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))

	_, err = strategy.FromConfig(&config.StrategyCfg{
		Type: config.HintStrategy, AlgorithmName: "missing",
	}, algs, strings.ToLower)
	assert.True(sgerror.HasCode(err, sgerror.SG_CONFIG))
}
