// Package strategy dispatches sharding conditions of one logic table to the
// configured sharding algorithm.
package strategy

import (
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/pkg/algorithm"
	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

type Strategy interface {
	iStrategy()
	String() string
}

type Standard struct {
	Column    string
	Algorithm algorithm.StandardAlgorithm
}

type Complex struct {
	Columns   []string
	Algorithm algorithm.ComplexAlgorithm
}

type Hint struct {
	Algorithm algorithm.HintAlgorithm
}

type None struct{}

func (*Standard) iStrategy() {}
func (*Complex) iStrategy()  {}
func (*Hint) iStrategy()     {}
func (None) iStrategy()      {}

func (s *Standard) String() string {
	return fmt.Sprintf("standard(%s, %s)", s.Column, s.Algorithm.Type())
}

func (s *Complex) String() string {
	return fmt.Sprintf("complex(%s, %s)", strings.Join(s.Columns, ","), s.Algorithm.Type())
}

func (s *Hint) String() string {
	return fmt.Sprintf("hint(%s)", s.Algorithm.Type())
}

func (None) String() string { return "none" }

// Columns returns the sharding columns s reads from conditions.
func Columns(s Strategy) []string {
	switch st := s.(type) {
	case *Standard:
		return []string{st.Column}
	case *Complex:
		return st.Columns
	default:
		return nil
	}
}

// Input is everything a strategy may look at for one logic table.
type Input struct {
	LogicTable string
	// Values are the conditions of a single OR branch on this table.
	Values []shcond.ConditionValue
	// HintValues are used by hint strategies only. HintPresent tells an
	// empty hint apart from a missing one.
	HintValues  []shvalue.Value
	HintPresent bool
}

func (in Input) lookup(column string) (shcond.ConditionValue, bool) {
	for _, v := range in.Values {
		if v.Column == column {
			return v, true
		}
	}
	return shcond.ConditionValue{}, false
}

// DoSharding narrows targets down to the ones the input can reach. The result
// keeps the order of targets and holds no duplicates. An unrestricted column
// yields every target.
func DoSharding(s Strategy, targets []string, in Input) ([]string, error) {
	var (
		res []string
		err error
	)

	switch st := s.(type) {
	case *Standard:
		res, err = doStandard(st, targets, in)
	case *Complex:
		res, err = doComplex(st, targets, in)
	case *Hint:
		if !in.HintPresent {
			return targets, nil
		}
		res, err = st.Algorithm.DoSharding(targets, algorithm.HintValues{
			LogicTable: in.LogicTable,
			Values:     in.HintValues,
		})
		if err != nil {
			err = wrapAlgorithmErr(in.LogicTable, st.Algorithm, err)
		}
	case None, *None, nil:
		return targets, nil
	default:
		return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "unknown sharding strategy %T", s)
	}
	if err != nil {
		return nil, err
	}
	return filterTargets(in.LogicTable, targets, res)
}

func doStandard(st *Standard, targets []string, in Input) ([]string, error) {
	cv, ok := in.lookup(st.Column)
	if !ok {
		return targets, nil
	}

	switch cv.Operator {
	case shcond.Range:
		res, err := st.Algorithm.DoRangeSharding(targets, algorithm.RangeValue{
			LogicTable: in.LogicTable,
			Column:     st.Column,
			Range:      cv.Range,
		})
		if err != nil {
			return nil, wrapAlgorithmErr(in.LogicTable, st.Algorithm, err)
		}
		return res, nil
	default:
		res := make([]string, 0, len(cv.Values))
		for _, v := range cv.Values {
			t, err := st.Algorithm.DoSharding(targets, algorithm.PreciseValue{
				LogicTable: in.LogicTable,
				Column:     st.Column,
				Value:      v,
			})
			if err != nil {
				return nil, wrapAlgorithmErr(in.LogicTable, st.Algorithm, err)
			}
			res = append(res, t)
		}
		return res, nil
	}
}

func doComplex(st *Complex, targets []string, in Input) ([]string, error) {
	cvs := algorithm.ComplexValues{
		LogicTable: in.LogicTable,
		Values:     map[string][]shvalue.Value{},
		Ranges:     map[string]shvalue.Range{},
	}
	for _, col := range st.Columns {
		cv, ok := in.lookup(col)
		if !ok {
			return targets, nil
		}
		if cv.Operator == shcond.Range {
			cvs.Ranges[col] = cv.Range
		} else {
			cvs.Values[col] = cv.Values
		}
	}
	res, err := st.Algorithm.DoSharding(targets, cvs)
	if err != nil {
		return nil, wrapAlgorithmErr(in.LogicTable, st.Algorithm, err)
	}
	return res, nil
}

func wrapAlgorithmErr(table string, alg algorithm.Algorithm, err error) error {
	return sgerror.Newf(sgerror.SG_ALGORITHM, "algorithm %s failed for table %s: %w", alg.Type(), table, err)
}

// filterTargets orders res like targets and drops duplicates. A name outside
// targets means the algorithm does not fit the data nodes it is bound to.
func filterTargets(table string, targets []string, res []string) ([]string, error) {
	seen := make(map[string]struct{}, len(res))
	for _, r := range res {
		seen[r] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			out = append(out, t)
			delete(seen, t)
		}
	}
	if len(seen) != 0 {
		for _, r := range res {
			if _, ok := seen[r]; ok {
				return nil, sgerror.Newf(sgerror.SG_CONFIG, "sharding result %q of table %s is not among %v", r, table, targets)
			}
		}
	}
	return out, nil
}

// FromConfig builds a strategy out of its configuration and the named algorithms.
func FromConfig(cfg *config.StrategyCfg, algs map[string]algorithm.Algorithm, norm func(string) string) (Strategy, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == config.NoneStrategy {
		return None{}, nil
	}

	alg, ok := algs[cfg.AlgorithmName]
	if !ok {
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "sharding algorithm %q is not defined", cfg.AlgorithmName)
	}

	switch cfg.Type {
	case config.StandardStrategy:
		a, ok := alg.(algorithm.StandardAlgorithm)
		if !ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q (%s) cannot serve a standard strategy", cfg.AlgorithmName, alg.Type())
		}
		return &Standard{Column: norm(cfg.ShardingColumn), Algorithm: a}, nil
	case config.ComplexStrategy:
		a, ok := alg.(algorithm.ComplexAlgorithm)
		if !ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q (%s) cannot serve a complex strategy", cfg.AlgorithmName, alg.Type())
		}
		cols := make([]string, len(cfg.ShardingColumns))
		for i, c := range cfg.ShardingColumns {
			cols[i] = norm(c)
		}
		return &Complex{Columns: cols, Algorithm: a}, nil
	case config.HintStrategy:
		a, ok := alg.(algorithm.HintAlgorithm)
		if !ok {
			return nil, sgerror.Newf(sgerror.SG_CONFIG, "algorithm %q (%s) cannot serve a hint strategy", cfg.AlgorithmName, alg.Type())
		}
		return &Hint{Algorithm: a}, nil
	default:
		return nil, sgerror.Newf(sgerror.SG_CONFIG, "unknown strategy type %q", cfg.Type)
	}
}
