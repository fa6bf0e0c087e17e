package merge

import (
	"sort"

	"github.com/shardgate/shardgate/router/stmt"
)

// groupStreamSource folds consecutive rows of equal group key. Its input must
// be ordered by the group columns.
type groupStreamSource struct {
	src   rowSource
	items []stmt.OrderItem
	aggs  []stmt.Aggregation

	pending []any
	done    bool
}

func newGroupStreamSource(src rowSource, items []stmt.OrderItem, aggs []stmt.Aggregation) *groupStreamSource {
	return &groupStreamSource{src: src, items: items, aggs: aggs}
}

func (s *groupStreamSource) next() ([]any, error) {
	if s.done {
		return nil, nil
	}
	first := s.pending
	s.pending = nil
	if first == nil {
		row, err := s.src.next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			s.done = true
			return nil, nil
		}
		first = row
	}

	acc, err := newGroupAcc(first, s.aggs)
	if err != nil {
		return nil, err
	}
	for {
		row, err := s.src.next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			s.done = true
			break
		}
		if groupKey(row, s.items) != groupKey(first, s.items) {
			s.pending = row
			break
		}
		if err := acc.add(row); err != nil {
			return nil, err
		}
	}
	return acc.result(), nil
}

// groupMemorySource reads every row, folds groups and then sorts them by
// ORDER BY, or keeps the order in which groups were first seen.
type groupMemorySource struct {
	src     rowSource
	items   []stmt.OrderItem
	aggs    []stmt.Aggregation
	orderBy []stmt.OrderItem

	loaded bool
	out    memorySource
}

func newGroupMemorySource(src rowSource, items []stmt.OrderItem, aggs []stmt.Aggregation, orderBy []stmt.OrderItem) *groupMemorySource {
	return &groupMemorySource{src: src, items: items, aggs: aggs, orderBy: orderBy}
}

func (s *groupMemorySource) load() error {
	groups := map[string]*groupAcc{}
	var order []*groupAcc

	for {
		row, err := s.src.next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		key := groupKey(row, s.items)
		if acc, ok := groups[key]; ok {
			if err := acc.add(row); err != nil {
				return err
			}
			continue
		}
		acc, err := newGroupAcc(row, s.aggs)
		if err != nil {
			return err
		}
		groups[key] = acc
		order = append(order, acc)
	}

	rows := make([][]any, len(order))
	for i, acc := range order {
		rows[i] = acc.result()
	}
	if len(s.orderBy) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return compareRows(rows[i], rows[j], s.orderBy) < 0
		})
	}
	s.out = memorySource{rows: rows}
	return nil
}

func (s *groupMemorySource) next() ([]any, error) {
	if !s.loaded {
		s.loaded = true
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s.out.next()
}
