package merge

import (
	"container/heap"

	"github.com/shardgate/shardgate/router/stmt"
)

type heapEntry struct {
	row []any
	idx int
}

type rowHeap struct {
	entries []heapEntry
	items   []stmt.OrderItem
}

func (h *rowHeap) Len() int { return len(h.entries) }

// Less breaks ties by stream index, so equal rows keep route unit order.
func (h *rowHeap) Less(i, j int) bool {
	if c := compareRows(h.entries[i].row, h.entries[j].row, h.items); c != 0 {
		return c < 0
	}
	return h.entries[i].idx < h.entries[j].idx
}

func (h *rowHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *rowHeap) Push(x any) { h.entries = append(h.entries, x.(heapEntry)) }

func (h *rowHeap) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return e
}

// orderedSource is a k-way merge of streams each sorted by items. After the
// first row it only advances the stream the previous row came from.
type orderedSource struct {
	streams []*streamSource
	h       *rowHeap
	primed  bool
	last    int
}

func newOrderedSource(streams []*streamSource, items []stmt.OrderItem) *orderedSource {
	return &orderedSource{
		streams: streams,
		h:       &rowHeap{items: items},
		last:    -1,
	}
}

func (s *orderedSource) advance(idx int) error {
	row, err := s.streams[idx].next()
	if err != nil {
		return err
	}
	if row != nil {
		heap.Push(s.h, heapEntry{row: row, idx: idx})
	}
	return nil
}

func (s *orderedSource) next() ([]any, error) {
	if !s.primed {
		s.primed = true
		for i := range s.streams {
			if err := s.advance(i); err != nil {
				return nil, err
			}
		}
	} else if s.last >= 0 {
		idx := s.last
		s.last = -1
		if err := s.advance(idx); err != nil {
			return nil, err
		}
	}

	if s.h.Len() == 0 {
		return nil, nil
	}
	e := heap.Pop(s.h).(heapEntry)
	s.last = e.idx
	return e.row, nil
}
