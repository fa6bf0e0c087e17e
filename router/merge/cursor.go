package merge

import (
	"github.com/shardgate/shardgate/pkg/models/sgerror"
)

// rowSource yields merged rows. A nil row with nil error means exhausted.
type rowSource interface {
	next() ([]any, error)
}

type streamSource struct {
	qr QueryResult
}

func (s *streamSource) next() ([]any, error) {
	if !s.qr.Next() {
		return nil, s.qr.Err()
	}
	n := len(s.qr.Columns())
	row := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := s.qr.Value(i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

type iteratorSource struct {
	streams []*streamSource
	cur     int
}

func newIteratorSource(streams []*streamSource) *iteratorSource {
	return &iteratorSource{streams: streams}
}

func (s *iteratorSource) next() ([]any, error) {
	for s.cur < len(s.streams) {
		row, err := s.streams[s.cur].next()
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
		s.cur++
	}
	return nil, nil
}

type memorySource struct {
	rows [][]any
	pos  int
}

func (s *memorySource) next() ([]any, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

type paginationSource struct {
	src      rowSource
	offset   int64
	rowCount int64
	limited  bool

	skipped  bool
	returned int64
}

func (s *paginationSource) next() ([]any, error) {
	if !s.skipped {
		s.skipped = true
		for i := int64(0); i < s.offset; i++ {
			row, err := s.src.next()
			if err != nil || row == nil {
				return nil, err
			}
		}
	}
	if s.limited && s.returned >= s.rowCount {
		return nil, nil
	}
	row, err := s.src.next()
	if err != nil || row == nil {
		return nil, err
	}
	s.returned++
	return row, nil
}

// cursor adapts a rowSource to MergedResult.
type cursor struct {
	src     rowSource
	streams []QueryResult
	columns []string
	visible int

	row    []any
	err    error
	done   bool
	closed bool
}

var _ MergedResult = &cursor{}

func newCursor(src rowSource, streams []QueryResult, columns []string, visible int) *cursor {
	return &cursor{
		src:     src,
		streams: streams,
		columns: columns,
		visible: visible,
	}
}

func (c *cursor) Columns() []string {
	return c.columns[:c.visible]
}

func (c *cursor) Next() bool {
	if c.closed {
		c.err = sgerror.New(sgerror.SG_STREAM_CLOSED, "merged result is closed")
		return false
	}
	if c.done || c.err != nil {
		return false
	}
	row, err := c.src.next()
	if err != nil {
		c.err = err
		c.row = nil
		return false
	}
	if row == nil {
		c.done = true
		c.row = nil
		return false
	}
	c.row = row
	return true
}

func (c *cursor) Value(i int) (any, error) {
	if c.closed {
		return nil, sgerror.New(sgerror.SG_STREAM_CLOSED, "merged result is closed")
	}
	if c.row == nil {
		return nil, sgerror.New(sgerror.SG_UNEXPECTED, "no current row")
	}
	if i < 0 || i >= c.visible || i >= len(c.row) {
		return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "column index %d out of range", i)
	}
	return c.row[i], nil
}

func (c *cursor) Row() []any {
	if c.row == nil {
		return nil
	}
	n := c.visible
	if n > len(c.row) {
		n = len(c.row)
	}
	res := make([]any, n)
	copy(res, c.row[:n])
	return res
}

func (c *cursor) Err() error {
	return c.err
}

// Close closes every input stream and reports the first failure.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.row = nil

	var first error
	for _, s := range c.streams {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
