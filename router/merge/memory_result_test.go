package merge

import "github.com/shardgate/shardgate/pkg/models/sgerror"

// MemoryResult is a QueryResult over rows already held in memory. It is built
// only into tests, where it stands in for shard streams.
type MemoryResult struct {
	columns []string
	rows    [][]any
	pos     int
	closed  bool
	err     error
}

var _ QueryResult = &MemoryResult{}

func NewMemoryResult(columns []string, rows [][]any) *MemoryResult {
	return &MemoryResult{columns: columns, rows: rows, pos: -1}
}

func (r *MemoryResult) Columns() []string { return r.columns }

func (r *MemoryResult) Next() bool {
	if r.closed {
		r.err = sgerror.New(sgerror.SG_STREAM_CLOSED, "result is closed")
		return false
	}
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

func (r *MemoryResult) Value(i int) (any, error) {
	if r.closed {
		return nil, sgerror.New(sgerror.SG_STREAM_CLOSED, "result is closed")
	}
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, sgerror.New(sgerror.SG_UNEXPECTED, "no current row")
	}
	row := r.rows[r.pos]
	if i < 0 || i >= len(row) {
		return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "column index %d out of range", i)
	}
	return row[i], nil
}

func (r *MemoryResult) Err() error { return r.err }

func (r *MemoryResult) Close() error {
	r.closed = true
	return nil
}
