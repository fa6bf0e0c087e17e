package executor

import (
	"github.com/jmoiron/sqlx"

	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/router/merge"
)

// rowsResult streams the rows of one route unit.
type rowsResult struct {
	ds      string
	rows    *sqlx.Rows
	columns []string

	cur    []any
	err    error
	closed bool
}

var _ merge.QueryResult = &rowsResult{}

func newRowsResult(ds string, rows *sqlx.Rows) (*rowsResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &rowsResult{ds: ds, rows: rows, columns: columns}, nil
}

func (r *rowsResult) Columns() []string {
	return r.columns
}

func (r *rowsResult) Next() bool {
	if r.closed {
		r.err = sgerror.Newf(sgerror.SG_STREAM_CLOSED, "result of %s is closed", r.ds)
		return false
	}
	r.cur = nil
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "%s: %v", r.ds, err)
		}
		return false
	}
	vals, err := r.rows.SliceScan()
	if err != nil {
		r.err = sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "%s: %v", r.ds, err)
		return false
	}
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = string(b)
		}
	}
	r.cur = vals
	return true
}

func (r *rowsResult) Value(i int) (any, error) {
	if r.closed {
		return nil, sgerror.Newf(sgerror.SG_STREAM_CLOSED, "result of %s is closed", r.ds)
	}
	if r.cur == nil {
		return nil, sgerror.New(sgerror.SG_UNEXPECTED, "no current row")
	}
	if i < 0 || i >= len(r.cur) {
		return nil, sgerror.Newf(sgerror.SG_UNEXPECTED, "column index %d out of range", i)
	}
	return r.cur[i], nil
}

func (r *rowsResult) Err() error {
	return r.err
}

func (r *rowsResult) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cur = nil
	return r.rows.Close()
}
