// Package executor is a reference execution layer: it sends the rewritten
// statement of every route unit to its datasource through database/sql and
// hands the per-unit results to the merger.
package executor

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/opentracing/opentracing-go"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/sgerror"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/merge"
	"github.com/shardgate/shardgate/router/rfqn"
	"github.com/shardgate/shardgate/router/route"
	"github.com/shardgate/shardgate/router/statistics"
	"github.com/shardgate/shardgate/router/stmt"
)

const defaultPingRetries = 3

type Executor struct {
	dbs   map[string]*sqlx.DB
	rw    Rewriter
	stats *statistics.Collector
}

// New wraps already opened datasources. norm must be the identifier
// normalizer of the sharding rule.
func New(dbs map[string]*sqlx.DB, norm rfqn.Normalizer) *Executor {
	return &Executor{dbs: dbs, rw: Rewriter{Normalize: norm}}
}

// Open connects to every datasource and pings it, retrying with a fibonacci
// backoff.
func Open(ctx context.Context, cfgs map[string]*config.DataSourceCfg, norm rfqn.Normalizer) (*Executor, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	dbs := make(map[string]*sqlx.DB, len(cfgs))
	closeAll := func() {
		for _, db := range dbs {
			_ = db.Close()
		}
	}

	for _, name := range names {
		cfg := cfgs[name]
		db, err := sqlx.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			closeAll()
			return nil, sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "open %s: %v", name, err)
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		dbs[name] = db

		retries := cfg.PingRetries
		if retries <= 0 {
			retries = defaultPingRetries
		}
		if err := retry.Do(ctx, retry.WithMaxRetries(uint64(retries), retry.NewFibonacci(100*time.Millisecond)), func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				sglog.Zero.Debug().Str("datasource", name).Err(err).Msg("ping failed, retrying")
				return retry.RetryableError(err)
			}
			return nil
		}); err != nil {
			closeAll()
			return nil, sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "ping %s: %v", name, err)
		}
		sglog.Zero.Info().Str("datasource", name).Str("driver", cfg.Driver).Msg("datasource connected")
	}
	return New(dbs, norm), nil
}

// WithStatistics makes the executor record execution time into c.
func (e *Executor) WithStatistics(c *statistics.Collector) *Executor {
	e.stats = c
	return e
}

// WithGroupOrderPushedDown tells that shards return GROUP BY results ordered
// by the group items. It must match the merge engine setting.
func (e *Executor) WithGroupOrderPushedDown(b bool) *Executor {
	e.rw.GroupOrderPushedDown = b
	return e
}

func (e *Executor) DB(name string) (*sqlx.DB, bool) {
	db, ok := e.dbs[name]
	return db, ok
}

func (e *Executor) Close() error {
	var first error
	for name, db := range e.dbs {
		if err := db.Close(); err != nil {
			sglog.Zero.Error().Str("datasource", name).Err(err).Msg("failed to close datasource")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (e *Executor) db(name string) (*sqlx.DB, error) {
	db, ok := e.dbs[name]
	if !ok {
		return nil, sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "datasource %q is not connected", name)
	}
	return db, nil
}

// Query runs st on every unit of rc in parallel. Results are returned in unit
// order and stay open until the caller closes them, usually through the
// merged result. Canceling ctx aborts the streams.
func (e *Executor) Query(ctx context.Context, st *stmt.Statement, rc *route.RouteContext, params []any) ([]merge.QueryResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "execute")
	defer span.Finish()
	span.SetTag("units", len(rc.Units))
	if e.stats != nil {
		defer e.stats.RecordSince(statistics.Execute, time.Now())
	}

	results := make([]*rowsResult, len(rc.Units))
	// no errgroup context: it is canceled once Wait returns, and the rows
	// are read after that
	var g errgroup.Group
	for i, u := range rc.Units {
		i, u := i, u
		g.Go(func() error {
			db, err := e.db(u.DataSourceName)
			if err != nil {
				return err
			}
			query, args, err := e.rw.Rewrite(st, rc, u, params)
			if err != nil {
				return err
			}
			sglog.Zero.Debug().Str("datasource", u.DataSourceName).Str("query", query).Msg("executing query")
			rows, err := db.QueryxContext(ctx, query, args...)
			if err != nil {
				return sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "%s: %v", u.DataSourceName, err)
			}
			res, err := newRowsResult(u.DataSourceName, rows)
			if err != nil {
				return sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "%s: %v", u.DataSourceName, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range results {
			if r != nil {
				_ = r.Close()
			}
		}
		return nil, err
	}

	streams := make([]merge.QueryResult, len(results))
	for i, r := range results {
		streams[i] = r
	}
	return streams, nil
}

// Exec runs a statement that returns no rows on every unit of rc and sums
// the affected row counts.
func (e *Executor) Exec(ctx context.Context, st *stmt.Statement, rc *route.RouteContext, params []any) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "execute")
	defer span.Finish()
	span.SetTag("units", len(rc.Units))
	if e.stats != nil {
		defer e.stats.RecordSince(statistics.Execute, time.Now())
	}

	affected := make([]int64, len(rc.Units))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range rc.Units {
		i, u := i, u
		g.Go(func() error {
			db, err := e.db(u.DataSourceName)
			if err != nil {
				return err
			}
			query, args, err := e.rw.Rewrite(st, rc, u, params)
			if err != nil {
				return err
			}
			sglog.Zero.Debug().Str("datasource", u.DataSourceName).Str("query", query).Msg("executing statement")
			res, err := db.ExecContext(gctx, query, args...)
			if err != nil {
				return sgerror.Newf(sgerror.SG_DATASOURCE_FAIL, "%s: %v", u.DataSourceName, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				affected[i] = n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range affected {
		total += n
	}
	return total, nil
}
