package qrouter

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/shardgate/shardgate/pkg/models/shcond"
	"github.com/shardgate/shardgate/pkg/sglog"
	"github.com/shardgate/shardgate/router/cache"
	"github.com/shardgate/shardgate/router/condition"
	"github.com/shardgate/shardgate/router/route"
	"github.com/shardgate/shardgate/router/routehint"
	"github.com/shardgate/shardgate/router/rule"
	"github.com/shardgate/shardgate/router/statistics"
	"github.com/shardgate/shardgate/router/stmt"
)

type QueryRouter interface {
	// Route extracts sharding conditions of st and decides which data nodes
	// execute it. Hints are taken from ctx.
	Route(ctx context.Context, st *stmt.Statement, params []any) (*route.RouteContext, error)
	RouteWithConditions(ctx context.Context, st *stmt.Statement, conds *shcond.Conditions) (*route.RouteContext, error)

	Rule() *rule.ShardingRule
}

type ShardingRouter struct {
	rule  *rule.ShardingRule
	cache *cache.RouteCache
	stats *statistics.Collector
}

var _ QueryRouter = &ShardingRouter{}

// NewShardingRouter builds a router over r. Both rc and stats may be nil.
func NewShardingRouter(r *rule.ShardingRule, rc *cache.RouteCache, stats *statistics.Collector) *ShardingRouter {
	return &ShardingRouter{
		rule:  r,
		cache: rc,
		stats: stats,
	}
}

func (qr *ShardingRouter) Rule() *rule.ShardingRule {
	return qr.rule
}

func (qr *ShardingRouter) Cache() *cache.RouteCache {
	return qr.cache
}

// Route implements QueryRouter.
func (qr *ShardingRouter) Route(ctx context.Context, st *stmt.Statement, params []any) (*route.RouteContext, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "route")
	defer span.Finish()
	span.SetTag("kind", st.Kind.String())

	if qr.stats != nil {
		defer qr.stats.RecordSince(statistics.Route, time.Now())
	}

	compute := func() (*route.RouteContext, error) {
		conds, err := condition.Extract(ctx, st, qr.rule, params)
		if err != nil {
			return nil, err
		}
		return qr.RouteWithConditions(ctx, st, conds)
	}

	if !qr.cacheable(st) {
		return compute()
	}

	key, err := cache.NewKey(st.SQL, params, routehint.FromContext(ctx))
	if err != nil {
		sglog.Zero.Debug().Err(err).Msg("statement parameters are not cacheable")
		return compute()
	}
	span.SetTag("fingerprint", key.Fingerprint())
	return qr.cache.GetOrCompute(ctx, key, compute)
}

// cacheable rejects statements whose route carries generated keys, which
// differ on every execution.
func (qr *ShardingRouter) cacheable(st *stmt.Statement) bool {
	if qr.cache == nil || !qr.cache.Enabled() || st.SQL == "" {
		return false
	}
	if st.Kind == stmt.Insert && st.Insert != nil {
		tr, ok := qr.rule.TableRule(qr.rule.Normalize(st.Insert.Table))
		if !ok {
			return true
		}
		columns := make([]string, len(st.Insert.Columns))
		for i, c := range st.Insert.Columns {
			columns[i] = qr.rule.Normalize(c)
		}
		return !tr.NeedsKeyGeneration(columns)
	}
	return true
}
