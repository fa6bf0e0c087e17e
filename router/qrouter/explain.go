package qrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/router/condition"
	"github.com/shardgate/shardgate/router/stmt"
)

// Explain routes st bypassing the cache and renders the sharding conditions
// together with the resulting route.
func (qr *ShardingRouter) Explain(ctx context.Context, st *stmt.Statement, params []any) (string, error) {
	conds, err := condition.Extract(ctx, st, qr.rule, params)
	if err != nil {
		return "", err
	}
	rc, err := qr.RouteWithConditions(ctx, st, conds)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("conditions: ")
	sb.WriteString(conds.String())
	sb.WriteString("\n")
	sb.WriteString(rc.String())
	for _, gk := range rc.GeneratedKeys {
		sb.WriteString(fmt.Sprintf("\ngenerated key: row %d %s.%s = %v", gk.Row, gk.Table, gk.Column, gk.Value))
	}
	return sb.String(), nil
}
