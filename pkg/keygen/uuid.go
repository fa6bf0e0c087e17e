package keygen

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shardgate/shardgate/pkg/config"
)

const UUIDType = "UUID"

// UUIDGenerator produces random (v4) UUIDs without dashes.
type UUIDGenerator struct{}

func (UUIDGenerator) Type() string { return UUIDType }

func (UUIDGenerator) NextKey(_ context.Context) (any, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}

func newUUIDFromProps(string, config.Props, Env) (Generator, error) {
	return UUIDGenerator{}, nil
}
