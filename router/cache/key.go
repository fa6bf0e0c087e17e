package cache

import (
	"strconv"
	"strings"

	"github.com/go-faster/city"

	"github.com/shardgate/shardgate/pkg/models/shvalue"
	"github.com/shardgate/shardgate/router/routehint"
)

// Key identifies a routing decision: the exact statement text, the bound
// parameter tuple and the hint. It is comparable and used as map key.
type Key struct {
	sql    string
	params string
	hint   string
}

// NewKey encodes params kind-tagged, so 1 and '1' never share a key.
func NewKey(sql string, params []any, hint routehint.RouteHint) (Key, error) {
	var sb strings.Builder
	for _, p := range params {
		v, err := shvalue.FromAny(p)
		if err != nil {
			return Key{}, err
		}
		k := v.Key()
		sb.WriteString(strconv.Itoa(len(k)))
		sb.WriteByte(':')
		sb.WriteString(k)
	}
	key := Key{sql: sql, params: sb.String()}
	if hint != nil {
		key.hint = hint.CacheKey()
	}
	return key, nil
}

func (k Key) SQL() string { return k.sql }

func (k Key) String() string {
	return strconv.Itoa(len(k.sql)) + ":" + k.sql + "|" + k.params + "|" + k.hint
}

// Fingerprint is a short hash of the key, for logs only.
func (k Key) Fingerprint() uint64 {
	return city.Hash64([]byte(k.String()))
}
