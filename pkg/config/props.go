package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Props holds algorithm and key generator properties. Values come from
// toml (int64), json (float64) or yaml (int); the getters normalise them.
type Props map[string]any

func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Props) GetString(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch vv := v.(type) {
	case string:
		return vv, true
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64), true
	default:
		return fmt.Sprint(vv), true
	}
}

func (p Props) GetInt(key string) (int64, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch vv := v.(type) {
	case int:
		return int64(vv), true, nil
	case int64:
		return vv, true, nil
	case int32:
		return int64(vv), true, nil
	case uint64:
		return int64(vv), true, nil
	case float64:
		if vv != float64(int64(vv)) {
			return 0, true, fmt.Errorf("property %q: %v is not an integer", key, vv)
		}
		return int64(vv), true, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(vv), 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("property %q: %w", key, err)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("property %q: unsupported type %T", key, v)
	}
}

func (p Props) GetBool(key string) (bool, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, false, nil
	}
	switch vv := v.(type) {
	case bool:
		return vv, true, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(vv))
		if err != nil {
			return false, true, fmt.Errorf("property %q: %w", key, err)
		}
		return b, true, nil
	default:
		return false, true, fmt.Errorf("property %q: unsupported type %T", key, v)
	}
}
