package algorithm

import (
	"fmt"
	"strings"
	"time"

	"github.com/shardgate/shardgate/pkg/config"
	"github.com/shardgate/shardgate/pkg/models/shvalue"
)

const IntervalType = "INTERVAL"

const (
	defaultDatetimePattern = "2006-01-02 15:04:05"
	maxIntervalWindows     = 100000
)

// Interval shards by time windows of a fixed length starting at datetime-lower.
// A window is served by the target whose name ends with the window start
// formatted with sharding-suffix-pattern (a Go time layout, e.g. "200601").
type Interval struct {
	pattern       string
	lower         time.Time
	upper         time.Time
	suffixPattern string
	amount        int
	unit          string
}

func newInterval(props config.Props) (Algorithm, error) {
	a := &Interval{pattern: defaultDatetimePattern, amount: 1, unit: "DAYS"}
	if p, ok := props.GetString("datetime-pattern"); ok && p != "" {
		a.pattern = p
	}
	lowerRaw, err := requireString(props, "datetime-lower")
	if err != nil {
		return nil, err
	}
	if a.lower, err = time.Parse(a.pattern, lowerRaw); err != nil {
		return nil, fmt.Errorf("invalid datetime-lower %q: %w", lowerRaw, err)
	}
	if upperRaw, ok := props.GetString("datetime-upper"); ok && upperRaw != "" {
		if a.upper, err = time.Parse(a.pattern, upperRaw); err != nil {
			return nil, fmt.Errorf("invalid datetime-upper %q: %w", upperRaw, err)
		}
	} else {
		a.upper = time.Now().UTC()
	}
	if !a.upper.After(a.lower) {
		return nil, fmt.Errorf("datetime-upper must be after datetime-lower")
	}
	if a.suffixPattern, err = requireString(props, "sharding-suffix-pattern"); err != nil {
		return nil, err
	}
	if amount, ok, err := props.GetInt("datetime-interval-amount"); err != nil {
		return nil, err
	} else if ok {
		if amount <= 0 {
			return nil, fmt.Errorf("datetime-interval-amount must be positive, got %d", amount)
		}
		a.amount = int(amount)
	}
	if unit, ok := props.GetString("datetime-interval-unit"); ok && unit != "" {
		a.unit = strings.ToUpper(unit)
	}
	if _, err := a.step(a.lower); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Interval) Type() string { return IntervalType }

func (a *Interval) step(t time.Time) (time.Time, error) {
	switch a.unit {
	case "SECONDS":
		return t.Add(time.Duration(a.amount) * time.Second), nil
	case "MINUTES":
		return t.Add(time.Duration(a.amount) * time.Minute), nil
	case "HOURS":
		return t.Add(time.Duration(a.amount) * time.Hour), nil
	case "DAYS":
		return t.AddDate(0, 0, a.amount), nil
	case "MONTHS":
		return t.AddDate(0, a.amount, 0), nil
	case "YEARS":
		return t.AddDate(a.amount, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown datetime-interval-unit %q", a.unit)
	}
}

func (a *Interval) toTime(v shvalue.Value) (time.Time, error) {
	if t, ok := v.TimeValue(); ok {
		return t, nil
	}
	if v.Kind() == shvalue.KindString || v.Kind() == shvalue.KindBytes {
		return time.Parse(a.pattern, v.Str())
	}
	return time.Time{}, fmt.Errorf("sharding value %s (%s) is not a datetime", v, v.Kind())
}

// windows visits every window [start, end) intersecting [from, to] within
// [lower, upper], stopping when visit returns false.
func (a *Interval) windows(from, to time.Time, visit func(start time.Time) bool) error {
	start := a.lower
	for i := 0; !start.After(a.upper) && !start.After(to); i++ {
		if i > maxIntervalWindows {
			return fmt.Errorf("interval layout exceeds %d windows", maxIntervalWindows)
		}
		end, err := a.step(start)
		if err != nil {
			return err
		}
		if end.After(from) {
			if !visit(start) {
				return nil
			}
		}
		start = end
	}
	return nil
}

func (a *Interval) matchSuffix(targets []string, start time.Time) (string, bool) {
	suffix := start.Format(a.suffixPattern)
	for _, t := range targets {
		if strings.HasSuffix(t, suffix) {
			return t, true
		}
	}
	return "", false
}

func (a *Interval) DoSharding(targets []string, v PreciseValue) (string, error) {
	t, err := a.toTime(v.Value)
	if err != nil {
		return "", err
	}
	if t.Before(a.lower) || t.After(a.upper) {
		return "", fmt.Errorf("datetime %s is outside of [%s, %s]", t.Format(a.pattern), a.lower.Format(a.pattern), a.upper.Format(a.pattern))
	}
	var res string
	var found bool
	err = a.windows(t, t, func(start time.Time) bool {
		res, found = a.matchSuffix(targets, start)
		return false
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no target for datetime %s", t.Format(a.pattern))
	}
	return res, nil
}

func (a *Interval) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	from, to := a.lower, a.upper
	if v.Range.HasLower() {
		t, err := a.toTime(v.Range.Lower.Value)
		if err != nil {
			return nil, err
		}
		if t.After(from) {
			from = t
		}
	}
	if v.Range.HasUpper() {
		t, err := a.toTime(v.Range.Upper.Value)
		if err != nil {
			return nil, err
		}
		if t.Before(to) {
			to = t
		}
	}
	matched := map[string]struct{}{}
	err := a.windows(from, to, func(start time.Time) bool {
		if t, ok := a.matchSuffix(targets, start); ok {
			matched[t] = struct{}{}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(matched))
	for _, t := range targets {
		if _, ok := matched[t]; ok {
			res = append(res, t)
		}
	}
	return res, nil
}
