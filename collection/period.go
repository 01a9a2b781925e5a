package collection

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD KEY - Calendar-day bucket
// =============================================================================

const periodLayout = "2006-01-02"

// PeriodKey identifies one collection period, formatted YYYY-MM-DD.
// Keys sort lexically in calendar order.
type PeriodKey string

// KeyOf returns the period of t in t's own location. Callers that want a
// specific timezone convert first: KeyOf(t.In(loc)).
func KeyOf(t time.Time) PeriodKey {
	return PeriodKey(t.Format(periodLayout))
}

// ParsePeriodKey validates s and returns it as a key.
func ParsePeriodKey(s string) (PeriodKey, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid period key %q: %w", s, err)
	}
	return KeyOf(t), nil
}

// IsMutable reports whether key is today's period.
func IsMutable(key, today PeriodKey) bool {
	return key == today
}

// Time returns midnight of the period in loc.
func (k PeriodKey) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(periodLayout, string(k), loc)
}

func (k PeriodKey) String() string { return string(k) }
