package schema

import (
	"fmt"
	"time"
)

// Month is a canonical "YYYY-MM" calendar month key. The month axis of a
// repository is the contiguous sorted sequence of Months from its first
// observed month to its last; there are no gaps in the axis, though
// individual channel cells within a month may be absent.
type Month string

// layout is the on-disk / wire representation of a Month.
const layout = "2006-01"

// NewMonth formats a time.Time into its canonical Month key, in UTC, per
// calendar month (day and time-of-day are discarded).
func NewMonth(t time.Time) Month {
	return Month(t.UTC().Format(layout))
}

// ParseMonth validates and normalizes a "YYYY-MM" string into a Month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", s, err)
	}
	return NewMonth(t), nil
}

// Time returns the first instant (UTC midnight) of the month.
func (m Month) Time() (time.Time, error) {
	t, err := time.Parse(layout, string(m))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", m, err)
	}
	return t, nil
}

// Add returns the month n calendar months after m (n may be negative).
// Add panics if m is not a valid Month; callers are expected to only ever
// hold validated Month values once constructed via NewMonth/ParseMonth.
func (m Month) Add(n int) Month {
	t, err := m.Time()
	if err != nil {
		panic(err)
	}
	return NewMonth(t.AddDate(0, n, 0))
}

// Before reports whether m sorts strictly before other as calendar months.
func (m Month) Before(other Month) bool {
	return string(m) < string(other)
}

// MonthRange returns the contiguous, gap-free sequence of months from first
// to last inclusive. It returns an error if first is after last.
func MonthRange(first, last Month) ([]Month, error) {
	if last.Before(first) {
		return nil, fmt.Errorf("month range: first %q is after last %q", first, last)
	}
	var months []Month
	for cur := first; ; cur = cur.Add(1) {
		months = append(months, cur)
		if cur == last {
			break
		}
	}
	return months, nil
}

// IsGapFree reports whether consecutive entries of axis differ by exactly
// one calendar month, as required of every stored MonthlyPanel axis (§8.3).
func IsGapFree(axis []Month) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i-1].Add(1) != axis[i] {
			return false
		}
	}
	return true
}
