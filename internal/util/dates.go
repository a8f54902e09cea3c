package util

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// ParseDay accepts YYYY-MM-DD or RFC3339. An empty string yields nil.
func ParseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	t = t.UTC()
	return &t, nil
}

// ParseDayEnd is ParseDay with date-only values moved to the last millisecond of that day.
func ParseDayEnd(s string) (*time.Time, error) {
	t, err := ParseDay(s)
	if err != nil || t == nil {
		return t, err
	}
	if len(s) == len(DayLayout) {
		end := t.Add(24*time.Hour - time.Millisecond)
		return &end, nil
	}
	return t, nil
}
