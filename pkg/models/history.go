package models

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the key format of History: a local calendar date.
const DateLayout = "2006-01-02"

// DateKey formats t as a history key in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a history key as a local calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// History maps a date key to the completion flags recorded that day.
// An explicit false and an absent entry both mean "not completed".
type History map[string]map[int]bool

// Completed reports whether taskID is marked done on date.
func (h History) Completed(date string, taskID int) bool {
	return h[date][taskID]
}

// Dates returns the date keys in ascending order.
func (h History) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Clone returns a deep copy.
func (h History) Clone() History {
	out := make(History, len(h))
	for date, day := range h {
		c := make(map[int]bool, len(day))
		for id, v := range day {
			c[id] = v
		}
		out[date] = c
	}
	return out
}
