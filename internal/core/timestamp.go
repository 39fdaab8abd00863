package core

import (
	"strings"
	"time"
)

// Layouts tried, in order, by ParseTimestamp. Layouts without an offset are
// read in the caller's location.
var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.000Z0700", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02", true},
}

// ParseTimestamp parses a record timestamp. The second return value is
// false for empty or unparseable input; it never panics. The result is
// expressed in loc so calendar comparisons happen on the local calendar.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, l := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if l.local {
			t, err = time.ParseInLocation(l.layout, raw, loc)
		} else {
			t, err = time.Parse(l.layout, raw)
		}
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
