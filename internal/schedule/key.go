package schedule

import (
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Key builds the canonical datetime key for a date and HH:MM time:
// YYYY-MM-DDTHH:MM:00, second granularity, timezone-naive.
func Key(date, hhmm string) string {
	return date + "T" + hhmm + ":00"
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// NormalizeTime coerces a time-of-day into zero-padded HH:MM. "9:5" becomes
// "09:05". Returns false when the value is not a valid time of day.
func NormalizeTime(s string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return "", false
	}
	hh, ok := twoDigits(parts[0])
	if !ok {
		return "", false
	}
	mm, ok := twoDigits(parts[1])
	if !ok {
		return "", false
	}
	if _, err := time.Parse(timeLayout, hh+":"+mm); err != nil {
		return "", false
	}
	return hh + ":" + mm, true
}

// NormalizeKey maps an arbitrarily serialized store timestamp onto the
// canonical key. Stored values may carry seconds, fractional seconds or a
// timezone suffix ("2024-01-01T09:00:00.000000+00:00"); matching is on
// date + hour + minute only.
func NormalizeKey(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Replace(s, " ", "T", 1)
	datePart, timePart, found := strings.Cut(s, "T")
	if !found {
		return "", false
	}
	if _, err := time.Parse(dateLayout, datePart); err != nil {
		return "", false
	}
	fields := strings.Split(timePart, ":")
	if len(fields) < 2 {
		return "", false
	}
	hh, ok := twoDigits(fields[0])
	if !ok {
		return "", false
	}
	mm, ok := twoDigits(fields[1])
	if !ok {
		return "", false
	}
	if _, err := time.Parse(timeLayout, hh+":"+mm); err != nil {
		return "", false
	}
	return Key(datePart, hh+":"+mm), true
}

// twoDigits extracts a zero-padded one- or two-digit field, dropping anything
// after the first non-digit (fractional seconds, timezone offsets). Three or
// more leading digits reject the field rather than truncating it onto a
// different time.
func twoDigits(s string) (string, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || end > 2 {
		return "", false
	}
	d := s[:end]
	if len(d) == 1 {
		d = "0" + d
	}
	return d, true
}

// KeySet is a normalized set of occupied datetime keys.
type KeySet map[string]struct{}

// NewKeySet normalizes raw store timestamps into a key set. Unparseable
// values are skipped rather than failing the whole snapshot.
func NewKeySet(raws ...string) KeySet {
	set := make(KeySet, len(raws))
	for _, raw := range raws {
		if key, ok := NormalizeKey(raw); ok {
			set[key] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the normalized form of raw is in the set.
func (s KeySet) Contains(raw string) bool {
	key, ok := NormalizeKey(raw)
	if !ok {
		return false
	}
	_, taken := s[key]
	return taken
}
