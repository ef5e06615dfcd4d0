package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"canonical", "2024-01-01T09:00:00", "2024-01-01T09:00:00", true},
		{"no seconds", "2024-01-01T09:00", "2024-01-01T09:00:00", true},
		{"fractional seconds with tz", "2024-01-01T09:00:00.000000+00:00", "2024-01-01T09:00:00", true},
		{"zulu suffix", "2024-01-01T09:00:00Z", "2024-01-01T09:00:00", true},
		{"space separator", "2024-01-01 09:00:00", "2024-01-01T09:00:00", true},
		{"unpadded hour", "2024-01-01T9:00", "2024-01-01T09:00:00", true},
		{"whitespace", "  2024-01-01T09:00:00  ", "2024-01-01T09:00:00", true},
		{"date only", "2024-01-01", "", false},
		{"bad date", "2024-13-40T09:00:00", "", false},
		{"bad minute", "2024-01-01T09:xx:00", "", false},
		{"three-digit hour", "2024-01-01T123:45:00", "", false},
		{"three-digit minute", "2024-01-01T09:005:00", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeKey(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"09:00", "09:00", true},
		{"9:00", "09:00", true},
		{"9:5", "09:05", true},
		{"16:00", "16:00", true},
		{"24:00", "", false},
		{"123:45", "", false},
		{"09", "", false},
		{"morning", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeTime(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeySet(t *testing.T) {
	set := NewKeySet(
		"2024-01-01T09:00:00.000000+00:00",
		"2024-01-02 11:00:00",
		"not a timestamp",
	)

	// Unparseable entries are skipped, not fatal.
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("2024-01-01T09:00"))
	assert.True(t, set.Contains("2024-01-02T11:00:00Z"))
	assert.False(t, set.Contains("2024-01-01T11:00:00"))
	assert.False(t, set.Contains("garbage"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2024-01-01T09:00:00", Key("2024-01-01", "09:00"))
}
