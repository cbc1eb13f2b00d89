package utils

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2025-03-14T15:00:00Z", time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)},
		{"sqlite datetime", "2025-03-14 15:00:00", time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)},
		{"garbage", "not a time", time.Time{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTime(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("ParseTime(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
