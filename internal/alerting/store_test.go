package alerting

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestDurationToPgInterval(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected pgtype.Interval
	}{
		{
			name:     "zero duration",
			duration: 0,
			expected: pgtype.Interval{Microseconds: 0, Valid: true},
		},
		{
			name:     "1 second",
			duration: time.Second,
			expected: pgtype.Interval{Microseconds: 1000000, Valid: true},
		},
		{
			name:     "10 minutes",
			duration: 10 * time.Minute,
			expected: pgtype.Interval{Microseconds: 600000000, Valid: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := durationToPgInterval(tt.duration); got != tt.expected {
				t.Errorf("got %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestIntervalToDuration(t *testing.T) {
	tests := []struct {
		name     string
		interval pgtype.Interval
		expected time.Duration
	}{
		{
			name:     "invalid interval is zero",
			interval: pgtype.Interval{},
			expected: 0,
		},
		{
			name:     "microseconds only",
			interval: pgtype.Interval{Microseconds: 1500000, Valid: true},
			expected: 1500 * time.Millisecond,
		},
		{
			name:     "days component",
			interval: pgtype.Interval{Days: 2, Valid: true},
			expected: 48 * time.Hour,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intervalToDuration(tt.interval); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
