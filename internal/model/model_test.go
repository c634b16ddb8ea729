package model

import (
	"testing"
	"time"
)

func TestBookedIntervalOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 30, 0, 0, time.UTC)
	interval := BookedInterval{Start: base, DurationMinutes: 30} // 09:30–10:00

	tests := []struct {
		name       string
		start, end time.Time
		expected   bool
	}{
		{"identical", base, base.Add(30 * time.Minute), true},
		{"contains tail", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"contains head", base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"covers entirely", base.Add(-time.Hour), base.Add(time.Hour), true},
		{"back-to-back before", base.Add(-30 * time.Minute), base, false},
		{"back-to-back after", base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"disjoint", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interval.Overlaps(tt.start, tt.end); got != tt.expected {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.expected)
			}
		})
	}
}

func TestBookedIntervalEnd(t *testing.T) {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	b := BookedInterval{Start: start, DurationMinutes: 45}
	if want := start.Add(45 * time.Minute); !b.End().Equal(want) {
		t.Errorf("End() = %v, want %v", b.End(), want)
	}
}
