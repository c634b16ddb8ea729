package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vizit/internal/clinicapi"
)

type fakeSource struct {
	records []clinicapi.ReservationRecord
	err     error
	onFetch func()
}

func (f *fakeSource) GetReservations(_ context.Context, _, _ string) ([]clinicapi.ReservationRecord, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestCollectExpandsMultiSessionReservations(t *testing.T) {
	source := &fakeSource{
		records: []clinicapi.ReservationRecord{
			{
				ID:       "r1",
				Duration: "30 minutes",
				SelectedSlots: []string{
					"2026-09-10T09:00:00Z",
					"2026-09-10T10:00:00Z",
					"2026-09-10T11:00:00Z",
				},
			},
			{
				ID:            "r2",
				Duration:      "1 hour",
				SelectedSlots: []string{"2026-09-10T14:00:00Z"},
			},
		},
	}
	collector := NewCollector(source)

	intervals, err := collector.Collect(context.Background(), "prov-1", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Three 30-minute intervals, not one long one, plus the 60-minute single.
	require.Len(t, intervals, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "r1", intervals[i].ReservationID)
		assert.Equal(t, 30, intervals[i].DurationMinutes)
	}
	assert.Equal(t, 60, intervals[3].DurationMinutes)
	assert.Equal(t, intervals[3].Start.Add(time.Hour), intervals[3].End())
}

func TestCollectFailureIsNotEmptyList(t *testing.T) {
	source := &fakeSource{err: errors.New("backend down")}
	collector := NewCollector(source)

	intervals, err := collector.Collect(context.Background(), "prov-1", time.Now())
	require.Error(t, err)
	assert.Nil(t, intervals)
}

func TestCollectSupersededFetchIsDiscarded(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{
		records: []clinicapi.ReservationRecord{
			{ID: "stale", Duration: "30 minutes", SelectedSlots: []string{"2026-09-10T09:00:00Z"}},
		},
	}
	collector := NewCollector(source)

	// The second fetch starts while the first is still in flight; the first
	// result must be discarded so stale data never overwrites newer data.
	first := true
	source.onFetch = func() {
		if first {
			first = false
			nested, err := collector.Collect(context.Background(), "prov-1", date)
			require.NoError(t, err)
			assert.Len(t, nested, 1)
		}
	}

	_, err := collector.Collect(context.Background(), "prov-1", date)
	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestCollectBadSlotInstant(t *testing.T) {
	source := &fakeSource{
		records: []clinicapi.ReservationRecord{
			{ID: "r1", Duration: "30 minutes", SelectedSlots: []string{"not-a-time"}},
		},
	}
	collector := NewCollector(source)

	_, err := collector.Collect(context.Background(), "prov-1", time.Now())
	assert.Error(t, err)
}

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"30 minutes", 30},
		{"45 minutes", 45},
		{"1 hour", 60},
		{"2 hours", 120},
		{"1 hour 30 minutes", 90},
		{"90 min", 90},
		{"45", 45},
		{"", 30},          // fallback
		{"soonish", 30},   // fallback
		{"0 minutes", 30}, // fallback: zero is not a session length
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDurationMinutes(tt.input))
		})
	}
}
