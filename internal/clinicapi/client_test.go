package clinicapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchedule(t *testing.T) {
	var hits int
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/schedule/prov-1", r.URL.Path)
		assert.Equal(t, "2026-09-10", r.URL.Query().Get("date"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		_ = json.NewEncoder(w).Encode(ScheduleResponse{
			Start: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC),
		})
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "secret")
	resp, err := client.GetSchedule(context.Background(), "prov-1", "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, 9, resp.Start.Hour())
	assert.False(t, resp.IsHoliday)
	assert.Equal(t, 1, hits)
}

func TestGetScheduleNotFound(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "")
	_, err := client.GetSchedule(context.Background(), "prov-1", "2026-09-10")
	assert.ErrorIs(t, err, ErrNoSchedule)
}

func TestGetScheduleRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var hits int
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(ScheduleResponse{
			Start: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC),
		})
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "")
	client.UseRedisCache(rdb, time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := client.GetSchedule(context.Background(), "prov-1", "2026-09-10")
		require.NoError(t, err)
		assert.Equal(t, 18, resp.End.Hour())
	}
	assert.Equal(t, 1, hits, "second and third lookups must come from cache")
}

func TestGetReservationsNeverCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var hits int
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/reservations/prov-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]ReservationRecord{
			{ID: "r1", SelectedSlots: []string{"2026-09-10T09:00:00Z"}, Duration: "30 minutes"},
		})
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "")
	client.UseRedisCache(rdb, time.Minute)

	for i := 0; i < 2; i++ {
		records, err := client.GetReservations(context.Background(), "prov-1", "2026-09-10")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "30 minutes", records[0].Duration)
	}
	assert.Equal(t, 2, hits, "reservation fetches must always hit the backend")
}

func TestSubmitReservation(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/reservations", r.URL.Path)

		var req SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "prov-1", req.ProviderID)
		assert.NotEmpty(t, req.IdempotencyKey)

		_ = json.NewEncoder(w).Encode(SubmitResponse{ReservationID: "res-7"})
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "")
	resp, err := client.SubmitReservation(context.Background(), SubmitRequest{
		ProviderID:      "prov-1",
		ClientID:        "client-1",
		SelectedSlots:   []string{"2026-09-10T09:00:00Z"},
		DurationMinutes: 30,
		SessionCount:    1,
		TotalFee:        1500,
	})
	require.NoError(t, err)
	assert.Equal(t, "res-7", resp.ReservationID)
}

func TestSubmitReservationConflict(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer backend.Close()

	client := NewClient(backend.URL, "")
	_, err := client.SubmitReservation(context.Background(), SubmitRequest{ProviderID: "prov-1"})
	assert.ErrorIs(t, err, ErrSlotConflict)
}
