// Package reservations fetches and normalizes existing reservations into
// booked intervals.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"vizit/internal/clinicapi"
	"vizit/internal/model"
)

// DefaultSessionMinutes is the platform's minimum session length, used as a
// fallback when an upstream duration cannot be parsed.
const DefaultSessionMinutes = 30

// ErrSuperseded means a newer fetch was started while this one was in
// flight; the result must be discarded, never merged.
var ErrSuperseded = errors.New("reservations: fetch superseded")

// Source supplies raw reservation records. Implemented by clinicapi.Client.
type Source interface {
	GetReservations(ctx context.Context, providerID, date string) ([]clinicapi.ReservationRecord, error)
}

// Collector retrieves reservations for a (provider, date) pair and expands
// them into one BookedInterval per booked sub-slot. A collector is owned by
// a single booking flow; concurrent fetches race by generation and only the
// newest result survives.
type Collector struct {
	source Source
	gen    atomic.Uint64
}

// NewCollector creates a collector backed by the given source.
func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

// Collect fetches and normalizes reservations for the date. A fetch failure
// is returned as an error, never as an empty list: an empty list from a
// failed fetch would silently permit double-booking. If a newer Collect was
// started meanwhile, the result is dropped and ErrSuperseded returned.
func (c *Collector) Collect(ctx context.Context, providerID string, date time.Time) ([]model.BookedInterval, error) {
	token := c.gen.Add(1)

	records, err := c.source.GetReservations(ctx, providerID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("fetch reservations: %w", err)
	}
	if c.gen.Load() != token {
		return nil, ErrSuperseded
	}

	var intervals []model.BookedInterval
	for _, rec := range records {
		minutes := ParseDurationMinutes(rec.Duration)

		// A multi-session reservation occupies one interval per sub-slot,
		// each with the full per-session duration, not one long interval.
		for _, raw := range rec.SelectedSlots {
			start, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("parse slot %q of reservation %s: %w", raw, rec.ID, err)
			}
			intervals = append(intervals, model.BookedInterval{
				Start:           start,
				DurationMinutes: minutes,
				ReservationID:   rec.ID,
			})
		}
	}
	return intervals, nil
}

// ParseDurationMinutes parses a free-text duration ("30 minutes", "1 hour",
// "1 hour 30 minutes", "45") into integral minutes. Unparsable input falls
// back to DefaultSessionMinutes.
func ParseDurationMinutes(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSessionMinutes
	}

	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}

	total := 0
	fields := strings.Fields(s)
	for i := 0; i < len(fields)-1; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(fields[i+1], "hour"), strings.HasPrefix(fields[i+1], "hr"):
			total += n * 60
		case strings.HasPrefix(fields[i+1], "min"):
			total += n
		}
	}

	if total <= 0 {
		return DefaultSessionMinutes
	}
	return total
}
