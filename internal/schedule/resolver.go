// Package schedule resolves a provider's working window for a calendar date.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vizit/internal/clinicapi"
	"vizit/internal/model"
)

// ErrNoSchedule means the provider has no schedule configured for the date.
// Callers show "no availability", not an error banner.
var ErrNoSchedule = errors.New("schedule: not configured")

// DateFormat is the calendar-date wire format.
const DateFormat = "2006-01-02"

// Source supplies working windows. Implemented by clinicapi.Client.
type Source interface {
	GetSchedule(ctx context.Context, providerID, date string) (*clinicapi.ScheduleResponse, error)
}

// Resolver is a pure lookup over a schedule source. Deterministic given the
// same backing data; no computation beyond validation.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver backed by the given source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the provider's working window for the date. ErrNoSchedule
// when nothing is configured. A holiday window is returned as-is with
// IsHoliday set; slot generation treats it as having zero slots.
func (r *Resolver) Resolve(ctx context.Context, providerID string, date time.Time) (*model.WorkingWindow, error) {
	resp, err := r.source.GetSchedule(ctx, providerID, date.Format(DateFormat))
	if err != nil {
		if errors.Is(err, clinicapi.ErrNoSchedule) {
			return nil, ErrNoSchedule
		}
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	window := &model.WorkingWindow{
		Date:      date,
		Start:     resp.Start,
		End:       resp.End,
		IsHoliday: resp.IsHoliday,
	}

	if !window.IsHoliday && !window.Start.Before(window.End) {
		return nil, fmt.Errorf("schedule: invalid window %s..%s", window.Start, window.End)
	}
	return window, nil
}
