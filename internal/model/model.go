// Package model defines the scheduling domain types shared across the engine.
package model

import "time"

// SlotStatus classifies a generated candidate slot.
type SlotStatus string

const (
	// StatusAvailable means the slot does not overlap any existing reservation.
	StatusAvailable SlotStatus = "available"
	// StatusBooked means the slot conflicts with an existing reservation.
	// Purely a not-selectable marker; elapsed slots are never emitted at all.
	StatusBooked SlotStatus = "booked"
)

// WorkingWindow is the instant range during which a provider accepts
// bookings on a given date.
type WorkingWindow struct {
	Date      time.Time `json:"date"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	IsHoliday bool      `json:"is_holiday"`
}

// IsZero reports whether the window is absent.
func (w WorkingWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// BookedInterval is a time range already committed by a prior reservation.
// Immutable once fetched for a given (provider, date).
type BookedInterval struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	ReservationID   string    `json:"reservation_id"`
}

// End returns the interval end derived from its original duration.
func (b BookedInterval) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps checks the interval against [start, end) using half-open
// semantics: [A, B) and [C, D) overlap iff A < D && C < B. The end
// boundary is exclusive so back-to-back slots never conflict.
func (b BookedInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End())
}

// CandidateSlot is a generated, not-yet-committed bookable time range of
// the requested duration. Never persisted; recomputed on every parameter
// change.
type CandidateSlot struct {
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          SlotStatus `json:"status"`
}

// FeeQuote is the total price derived from a per-session base fee.
type FeeQuote struct {
	BaseFee   int64 `json:"base_fee"`
	UnitCount int   `json:"unit_count"`
	TotalFee  int64 `json:"total_fee"`
}
