// Package booking holds the slot selection state machine and the booking
// flow that ties window resolution, reservation collection and slot
// generation together.
package booking

import (
	"errors"
	"sync"
	"time"

	"vizit/internal/model"
)

// State represents the selection state relative to the requested session
// count.
type State string

const (
	StateEmpty   State = "empty"
	StatePartial State = "partial"
	StateFull    State = "full"
)

var (
	// ErrQuotaExceeded is returned when toggling on a slot beyond the
	// requested session count. A validation failure, not retried; state is
	// left untouched.
	ErrQuotaExceeded = errors.New("booking: session quota exceeded")
	// ErrSlotUnavailable is returned when the toggled start is not an
	// available candidate on the current grid.
	ErrSlotUnavailable = errors.New("booking: slot not available")
)

// Selection is the state machine for picking exactly the requested number
// of non-overlapping slots. Owned exclusively by one booking flow instance;
// partial selections are never persisted.
type Selection struct {
	mu sync.Mutex

	durationMinutes int
	sessionCount    int
	selected        []time.Time
	available       map[int64]bool // unix seconds of available starts
}

// NewSelection creates a selection for the given duration and session count.
func NewSelection(durationMinutes, sessionCount int) *Selection {
	return &Selection{
		durationMinutes: durationMinutes,
		sessionCount:    sessionCount,
		available:       make(map[int64]bool),
	}
}

// SetGrid installs the available candidates of a freshly computed grid.
// The selection survives only if every previously selected instant is still
// available; otherwise it resets to empty.
func (s *Selection) SetGrid(available []model.CandidateSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.available = make(map[int64]bool, len(available))
	for _, c := range available {
		s.available[c.Start.Unix()] = true
	}

	for _, sel := range s.selected {
		if !s.available[sel.Unix()] {
			s.selected = nil
			return
		}
	}
}

// Toggle flips the selection of a slot start. Selecting beyond the quota
// returns ErrQuotaExceeded; selecting a start absent from the available
// grid returns ErrSlotUnavailable. Neither mutates state.
func (s *Selection) Toggle(start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sel := range s.selected {
		if sel.Equal(start) {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return nil
		}
	}

	if !s.available[start.Unix()] {
		return ErrSlotUnavailable
	}
	if len(s.selected) >= s.sessionCount {
		return ErrQuotaExceeded
	}

	s.selected = append(s.selected, start)
	return nil
}

// SetDuration replaces the requested duration and unconditionally clears
// the selection: the candidate grid the old selection was made against is
// no longer valid.
func (s *Selection) SetDuration(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durationMinutes = minutes
	s.selected = nil
}

// SetSessionCount replaces the requested session count and unconditionally
// clears the selection.
func (s *Selection) SetSessionCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionCount = count
	s.selected = nil
}

// Clear drops the current selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// State returns empty, partial or full relative to the session count.
func (s *Selection) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(s.selected) == 0:
		return StateEmpty
	case len(s.selected) >= s.sessionCount:
		return StateFull
	default:
		return StatePartial
	}
}

// IsSubmittable reports whether exactly the requested number of slots is
// selected. Submission is blocked client-side otherwise.
func (s *Selection) IsSubmittable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCount > 0 && len(s.selected) == s.sessionCount
}

// Selected returns the selected starts in selection order.
func (s *Selection) Selected() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.selected))
	copy(out, s.selected)
	return out
}

// SelectedCount returns the number of selected slots.
func (s *Selection) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// DurationMinutes returns the requested session duration.
func (s *Selection) DurationMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMinutes
}

// SessionCount returns the requested session count.
func (s *Selection) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCount
}
