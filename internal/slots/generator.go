// Package slots quantizes a working window into candidate slots and
// partitions them against existing reservations.
package slots

import (
	"time"

	"vizit/internal/model"
)

// DefaultDurationMinutes is used when a non-positive duration is requested.
const DefaultDurationMinutes = 30

// MaxDurationMinutes caps the requested duration at one day. A session can
// never outlast the working window, and an unbounded duration would overflow
// the step arithmetic.
const MaxDurationMinutes = 24 * 60

// Generate quantizes the window into candidate start instants stepped by the
// requested duration. Candidates that would run past the window end are
// discarded; for the current date, candidates starting before now are
// skipped entirely (no partial-slot offsetting). Durations above
// MaxDurationMinutes yield no candidates. Pure function: identical inputs
// yield identical, order-stable output.
//
// The step is the requested duration, not the provider's native granularity,
// so changing the duration changes the whole grid; selections made against
// the old grid must be invalidated by the caller.
func Generate(window *model.WorkingWindow, durationMinutes int, now time.Time) []model.CandidateSlot {
	if window == nil || window.IsHoliday || window.IsZero() {
		return nil
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if durationMinutes > MaxDurationMinutes {
		return nil
	}

	step := time.Duration(durationMinutes) * time.Minute
	sameDay := sameDate(window.Date, now)

	var candidates []model.CandidateSlot
	for cursor := window.Start; !cursor.Add(step).After(window.End); cursor = cursor.Add(step) {
		if sameDay && cursor.Before(now) {
			continue
		}
		candidates = append(candidates, model.CandidateSlot{
			Start:           cursor,
			End:             cursor.Add(step),
			DurationMinutes: durationMinutes,
			Status:          model.StatusAvailable,
		})
	}
	return candidates
}

// Partition splits candidates into available and booked against the fetched
// reservations. The overlap test is half-open and uses each reservation's
// original duration, so a long candidate conflicting with the tail of a
// short reservation (or vice versa) is still classified booked.
func Partition(candidates []model.CandidateSlot, booked []model.BookedInterval) (available, conflicted []model.CandidateSlot) {
	for _, c := range candidates {
		if overlapsAny(c, booked) {
			c.Status = model.StatusBooked
			conflicted = append(conflicted, c)
		} else {
			c.Status = model.StatusAvailable
			available = append(available, c)
		}
	}
	return available, conflicted
}

// Grid combines Generate and Partition into the full candidate grid in
// window order, statuses resolved.
func Grid(window *model.WorkingWindow, durationMinutes int, now time.Time, booked []model.BookedInterval) []model.CandidateSlot {
	candidates := Generate(window, durationMinutes, now)
	for i := range candidates {
		if overlapsAny(candidates[i], booked) {
			candidates[i].Status = model.StatusBooked
		}
	}
	return candidates
}

func overlapsAny(c model.CandidateSlot, booked []model.BookedInterval) bool {
	for _, b := range booked {
		if b.Overlaps(c.Start, c.End) {
			return true
		}
	}
	return false
}

// sameDate compares calendar days in UTC: window instants come off the wire
// in UTC, now may carry the server's local zone.
func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.UTC().Date()
	y2, m2, d2 := b.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
