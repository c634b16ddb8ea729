package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vizit/internal/clinicapi"
	"vizit/internal/metrics"
	"vizit/internal/model"
	"vizit/internal/reservations"
	"vizit/internal/schedule"
	"vizit/internal/slots"
)

var (
	// ErrNotSubmittable is returned when Submit is called before exactly the
	// requested number of slots is selected.
	ErrNotSubmittable = errors.New("booking: selection incomplete")
	// ErrSubmissionConflict means a selected slot was taken between fetch
	// and submit; the caller must refresh and re-select.
	ErrSubmissionConflict = errors.New("booking: slot taken, re-select required")
	// ErrRefreshRequired is returned when the grid is stale after a failed
	// fetch or a submission conflict; an explicit Refresh must succeed first.
	ErrRefreshRequired = errors.New("booking: refresh required")
)

// Submitter posts reservations to the authoritative backend. Implemented by
// clinicapi.Client.
type Submitter interface {
	SubmitReservation(ctx context.Context, req clinicapi.SubmitRequest) (*clinicapi.SubmitResponse, error)
}

// Flow is one booking attempt for a single (provider, date) pair: it owns
// the working window, the fetched reservations, the computed grid and the
// selection. The client is optimistic; the at-most-one-booking guarantee is
// the backend's, enforced at submission time.
type Flow struct {
	resolver  *schedule.Resolver
	collector *reservations.Collector
	submitter Submitter
	logger    zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	providerID string
	clientID   string
	date       time.Time
	baseFee    int64

	window     *model.WorkingWindow
	booked     []model.BookedInterval
	available  []model.CandidateSlot
	conflicted []model.CandidateSlot

	selection *Selection
	stale     bool // fetch failed or conflict seen; grid blocked until Refresh
}

// FlowConfig carries the parameters of a booking flow.
type FlowConfig struct {
	ProviderID      string
	ClientID        string
	Date            time.Time
	DurationMinutes int
	SessionCount    int
	BaseFee         int64
}

// NewFlow creates a booking flow. The grid is empty and stale until the
// first successful Refresh.
func NewFlow(resolver *schedule.Resolver, collector *reservations.Collector, submitter Submitter, cfg FlowConfig, logger zerolog.Logger) *Flow {
	return &Flow{
		resolver:   resolver,
		collector:  collector,
		submitter:  submitter,
		logger:     logger.With().Str("provider_id", cfg.ProviderID).Logger(),
		now:        time.Now,
		providerID: cfg.ProviderID,
		clientID:   cfg.ClientID,
		date:       cfg.Date,
		baseFee:    cfg.BaseFee,
		selection:  NewSelection(cfg.DurationMinutes, cfg.SessionCount),
		stale:      true,
	}
}

// SetNow overrides the clock, for tests.
func (f *Flow) SetNow(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// SetDate switches the flow to another date. The window, reservations and
// grid are invalid until the next Refresh; the selection is cleared.
func (f *Flow) SetDate(date time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.date = date
	f.window = nil
	f.booked = nil
	f.available, f.conflicted = nil, nil
	f.selection.Clear()
	f.selection.SetGrid(nil)
	f.stale = true
}

// Refresh re-resolves the working window, re-collects reservations and
// recomputes the grid. A fetch failure fails closed: the grid is emptied
// and the error surfaced, never treated as "no reservations". A missing
// schedule or a holiday yields an empty grid without error.
func (f *Flow) Refresh(ctx context.Context) error {
	f.mu.Lock()
	providerID, date := f.providerID, f.date
	f.mu.Unlock()

	window, err := f.resolver.Resolve(ctx, providerID, date)
	if err != nil && !errors.Is(err, schedule.ErrNoSchedule) {
		metrics.IncFetchFailure("schedule")
		f.blockGrid()
		return err
	}

	var booked []model.BookedInterval
	if window != nil && !window.IsHoliday {
		booked, err = f.collector.Collect(ctx, providerID, date)
		if errors.Is(err, reservations.ErrSuperseded) {
			// A newer refresh owns the state now; drop this result.
			return err
		}
		if err != nil {
			metrics.IncFetchFailure("reservations")
			f.blockGrid()
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = window
	f.booked = booked
	f.recomputeLocked()
	f.stale = false
	f.logger.Debug().
		Time("date", date).
		Int("available", len(f.available)).
		Int("booked", len(f.conflicted)).
		Msg("grid refreshed")
	return nil
}

// recomputeLocked rebuilds the candidate grid from the cached window and
// reservations and feeds the available set to the selection, which clears
// itself if any previously selected start fell off the grid.
func (f *Flow) recomputeLocked() {
	candidates := slots.Generate(f.window, f.selection.DurationMinutes(), f.now())
	f.available, f.conflicted = slots.Partition(candidates, f.booked)
	f.selection.SetGrid(f.available)
	metrics.IncGridComputed()
	metrics.AddSlotConflicts(len(f.conflicted))
}

func (f *Flow) blockGrid() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available, f.conflicted = nil, nil
	f.selection.SetGrid(nil)
	f.stale = true
}

// Grid returns the full candidate grid in window order.
func (f *Flow) Grid() []model.CandidateSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CandidateSlot, 0, len(f.available)+len(f.conflicted))
	out = append(out, f.available...)
	out = append(out, f.conflicted...)
	sortByStart(out)
	return out
}

// Toggle flips the selection of a slot start.
func (f *Flow) Toggle(start time.Time) error {
	f.mu.Lock()
	stale := f.stale
	f.mu.Unlock()
	if stale {
		return ErrRefreshRequired
	}

	err := f.selection.Toggle(start)
	if errors.Is(err, ErrQuotaExceeded) {
		metrics.IncQuotaRejection()
	}
	return err
}

// SetDuration changes the requested duration: the grid is rebuilt from the
// already-fetched window and reservations (no refetch) and the selection is
// cleared by the state machine.
func (f *Flow) SetDuration(minutes int) {
	f.selection.SetDuration(minutes)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stale {
		f.recomputeLocked()
	}
}

// SetSessionCount changes the requested session count and clears the
// selection. The grid itself is unaffected.
func (f *Flow) SetSessionCount(count int) {
	f.selection.SetSessionCount(count)
}

// Selection exposes the underlying selection state machine.
func (f *Flow) Selection() *Selection {
	return f.selection
}

// Quote prices the current selection.
func (f *Flow) Quote() model.FeeQuote {
	f.mu.Lock()
	baseFee := f.baseFee
	f.mu.Unlock()
	return Quote(baseFee, f.selection.SelectedCount())
}

// Submit performs the mandatory pre-submission re-check and posts the
// reservation. A fetch failure during the re-check is fatal to this attempt
// only. A conflict (local or backend) returns ErrSubmissionConflict and
// blocks further submits until a Refresh succeeds.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.stale {
		f.mu.Unlock()
		return "", ErrRefreshRequired
	}
	providerID, clientID, date := f.providerID, f.clientID, f.date
	f.mu.Unlock()

	if !f.selection.IsSubmittable() {
		return "", ErrNotSubmittable
	}
	selected := f.selection.Selected()

	// Re-collect just before submit; the grid may be minutes old.
	booked, err := f.collector.Collect(ctx, providerID, date)
	if err != nil {
		metrics.IncFetchFailure("reservations")
		f.blockGrid()
		return "", fmt.Errorf("pre-submit check: %w", err)
	}

	f.mu.Lock()
	f.booked = booked
	f.recomputeLocked()
	conflicted := !f.selection.IsSubmittable()
	f.stale = conflicted
	f.mu.Unlock()

	if conflicted {
		metrics.IncSubmission("conflict")
		return "", ErrSubmissionConflict
	}

	quote := Quote(f.baseFee, len(selected))
	req := clinicapi.SubmitRequest{
		ProviderID:      providerID,
		ClientID:        clientID,
		SelectedSlots:   formatSlots(selected),
		DurationMinutes: f.selection.DurationMinutes(),
		SessionCount:    f.selection.SessionCount(),
		TotalFee:        quote.TotalFee,
	}

	resp, err := f.submitter.SubmitReservation(ctx, req)
	if errors.Is(err, clinicapi.ErrSlotConflict) {
		metrics.IncSubmission("conflict")
		f.blockGrid()
		return "", ErrSubmissionConflict
	}
	if err != nil {
		metrics.IncSubmission("error")
		return "", fmt.Errorf("submit reservation: %w", err)
	}

	metrics.IncSubmission("ok")
	f.logger.Info().
		Str("reservation_id", resp.ReservationID).
		Int("sessions", len(selected)).
		Msg("reservation submitted")
	return resp.ReservationID, nil
}

func formatSlots(starts []time.Time) []string {
	out := make([]string, len(starts))
	for i, s := range starts {
		out[i] = s.UTC().Format(time.RFC3339)
	}
	return out
}

func sortByStart(cs []model.CandidateSlot) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].Start.Before(cs[j].Start)
	})
}
