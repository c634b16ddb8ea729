package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vizit/internal/booking"
	"vizit/internal/clinicapi"
	"vizit/internal/database"
	"vizit/internal/metrics"
	"vizit/internal/model"
	"vizit/internal/schedule"
	"vizit/internal/slots"
)

// QuoteRequest prices a set of selected slots.
type QuoteRequest struct {
	BaseFee       *int64   `json:"base_fee,omitempty"` // defaults to the configured fee
	SelectedSlots []string `json:"selected_slots"`
}

// handleQuote derives a fee quote from the selected-slot count.
// POST /api/v1/quote
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quote")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req QuoteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	baseFee := s.baseFee
	if req.BaseFee != nil {
		baseFee = *req.BaseFee
	}
	writeJSON(w, http.StatusOK, booking.Quote(baseFee, len(req.SelectedSlots)))
}

// BookingRequest is the request body for POST /api/v1/bookings.
type BookingRequest struct {
	ProviderID      string   `json:"provider_id"`
	ClientID        string   `json:"client_id"`
	Date            string   `json:"date"` // YYYY-MM-DD
	SelectedSlots   []string `json:"selected_slots"`
	DurationMinutes int      `json:"duration_minutes"`
	SessionCount    int      `json:"session_count"`
}

// BookingResponse acknowledges a successful submission.
type BookingResponse struct {
	ReservationID string         `json:"reservation_id"`
	Quote         model.FeeQuote `json:"quote"`
}

// handleBookings validates the selection against a fresh availability
// recomputation and submits the reservation upstream. A 409 means a slot
// was taken concurrently; the caller must refresh and re-select.
// POST /api/v1/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, status, err := s.validateBooking(&req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	starts := make([]time.Time, len(req.SelectedSlots))
	seen := make(map[int64]bool, len(req.SelectedSlots))
	for i, raw := range req.SelectedSlots {
		starts[i], err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid slot %q; expected RFC3339", raw))
			return
		}
		// One booked slot cannot stand in for two sessions.
		if seen[starts[i].Unix()] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("slot %s selected more than once", raw))
			return
		}
		seen[starts[i].Unix()] = true
	}

	// Mandatory pre-submission re-check against fresh reservations. A fetch
	// failure here is fatal to this attempt: proceeding on stale data would
	// permit double-booking.
	window, err := s.resolver.Resolve(r.Context(), req.ProviderID, date)
	if errors.Is(err, schedule.ErrNoSchedule) {
		writeError(w, http.StatusConflict, "provider has no schedule for this date")
		return
	}
	if err != nil {
		metrics.IncFetchFailure("schedule")
		writeError(w, http.StatusBadGateway, "schedule check failed; retry explicitly")
		return
	}

	booked, err := s.collector.Collect(r.Context(), req.ProviderID, date)
	if err != nil {
		metrics.IncFetchFailure("reservations")
		writeError(w, http.StatusBadGateway, "reservation check failed; retry explicitly")
		return
	}

	available, _ := slots.Partition(slots.Generate(window, req.DurationMinutes, s.now()), booked)
	if conflict := firstUnavailable(starts, available); conflict != "" {
		metrics.IncSubmission("conflict")
		s.audit(r, &req, "conflict", "")
		writeError(w, http.StatusConflict, fmt.Sprintf("slot %s is no longer available; re-select", conflict))
		return
	}

	quote := booking.Quote(s.baseFee, len(req.SelectedSlots))
	resp, err := s.client.SubmitReservation(r.Context(), clinicapi.SubmitRequest{
		ProviderID:      req.ProviderID,
		ClientID:        req.ClientID,
		SelectedSlots:   req.SelectedSlots,
		DurationMinutes: req.DurationMinutes,
		SessionCount:    req.SessionCount,
		TotalFee:        quote.TotalFee,
	})
	if errors.Is(err, clinicapi.ErrSlotConflict) {
		metrics.IncSubmission("conflict")
		s.audit(r, &req, "conflict", "")
		writeError(w, http.StatusConflict, "a selected slot was just taken; re-select")
		return
	}
	if err != nil {
		metrics.IncSubmission("error")
		s.audit(r, &req, "error", "")
		s.logger.Error().Err(err).Str("provider_id", req.ProviderID).Msg("submit reservation")
		writeError(w, http.StatusBadGateway, "submission failed")
		return
	}

	metrics.IncSubmission("ok")
	s.audit(r, &req, "ok", resp.ReservationID)
	writeJSON(w, http.StatusCreated, BookingResponse{
		ReservationID: resp.ReservationID,
		Quote:         quote,
	})
}

func (s *HTTPServer) validateBooking(req *BookingRequest) (time.Time, int, error) {
	if req.ProviderID == "" || req.ClientID == "" {
		return time.Time{}, http.StatusBadRequest, errors.New("provider_id and client_id are required")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return time.Time{}, http.StatusBadRequest, errors.New("invalid date format; expected YYYY-MM-DD")
	}

	if req.SessionCount <= 0 {
		return time.Time{}, http.StatusBadRequest, errors.New("session_count must be positive")
	}
	if req.SessionCount > s.maxSessions {
		return time.Time{}, http.StatusBadRequest, fmt.Errorf("session_count exceeds maximum of %d", s.maxSessions)
	}
	if len(req.SelectedSlots) != req.SessionCount {
		return time.Time{}, http.StatusBadRequest,
			fmt.Errorf("selected %d slots but session_count is %d", len(req.SelectedSlots), req.SessionCount)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > slots.MaxDurationMinutes {
		return time.Time{}, http.StatusBadRequest,
			fmt.Errorf("duration_minutes must be 1..%d", slots.MaxDurationMinutes)
	}
	return date, http.StatusOK, nil
}

func (s *HTTPServer) audit(r *http.Request, req *BookingRequest, outcome, reservationID string) {
	if s.db == nil {
		return
	}
	rec := &database.SubmissionRecord{
		ProviderID:      req.ProviderID,
		ClientID:        req.ClientID,
		Date:            req.Date,
		SelectedSlots:   req.SelectedSlots,
		DurationMinutes: req.DurationMinutes,
		SessionCount:    req.SessionCount,
		TotalFee:        booking.Quote(s.baseFee, len(req.SelectedSlots)).TotalFee,
		Outcome:         outcome,
		ReservationID:   reservationID,
	}
	if err := s.db.RecordSubmission(r.Context(), rec); err != nil {
		s.logger.Error().Err(err).Msg("audit submission")
	}
}

func firstUnavailable(starts []time.Time, available []model.CandidateSlot) string {
	avail := make(map[int64]bool, len(available))
	for _, c := range available {
		avail[c.Start.Unix()] = true
	}
	for _, start := range starts {
		if !avail[start.Unix()] {
			return start.UTC().Format(time.RFC3339)
		}
	}
	return ""
}
