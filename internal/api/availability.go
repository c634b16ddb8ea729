package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"vizit/internal/metrics"
	"vizit/internal/model"
	"vizit/internal/report"
	"vizit/internal/schedule"
	"vizit/internal/slots"
)

// AvailabilityResponse is the computed candidate grid for a provider/date.
type AvailabilityResponse struct {
	ProviderID      string                `json:"provider_id"`
	Date            string                `json:"date"`
	DurationMinutes int                   `json:"duration_minutes"`
	Reason          string                `json:"reason,omitempty"` // "no_schedule", "holiday"
	Slots           []model.CandidateSlot `json:"slots"`
	AvailableCount  int                   `json:"available_count"`
	BookedCount     int                   `json:"booked_count"`
}

// handleAvailability computes the candidate grid for a provider and date.
// GET /api/v1/availability?provider_id=&date=YYYY-MM-DD&duration=30
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, status, err := s.computeAvailability(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAvailabilityExport renders the grid as an xlsx workbook.
// GET /api/v1/availability/export?provider_id=&date=YYYY-MM-DD&duration=30
func (s *HTTPServer) handleAvailabilityExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, status, err := s.computeAvailability(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	date, _ := time.Parse("2006-01-02", resp.Date)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="availability_%s_%s.xlsx"`, resp.ProviderID, resp.Date))
	if err := report.WriteDayGrid(w, resp.ProviderID, date, resp.Slots); err != nil {
		s.logger.Error().Err(err).Msg("export availability grid")
	}
}

func (s *HTTPServer) computeAvailability(r *http.Request) (*AvailabilityResponse, int, error) {
	q := r.URL.Query()

	providerID := q.Get("provider_id")
	if providerID == "" {
		return nil, http.StatusBadRequest, errors.New("provider_id is required")
	}

	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid date format; expected YYYY-MM-DD")
	}

	duration := slots.DefaultDurationMinutes
	if raw := q.Get("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 || duration > slots.MaxDurationMinutes {
			return nil, http.StatusBadRequest,
				fmt.Errorf("invalid duration; expected 1..%d minutes", slots.MaxDurationMinutes)
		}
	}

	resp := &AvailabilityResponse{
		ProviderID:      providerID,
		Date:            date.Format("2006-01-02"),
		DurationMinutes: duration,
		Slots:           []model.CandidateSlot{},
	}

	window, err := s.resolver.Resolve(r.Context(), providerID, date)
	if errors.Is(err, schedule.ErrNoSchedule) {
		// No availability, not an error: the caller shows an empty grid.
		resp.Reason = "no_schedule"
		return resp, http.StatusOK, nil
	}
	if err != nil {
		metrics.IncFetchFailure("schedule")
		return nil, http.StatusBadGateway, fmt.Errorf("resolve schedule: %w", err)
	}
	if window.IsHoliday {
		resp.Reason = "holiday"
		return resp, http.StatusOK, nil
	}

	booked, err := s.collector.Collect(r.Context(), providerID, date)
	if err != nil {
		// Fail closed: an availability grid computed from a failed fetch
		// would permit double-booking.
		metrics.IncFetchFailure("reservations")
		return nil, http.StatusBadGateway, fmt.Errorf("collect reservations: %w", err)
	}

	grid := slots.Grid(window, duration, s.now(), booked)
	metrics.IncGridComputed()
	resp.Slots = grid
	for _, slot := range grid {
		if slot.Status == model.StatusAvailable {
			resp.AvailableCount++
		} else {
			resp.BookedCount++
		}
	}
	metrics.AddSlotConflicts(resp.BookedCount)
	return resp, http.StatusOK, nil
}
