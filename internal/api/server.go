// Package api exposes the consolidated availability engine over HTTP for
// the booking screens.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"vizit/internal/clinicapi"
	"vizit/internal/database"
	"vizit/internal/reservations"
	"vizit/internal/schedule"
)

// HTTPServer serves the availability and booking endpoints.
type HTTPServer struct {
	resolver  *schedule.Resolver
	collector *reservations.Collector
	client    *clinicapi.Client
	db        *database.DB
	logger    *zerolog.Logger
	apiKey    string

	maxSessions int
	baseFee     int64
	now         func() time.Time
}

// NewHTTPServer creates the API server.
func NewHTTPServer(
	resolver *schedule.Resolver,
	collector *reservations.Collector,
	client *clinicapi.Client,
	db *database.DB,
	apiKey string,
	maxSessions int,
	baseFee int64,
	logger *zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		resolver:    resolver,
		collector:   collector,
		client:      client,
		db:          db,
		logger:      logger,
		apiKey:      apiKey,
		maxSessions: maxSessions,
		baseFee:     baseFee,
		now:         time.Now,
	}
}

// Handler returns the routed handler with API key auth applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/availability/export", s.handleAvailabilityExport)
	mux.HandleFunc("/api/v1/quote", s.handleQuote)
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	return s.requireAPIKey(mux)
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
