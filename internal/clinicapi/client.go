// Package clinicapi is the HTTP client for the clinic scheduling backend.
package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var (
	// ErrNoSchedule means the provider has no schedule configured for the date.
	ErrNoSchedule = errors.New("no schedule for provider on date")
	// ErrSlotConflict means the backend rejected a submission because a
	// selected slot was taken between fetch and submit.
	ErrSlotConflict = errors.New("slot no longer free")
)

// ScheduleResponse is the working window as returned by the backend.
// Instants are absolute RFC3339; the engine never does timezone arithmetic.
type ScheduleResponse struct {
	IsHoliday bool      `json:"isHoliday"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// ReservationRecord is one upstream reservation. Duration comes as free
// text ("30 minutes"); selectedSlots holds one instant per booked session.
type ReservationRecord struct {
	ID            string   `json:"id"`
	SelectedSlots []string `json:"selectedSlots"`
	Duration      string   `json:"duration"`
}

// SubmitRequest is the body for POST /reservations.
type SubmitRequest struct {
	ProviderID      string   `json:"providerId"`
	ClientID        string   `json:"clientId"`
	SelectedSlots   []string `json:"selectedSlots"`
	DurationMinutes int      `json:"durationMinutes"`
	SessionCount    int      `json:"sessionCount"`
	TotalFee        int64    `json:"totalFee"`
	IdempotencyKey  string   `json:"idempotencyKey,omitempty"`
}

// SubmitResponse is the backend acknowledgement for a submission.
type SubmitResponse struct {
	ReservationID string `json:"reservationId"`
}

// Client calls the clinic backend scheduling APIs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 30),
	}
}

// SetRateLimit overrides the default outbound rate limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// UseRedisCache configures optional Redis caching for schedule lookups.
// Reservation fetches are never cached: staleness there permits
// double-booking.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// GetSchedule fetches the provider's working window for a date (YYYY-MM-DD).
// Returns ErrNoSchedule on 404.
func (c *Client) GetSchedule(ctx context.Context, providerID, date string) (*ScheduleResponse, error) {
	endpoint := fmt.Sprintf("%s/schedule/%s?date=%s", c.baseURL, url.PathEscape(providerID), url.QueryEscape(date))
	cacheKey := fmt.Sprintf("schedule:%s:%s", providerID, date)

	var resp ScheduleResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return &resp, nil
	}

	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return &resp, nil
}

// GetReservations fetches existing reservations for provider/date.
func (c *Client) GetReservations(ctx context.Context, providerID, date string) ([]ReservationRecord, error) {
	endpoint := fmt.Sprintf("%s/reservations/%s?date=%s", c.baseURL, url.PathEscape(providerID), url.QueryEscape(date))

	var records []ReservationRecord
	if err := c.doGet(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SubmitReservation posts a new reservation. The backend re-checks slot
// freedom; a 409 surfaces as ErrSlotConflict.
func (c *Client) SubmitReservation(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	endpoint := fmt.Sprintf("%s/reservations", c.baseURL)

	var resp SubmitResponse
	if err := c.doPost(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(ctx, req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNoSchedule
	case resp.StatusCode == http.StatusConflict:
		return ErrSlotConflict
	case resp.StatusCode >= 300:
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
