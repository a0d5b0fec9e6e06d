// Package apiclient talks to the evently HTTP API. It implements
// booking.Store so a booking.View can run against a remote server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

// codeErrors turns the API's error codes back into the sentinels.
var codeErrors = map[string]error{
	"invalid_id":             models.ErrInvalidID,
	"no_changes":             models.ErrNoChanges,
	"invalid_event":          models.ErrInvalidEvent,
	"invalid_profile":        models.ErrInvalidProfile,
	"invalid_credentials":    models.ErrInvalidCredentials,
	"not_member":             models.ErrNotMember,
	"event_not_found":        models.ErrEventNotFound,
	"booking_not_found":      models.ErrBookingNotFound,
	"organization_not_found": models.ErrOrganizationNotFound,
	"profile_not_found":      models.ErrProfileNotFound,
	"event_full":             models.ErrEventFull,
}

// APIError is a non-2xx answer without a known code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	locale     string

	mu     sync.RWMutex
	tokens Tokens
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: httpClient,
	}
}

// WithLocale sets Accept-Language on every request.
func (c *Client) WithLocale(locale string) *Client {
	c.locale = locale
	return c
}

func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// do sends one request; there are no retries. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, string, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, "", err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}
	if tok := c.Tokens().AccessToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if sentinel, ok := codeErrors[env.Code]; ok {
			return resp.StatusCode, env.Error, fmt.Errorf("%w: %s", sentinel, env.Error)
		}
		return resp.StatusCode, env.Error, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, env.Message, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp.StatusCode, env.Message, nil
}

// Login stores the returned tokens for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var t Tokens
	_, _, err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &t)
	if err != nil {
		return Tokens{}, err
	}
	c.SetTokens(t)
	return t, nil
}

func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	var t Tokens
	_, _, err := c.do(ctx, http.MethodPost, "/refresh", map[string]string{"refresh_token": c.Tokens().RefreshToken}, &t)
	if err != nil {
		return Tokens{}, err
	}
	c.SetTokens(t)
	return t, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.SetTokens(Tokens{})
	return err
}

// ListEvents passes near as lat/lng when set.
func (c *Client) ListEvents(ctx context.Context, near *models.Coordinates) ([]models.EventWithSeats, error) {
	path := "/events"
	if near != nil {
		path += fmt.Sprintf("?lat=%g&lng=%g", near.Latitude, near.Longitude)
	}
	var events []models.EventWithSeats
	if _, _, err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.EventWithSeats, error) {
	var ev models.EventWithSeats
	if _, _, err := c.do(ctx, http.MethodGet, "/events/"+eventID.String(), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) FindMyBooking(ctx context.Context, eventID uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	_, _, err := c.do(ctx, http.MethodGet, "/events/"+eventID.String()+"/booking", nil, &b)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (c *Client) Book(ctx context.Context, eventID uuid.UUID) (*models.BookingOutcome, error) {
	var out models.BookingOutcome
	if _, _, err := c.do(ctx, http.MethodPost, "/events/"+eventID.String()+"/bookings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	_, _, err := c.do(ctx, http.MethodDelete, "/me/bookings/"+bookingID.String(), nil, nil)
	return err
}

func (c *Client) MyBookings(ctx context.Context) ([]models.BookingWithEvent, error) {
	var rows []models.BookingWithEvent
	if _, _, err := c.do(ctx, http.MethodGet, "/me/bookings", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrBookingNotFound)
}
