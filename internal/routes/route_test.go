package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/container"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/testutil"
	"github.com/supabase-community/gotrue-go/types"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Total   int             `json:"total"`
}

type outcomeBody struct {
	Status    string     `json:"status"`
	BookingID *uuid.UUID `json:"booking_id"`
	Event     struct {
		ID         uuid.UUID `json:"id"`
		SeatsTaken int       `json:"seats_taken"`
		SeatsLeft  int       `json:"seats_left"`
		Full       bool      `json:"full"`
	} `json:"event"`
}

type fakeAvatars struct{ paths []string }

func (f *fakeAvatars) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.paths = append(f.paths, objectPath)
	return "https://cdn.example.com/avatars/" + objectPath, nil
}

type env struct {
	t       *testing.T
	store   *testutil.MemoryStore
	avatars *fakeAvatars
	app     *container.Container
	router  *gin.Engine
}

// unreachableAuth fails like an auth server that cannot be reached.
type unreachableAuth struct{}

func (unreachableAuth) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (unreachableAuth) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (unreachableAuth) Logout(ctx context.Context, accessToken string) error { return nil }

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithAuth(t, nil)
}

// newEnvWithAuth uses the memory store for auth when auth is nil.
func newEnvWithAuth(t *testing.T, auth models.AuthRepo) *env {
	t.Helper()
	store := testutil.NewMemoryStore()
	if auth == nil {
		auth = store
	}
	avatars := &fakeAvatars{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := container.Assemble(logger, container.Repos{
		Events:        store,
		Bookings:      store,
		Organizations: store,
		Profiles:      store,
		Auth:          auth,
	}, container.Options{
		Avatars:        avatars,
		TokenValidator: helpers.NewSecretValidator(testutil.JWTSecret),
		DefaultLocale:  "en",
	})
	t.Cleanup(app.Broker.Close)
	return &env{t: t, store: store, avatars: avatars, app: app, router: SetupRoutes(app)}
}

func (e *env) token(p models.Profile) string {
	e.t.Helper()
	tok, err := testutil.SignToken(p.ID, p.Email, time.Hour)
	if err != nil {
		e.t.Fatalf("sign: %v", err)
	}
	return tok
}

func (e *env) do(method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var res apiResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			e.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, res
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "evently-api") {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		SessionStreams *int `json:"session_streams"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.SessionStreams == nil || *body.SessionStreams != 0 {
		t.Fatalf("health should report open session streams: %s", w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.store.AddUser("ada@example.com", "Ada Lovelace", "hunter22")

	w, res := e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized || res.Code != "invalid_credentials" {
		t.Fatalf("wrong password: %d %+v", w.Code, res)
	}

	w, res = e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad payload: %d %+v", w.Code, res)
	}

	w, res = e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "ada@example.com", "password": "hunter22"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %+v", w.Code, res)
	}
	tokens := decode[struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}](t, res.Data)
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("tokens missing: %s", res.Data)
	}
	cookies := w.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = c.HttpOnly
	}
	if !names["access_token"] || !names["refresh_token"] {
		t.Fatalf("expected http-only session cookies, got %v", cookies)
	}

	w, _ = e.do(http.MethodGet, "/api/v1/profile", tokens.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("issued token rejected: %d", w.Code)
	}
}

func TestAuthServerFailureIsNotReportedAsBadCredentials(t *testing.T) {
	e := newEnvWithAuth(t, unreachableAuth{})

	w, res := e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "ada@example.com", "password": "hunter22"})
	if w.Code != http.StatusInternalServerError || res.Code != "internal" {
		t.Fatalf("login against a failing auth server: %d %+v", w.Code, res)
	}

	w, res = e.do(http.MethodPost, "/api/v1/refresh", "", map[string]string{"refresh_token": "some-token"})
	if w.Code != http.StatusInternalServerError || res.Code != "internal" {
		t.Fatalf("refresh against a failing auth server: %d %+v", w.Code, res)
	}
}

func TestRefreshWithUnknownToken(t *testing.T) {
	e := newEnv(t)
	w, res := e.do(http.MethodPost, "/api/v1/refresh", "", map[string]string{"refresh_token": "never-issued"})
	if w.Code != http.StatusUnauthorized || res.Code != "unauthorized" {
		t.Fatalf("unknown refresh token: %d %+v", w.Code, res)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/api/v1/profile", "/api/v1/me/bookings", "/api/v1/me/organization"} {
		w, res := e.do(http.MethodGet, path, "", nil)
		if w.Code != http.StatusUnauthorized || res.Code != "unauthorized" {
			t.Fatalf("%s: %d %+v", path, w.Code, res)
		}
	}
	w, _ := e.do(http.MethodGet, "/api/v1/profile", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", w.Code)
	}
}

func TestExpiredCookieIsRefreshed(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada Lovelace", "hunter22")
	_, res := e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": ada.Email, "password": "hunter22"})
	refresh := decode[struct {
		RefreshToken string `json:"refresh_token"`
	}](t, res.Data).RefreshToken

	expired, err := testutil.SignToken(ada.ID, ada.Email, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: expired})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected refresh to rescue the request, got %d %s", w.Code, w.Body.String())
	}
	var renewed bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" && c.Value != "" && c.Value != expired {
			renewed = true
		}
	}
	if !renewed {
		t.Fatal("access_token cookie was not renewed")
	}

	// the refresh token was rotated and cannot be replayed
	req = httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: expired})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh token accepted: %d", w.Code)
	}
}

func TestBookingLastSeat(t *testing.T) {
	e := newEnv(t)
	org := e.store.AddOrganization("Club")
	ev := e.store.AddEvent(org.ID, "Tiny", 1, "2025-06-01")
	ada := e.store.AddUser("ada@example.com", "Ada Lovelace", "pw")
	bob := e.store.AddUser("bob@example.com", "Bob Builder", "pw")
	path := "/api/v1/events/" + ev.ID.String() + "/bookings"

	w, res := e.do(http.MethodPost, path, e.token(ada), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("book: %d %+v", w.Code, res)
	}
	first := decode[outcomeBody](t, res.Data)
	if first.Status != "booked" || first.BookingID == nil {
		t.Fatalf("unexpected outcome %+v", first)
	}
	if first.Event.SeatsTaken != 1 || first.Event.SeatsLeft != 0 || !first.Event.Full {
		t.Fatalf("availability not patched: %+v", first.Event)
	}

	// second press by the same user
	w, res = e.do(http.MethodPost, path, e.token(ada), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rebook: %d %+v", w.Code, res)
	}
	again := decode[outcomeBody](t, res.Data)
	if again.Status != "already_booked" || again.BookingID == nil || *again.BookingID != *first.BookingID {
		t.Fatalf("unexpected outcome %+v", again)
	}
	if res.Message != "You are already registered for this event." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if n := e.store.SeatsTaken(ev.ID); n != 1 {
		t.Fatalf("seats taken %d, want 1", n)
	}

	w, res = e.do(http.MethodPost, path, e.token(bob), nil)
	if w.Code != http.StatusConflict || res.Code != "event_full" {
		t.Fatalf("full event: %d %+v", w.Code, res)
	}

	w, res = e.do(http.MethodPost, path, e.token(bob), nil, "Accept-Language", "it-IT,it;q=0.9")
	if w.Code != http.StatusConflict || res.Error != "Evento al completo" {
		t.Fatalf("localized full: %d %+v", w.Code, res)
	}
}

func TestBookingUnknownEvent(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")

	w, res := e.do(http.MethodPost, "/api/v1/events/"+uuid.NewString()+"/bookings", e.token(ada), nil)
	if w.Code != http.StatusNotFound || res.Code != "event_not_found" {
		t.Fatalf("unknown event: %d %+v", w.Code, res)
	}
	w, res = e.do(http.MethodPost, "/api/v1/events/nope/bookings", e.token(ada), nil)
	if w.Code != http.StatusBadRequest || res.Code != "invalid_request" {
		t.Fatalf("invalid id: %d %+v", w.Code, res)
	}
}

func TestCancelBooking(t *testing.T) {
	e := newEnv(t)
	org := e.store.AddOrganization("Club")
	ev := e.store.AddEvent(org.ID, "Meetup", 5, "2025-06-01")
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")
	bob := e.store.AddUser("bob@example.com", "Bob", "pw")
	tok := e.token(ada)

	_, res := e.do(http.MethodPost, "/api/v1/events/"+ev.ID.String()+"/bookings", tok, nil)
	bookingID := decode[outcomeBody](t, res.Data).BookingID

	w, res := e.do(http.MethodGet, "/api/v1/events/"+ev.ID.String()+"/booking", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("my booking: %d %+v", w.Code, res)
	}

	w, res = e.do(http.MethodGet, "/api/v1/me/bookings", tok, nil)
	if w.Code != http.StatusOK || res.Total != 1 {
		t.Fatalf("my bookings: %d %+v", w.Code, res)
	}
	rows := decode[[]models.BookingWithEvent](t, res.Data)
	if rows[0].Event == nil || rows[0].Event.Name != "Meetup" {
		t.Fatalf("booking row missing event: %+v", rows[0])
	}

	// someone else cannot cancel it
	w, _ = e.do(http.MethodDelete, "/api/v1/me/bookings/"+bookingID.String(), e.token(bob), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel: %d", w.Code)
	}

	w, res = e.do(http.MethodDelete, "/api/v1/me/bookings/"+bookingID.String(), tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d %+v", w.Code, res)
	}

	_, res = e.do(http.MethodGet, "/api/v1/me/bookings", tok, nil)
	if got := decode[[]models.BookingWithEvent](t, res.Data); len(got) != 0 {
		t.Fatalf("booking still listed: %+v", got)
	}
	w, _ = e.do(http.MethodGet, "/api/v1/events/"+ev.ID.String()+"/booking", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cancelled booking still found: %d", w.Code)
	}

	_, res = e.do(http.MethodGet, "/api/v1/events/"+ev.ID.String(), "", nil)
	fresh := decode[struct {
		SeatsTaken int `json:"seats_taken"`
		SeatsLeft  int `json:"seats_left"`
	}](t, res.Data)
	if fresh.SeatsTaken != 0 || fresh.SeatsLeft != 5 {
		t.Fatalf("fresh fetch not decremented: %+v", fresh)
	}
}

func TestListEventsNear(t *testing.T) {
	e := newEnv(t)
	org := e.store.AddOrganization("Club")
	e.store.AddEvent(org.ID, "Later", 10, "2025-07-01")
	created, err := e.store.CreateEvent(context.Background(), &models.Event{
		OrganizationID: org.ID,
		Name:           "Sooner",
		EventDate:      "2025-06-01",
		TotalSeats:     10,
		Lat:            ptr(41.9028),
		Lng:            ptr(12.4964),
	})
	if err != nil {
		t.Fatal(err)
	}

	w, res := e.do(http.MethodGet, "/api/v1/events?lat=45.4642&lng=9.19", "", nil)
	if w.Code != http.StatusOK || res.Total != 2 {
		t.Fatalf("list: %d %+v", w.Code, res)
	}
	list := decode[[]struct {
		ID         uuid.UUID `json:"id"`
		Name       string    `json:"name"`
		DistanceKm *float64  `json:"distance_km"`
	}](t, res.Data)
	if list[0].ID != created.ID || list[0].DistanceKm == nil {
		t.Fatalf("expected the dated, located event first with a distance: %+v", list)
	}
	if d := *list[0].DistanceKm; d < 470 || d > 490 {
		t.Fatalf("Milan to Rome should be about 477 km, got %f", d)
	}
	if list[1].DistanceKm != nil {
		t.Fatalf("event without coordinates got a distance")
	}

	w, _ = e.do(http.MethodGet, "/api/v1/events?lat=95&lng=0", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out of range latitude: %d", w.Code)
	}
	for _, q := range []string{"lat=NaN&lng=0", "lat=0&lng=Inf", "near=NaN,NaN"} {
		w, _ = e.do(http.MethodGet, "/api/v1/events?"+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}
	w, _ = e.do(http.MethodGet, "/api/v1/events?organization_id=nope", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad organization id: %d", w.Code)
	}
	w, res = e.do(http.MethodGet, "/api/v1/events?organization_id="+uuid.NewString(), "", nil)
	if w.Code != http.StatusOK || res.Total != 0 {
		t.Fatalf("other organization: %d %+v", w.Code, res)
	}
}

func TestOrganizationEvents(t *testing.T) {
	e := newEnv(t)
	org := e.store.AddOrganization("Club")
	owner := e.store.AddUser("owner@example.com", "Olivia Owner", "pw")
	stranger := e.store.AddUser("stranger@example.com", "Sam Stranger", "pw")
	e.store.AddMember(org.ID, owner.ID, "admin")
	base := "/api/v1/organizations/" + org.ID.String()

	w, res := e.do(http.MethodGet, base+"/events", e.token(stranger), nil)
	if w.Code != http.StatusForbidden || res.Code != "not_member" {
		t.Fatalf("stranger: %d %+v", w.Code, res)
	}
	w, _ = e.do(http.MethodGet, "/api/v1/organizations/nope/events", e.token(owner), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid org id: %d", w.Code)
	}

	w, res = e.do(http.MethodGet, "/api/v1/me/organization", e.token(owner), nil)
	if w.Code != http.StatusOK || !strings.Contains(string(res.Data), org.ID.String()) {
		t.Fatalf("my organization: %d %s", w.Code, res.Data)
	}
	w, _ = e.do(http.MethodGet, "/api/v1/me/organization", e.token(stranger), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger organization: %d", w.Code)
	}

	w, res = e.do(http.MethodPost, base+"/events", e.token(owner), map[string]any{
		"name": "Test", "total_seats": 3, "event_date": "2025-06-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %+v", w.Code, res)
	}
	created := decode[struct {
		ID         uuid.UUID `json:"id"`
		SeatsTaken int       `json:"seats_taken"`
	}](t, res.Data)

	_, res = e.do(http.MethodGet, "/api/v1/events/"+created.ID.String(), "", nil)
	fetched := decode[struct {
		Name       string `json:"name"`
		TotalSeats int    `json:"total_seats"`
		EventDate  string `json:"event_date"`
		SeatsTaken int    `json:"seats_taken"`
	}](t, res.Data)
	if fetched.Name != "Test" || fetched.TotalSeats != 3 || fetched.EventDate != "2025-06-01" || fetched.SeatsTaken != 0 {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}

	for _, bad := range []map[string]any{
		{"name": "", "total_seats": 3, "event_date": "2025-06-01"},
		{"name": "Zero", "total_seats": 0, "event_date": "2025-06-01"},
		{"name": "Date", "total_seats": 3, "event_date": "01/06/2025"},
	} {
		w, res = e.do(http.MethodPost, base+"/events", e.token(owner), bad)
		if w.Code != http.StatusBadRequest || res.Code != "invalid_event" {
			t.Fatalf("invalid event %v: %d %+v", bad, w.Code, res)
		}
	}

	w, res = e.do(http.MethodGet, base+"/events/"+created.ID.String(), e.token(owner), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get for edit: %d %+v", w.Code, res)
	}
	w, res = e.do(http.MethodPatch, base+"/events/"+created.ID.String(), e.token(owner), map[string]any{})
	if w.Code != http.StatusBadRequest || res.Code != "no_changes" {
		t.Fatalf("empty patch: %d %+v", w.Code, res)
	}
}

func TestShrinkCapacityKeepsBookings(t *testing.T) {
	e := newEnv(t)
	org := e.store.AddOrganization("Club")
	owner := e.store.AddUser("owner@example.com", "Olivia Owner", "pw")
	e.store.AddMember(org.ID, owner.ID, "admin")
	ev := e.store.AddEvent(org.ID, "Big", 10, "2025-06-01")

	for i := 0; i < 5; i++ {
		guest := e.store.AddUser(uuid.NewString()+"@example.com", "Guest", "pw")
		w, _ := e.do(http.MethodPost, "/api/v1/events/"+ev.ID.String()+"/bookings", e.token(guest), nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("booking %d: %d", i, w.Code)
		}
	}

	w, res := e.do(http.MethodPatch, "/api/v1/organizations/"+org.ID.String()+"/events/"+ev.ID.String(), e.token(owner), map[string]any{"total_seats": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %+v", w.Code, res)
	}

	_, res = e.do(http.MethodGet, "/api/v1/events/"+ev.ID.String(), "", nil)
	got := decode[struct {
		SeatsLeft int  `json:"seats_left"`
		Full      bool `json:"full"`
	}](t, res.Data)
	if got.SeatsLeft != 0 || !got.Full {
		t.Fatalf("expected full event, got %+v", got)
	}

	w, res = e.do(http.MethodGet, "/api/v1/organizations/"+org.ID.String()+"/events/"+ev.ID.String()+"/guests", e.token(owner), nil)
	if w.Code != http.StatusOK || res.Total != 5 {
		t.Fatalf("guests: %d %+v", w.Code, res)
	}
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")
	tok := e.token(ada)

	w, res := e.do(http.MethodPatch, "/api/v1/profile", tok, map[string]any{"full_name": "  Al "})
	if w.Code != http.StatusBadRequest || res.Code != "invalid_profile" {
		t.Fatalf("short name: %d %+v", w.Code, res)
	}
	w, res = e.do(http.MethodPatch, "/api/v1/profile", tok, map[string]any{"full_name": "  Ada Lovelace  "})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %+v", w.Code, res)
	}
	if p := decode[models.Profile](t, res.Data); p.FullName != "Ada Lovelace" || p.UpdatedAt == nil {
		t.Fatalf("unexpected profile %+v", p)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("\x89PNG fake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar: %d %s", rec.Code, rec.Body.String())
	}
	if len(e.avatars.paths) != 1 || !strings.HasPrefix(e.avatars.paths[0], ada.ID.String()+"/") || !strings.HasSuffix(e.avatars.paths[0], ".png") {
		t.Fatalf("unexpected object path %v", e.avatars.paths)
	}

	_, res = e.do(http.MethodGet, "/api/v1/profile", tok, nil)
	if p := decode[models.Profile](t, res.Data); !strings.HasPrefix(p.AvatarURL, "https://cdn.example.com/avatars/") {
		t.Fatalf("avatar url not stored: %+v", p)
	}
}

func TestNicknamesNotConfigured(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")
	w, res := e.do(http.MethodPost, "/api/v1/nicknames", e.token(ada), map[string]string{"theme": "space"})
	if w.Code != http.StatusServiceUnavailable || res.Code != "nickname_unavailable" {
		t.Fatalf("nicknames: %d %+v", w.Code, res)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")
	tok := e.token(ada)

	w, _ := e.do(http.MethodPost, "/api/v1/logout", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if got := e.store.LoggedOut(); len(got) != 1 || got[0] != tok {
		t.Fatalf("token not revoked: %v", got)
	}
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "access_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("access_token cookie not cleared")
	}
}

func TestSessionEventStream(t *testing.T) {
	e := newEnv(t)
	ada := e.store.AddUser("ada@example.com", "Ada", "pw")
	bob := e.store.AddUser("bob@example.com", "Bob", "pw")

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/auth/events", nil)
	req.Header.Set("Authorization", "Bearer "+e.token(ada))
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for lines.Scan() {
			line := lines.Text()
			if name, ok := strings.CutPrefix(line, "event:"); ok {
				return strings.TrimSpace(name)
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if got := nextEvent(); got != "initial_session" {
		t.Fatalf("first event %q", got)
	}

	// bob's sign-in must not reach ada's stream
	e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": bob.Email, "password": "pw"})
	e.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": ada.Email, "password": "pw"})
	if got := nextEvent(); got != string(models.SessionSignedIn) {
		t.Fatalf("expected signed_in, got %q", got)
	}

	e.do(http.MethodPost, "/api/v1/logout", e.token(ada), nil)
	if got := nextEvent(); got != string(models.SessionSignedOut) {
		t.Fatalf("expected signed_out, got %q", got)
	}
}

func ptr[T any](v T) *T { return &v }
