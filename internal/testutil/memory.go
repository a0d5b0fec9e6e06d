package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

// JWTSecret signs the tokens MemoryStore issues.
const JWTSecret = "test-secret-with-enough-length-for-hs256"

// MemoryStore implements every repository in memory. Booking writes hold
// one lock so capacity checks are atomic, like the real stores.
type MemoryStore struct {
	mu            sync.Mutex
	events        map[uuid.UUID]models.Event
	bookings      map[uuid.UUID]models.Booking
	organizations map[uuid.UUID]models.Organization
	members       []models.Membership
	profiles      map[uuid.UUID]models.Profile
	passwords     map[string]string
	refreshTokens map[string]uuid.UUID
	loggedOut     []string

	// FailBookingLookup makes FindBooking fail with an internal error.
	FailBookingLookup bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        map[uuid.UUID]models.Event{},
		bookings:      map[uuid.UUID]models.Booking{},
		organizations: map[uuid.UUID]models.Organization{},
		profiles:      map[uuid.UUID]models.Profile{},
		passwords:     map[string]string{},
		refreshTokens: map[string]uuid.UUID{},
	}
}

func (m *MemoryStore) AddOrganization(name string) models.Organization {
	m.mu.Lock()
	defer m.mu.Unlock()
	org := models.Organization{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	m.organizations[org.ID] = org
	return org
}

func (m *MemoryStore) AddMember(orgID, userID uuid.UUID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, models.Membership{OrganizationID: orgID, UserID: userID, Role: role})
}

func (m *MemoryStore) AddEvent(orgID uuid.UUID, name string, seats int, date string) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	ev := models.Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		EventDate:      date,
		TotalSeats:     seats,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.events[ev.ID] = ev
	return ev
}

// AddUser creates a profile that can sign in with email and password.
func (m *MemoryStore) AddUser(email, fullName, password string) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Profile{ID: uuid.New(), Email: email, FullName: fullName}
	m.profiles[p.ID] = p
	m.passwords[email] = password
	return p
}

// SeatsTaken counts bookings directly, bypassing the repositories.
func (m *MemoryStore) SeatsTaken(eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(eventID)
}

func (m *MemoryStore) LoggedOut() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loggedOut...)
}

func (m *MemoryStore) countLocked(eventID uuid.UUID) int {
	n := 0
	for _, b := range m.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) withSeatsLocked(ev models.Event) models.EventWithSeats {
	return models.EventWithSeats{Event: ev, SeatsTaken: m.countLocked(ev.ID)}
}

func (m *MemoryStore) ListEventsWithSeats(ctx context.Context, filter models.EventFilter) ([]models.EventWithSeats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EventWithSeats{}
	for _, ev := range m.events {
		if filter.OrganizationID != nil && ev.OrganizationID != *filter.OrganizationID {
			continue
		}
		out = append(out, m.withSeatsLocked(ev))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate < out[j].EventDate
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryStore) GetEventWithSeats(ctx context.Context, id uuid.UUID) (*models.EventWithSeats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	out := m.withSeatsLocked(ev)
	return &out, nil
}

func (m *MemoryStore) GetOrganizationEvent(ctx context.Context, orgID, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.OrganizationID != orgID {
		return nil, models.ErrEventNotFound
	}
	return &ev, nil
}

func (m *MemoryStore) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *event
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	now := time.Now().UTC()
	ev.CreatedAt, ev.UpdatedAt = now, now
	m.events[ev.ID] = ev
	return &ev, nil
}

func (m *MemoryStore) UpdateEvent(ctx context.Context, orgID, id uuid.UUID, changes models.EventChanges) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.OrganizationID != orgID {
		return nil, models.ErrEventNotFound
	}
	if changes.Name != nil {
		ev.Name = *changes.Name
	}
	if changes.Description != nil {
		ev.Description = *changes.Description
	}
	if changes.EventDate != nil {
		ev.EventDate = *changes.EventDate
	}
	if changes.TotalSeats != nil {
		ev.TotalSeats = *changes.TotalSeats
	}
	if changes.Lat != nil {
		ev.Lat = changes.Lat
	}
	if changes.Lng != nil {
		ev.Lng = changes.Lng
	}
	ev.UpdatedAt = time.Now().UTC()
	m.events[id] = ev
	return &ev, nil
}

func (m *MemoryStore) ListGuests(ctx context.Context, eventID uuid.UUID) ([]models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	guests := []models.Guest{}
	for _, b := range m.bookings {
		if b.EventID != eventID {
			continue
		}
		p := m.profiles[b.UserID]
		guests = append(guests, models.Guest{
			BookingID: b.ID,
			EventID:   b.EventID,
			UserID:    b.UserID,
			Email:     p.Email,
			FullName:  p.FullName,
			AvatarURL: p.AvatarURL,
			CreatedAt: b.CreatedAt,
		})
	}
	sort.Slice(guests, func(i, j int) bool { return guests[i].CreatedAt.Before(guests[j].CreatedAt) })
	return guests, nil
}

func (m *MemoryStore) CreateBooking(ctx context.Context, userID, eventID uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	for _, b := range m.bookings {
		if b.EventID == eventID && b.UserID == userID {
			return nil, models.ErrAlreadyBooked
		}
	}
	if m.countLocked(eventID) >= ev.TotalSeats {
		return nil, models.ErrEventFull
	}
	b := models.Booking{ID: uuid.New(), UserID: userID, EventID: eventID, CreatedAt: time.Now().UTC()}
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *MemoryStore) FindBooking(ctx context.Context, userID, eventID uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBookingLookup {
		return nil, context.DeadlineExceeded
	}
	for _, b := range m.bookings {
		if b.EventID == eventID && b.UserID == userID {
			return &b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (m *MemoryStore) DeleteBooking(ctx context.Context, userID, bookingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.UserID != userID {
		return models.ErrBookingNotFound
	}
	delete(m.bookings, bookingID)
	return nil
}

func (m *MemoryStore) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingWithEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BookingWithEvent{}
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		row := models.BookingWithEvent{Booking: b}
		if ev, ok := m.events[b.EventID]; ok {
			row.Event = &ev
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, models.ErrOrganizationNotFound
	}
	return &org, nil
}

func (m *MemoryStore) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range m.members {
		if mb.OrganizationID == orgID && mb.UserID == userID {
			out := mb
			return &out, nil
		}
	}
	return nil, models.ErrNotMember
}

func (m *MemoryStore) ListMemberships(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Membership{}
	for _, mb := range m.members {
		if mb.UserID == userID {
			out = append(out, mb)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	return &p, nil
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, id uuid.UUID, changes models.ProfileChanges, at time.Time) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	if changes.FullName != nil {
		p.FullName = *changes.FullName
	}
	if changes.AvatarURL != nil {
		p.AvatarURL = *changes.AvatarURL
	}
	p.UpdatedAt = &at
	m.profiles[id] = p
	return &p, nil
}

func (m *MemoryStore) issueLocked(p models.Profile) (*types.TokenResponse, error) {
	access, err := SignToken(p.ID, p.Email, time.Hour)
	if err != nil {
		return nil, err
	}
	refresh := uuid.NewString()
	m.refreshTokens[refresh] = p.ID

	res := &types.TokenResponse{}
	res.AccessToken = access
	res.RefreshToken = refresh
	res.ExpiresIn = 3600
	res.User.ID = p.ID
	res.User.Email = p.Email
	return res, nil
}

func (m *MemoryStore) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pw, ok := m.passwords[email]; !ok || pw != password {
		return nil, models.ErrInvalidCredentials
	}
	for _, p := range m.profiles {
		if p.Email == email {
			return m.issueLocked(p)
		}
	}
	return nil, models.ErrInvalidCredentials
}

// RefreshToken rotates: a refresh token works once.
func (m *MemoryStore) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refreshTokens[refreshToken]
	if !ok {
		return nil, models.ErrSessionExpired
	}
	delete(m.refreshTokens, refreshToken)
	return m.issueLocked(m.profiles[id])
}

func (m *MemoryStore) Logout(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedOut = append(m.loggedOut, accessToken)
	return nil
}

// SignToken mints an HS256 access token accepted by helpers.NewSecretValidator(JWTSecret).
func SignToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := helpers.CustomClaims{
		Role:  "authenticated",
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
}
