package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventTable           = "event"
	EventWithSeatsView   = "event_with_seats"
	BookedEventTable     = "booked_event"
	BookedEventUsersView = "booked_event_users"
	OrganizationTable    = "organization"
	MemberTable          = "organization_member"
	ProfileTable         = "profiles"

	// EventDateLayout is the calendar-date form events are stored and sent in.
	EventDateLayout = "2006-01-02"
)

type Event struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name" validate:"required"`
	Description    string    `db:"description" json:"description"`
	EventDate      string    `db:"event_date" json:"event_date" validate:"required,datetime=2006-01-02"`
	TotalSeats     int       `db:"total_seats" json:"total_seats" validate:"gte=1"`
	Lat            *float64  `db:"lat" json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng            *float64  `db:"lng" json:"lng" validate:"omitempty,gte=-180,lte=180"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Location returns the event's coordinates when both are set.
func (e *Event) Location() (Coordinates, bool) {
	if e.Lat == nil || e.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *e.Lat, Longitude: *e.Lng}, true
}

// EventWithSeats is an event joined with the live booking count. The count
// is only as fresh as the query that produced it.
type EventWithSeats struct {
	Event
	SeatsTaken int      `db:"seats_taken" json:"seats_taken"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

func (e EventWithSeats) SeatsLeft() int {
	left := e.TotalSeats - e.SeatsTaken
	if left < 0 {
		return 0
	}
	return left
}

func (e EventWithSeats) IsFull() bool {
	return e.TotalSeats-e.SeatsTaken <= 0
}

func (e EventWithSeats) MarshalJSON() ([]byte, error) {
	type plain EventWithSeats
	return json.Marshal(struct {
		plain
		SeatsLeft int  `json:"seats_left"`
		Full      bool `json:"full"`
	}{plain(e), e.SeatsLeft(), e.IsFull()})
}

type EventFilter struct {
	OrganizationID *uuid.UUID
	Near           *Coordinates
}

// EventChanges carries a partial edit; nil fields are left untouched.
type EventChanges struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Description *string  `json:"description"`
	EventDate   *string  `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	TotalSeats  *int     `json:"total_seats" validate:"omitempty,gte=1"`
	Lat         *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

func (ch *EventChanges) Normalize() {
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		ch.Name = &name
	}
}

func (ch EventChanges) IsEmpty() bool {
	return ch.Name == nil && ch.Description == nil && ch.EventDate == nil &&
		ch.TotalSeats == nil && ch.Lat == nil && ch.Lng == nil
}

// Fields renders the set fields as a column map.
func (ch EventChanges) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if ch.Name != nil {
		fields["name"] = *ch.Name
	}
	if ch.Description != nil {
		fields["description"] = *ch.Description
	}
	if ch.EventDate != nil {
		fields["event_date"] = *ch.EventDate
	}
	if ch.TotalSeats != nil {
		fields["total_seats"] = *ch.TotalSeats
	}
	if ch.Lat != nil {
		fields["lat"] = *ch.Lat
	}
	if ch.Lng != nil {
		fields["lng"] = *ch.Lng
	}
	return fields
}

type Guest struct {
	BookingID uuid.UUID `db:"id" json:"id"`
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type EventRepo interface {
	ListEventsWithSeats(ctx context.Context, filter EventFilter) ([]EventWithSeats, error)
	GetEventWithSeats(ctx context.Context, id uuid.UUID) (*EventWithSeats, error)
	GetOrganizationEvent(ctx context.Context, orgID, id uuid.UUID) (*Event, error)
	CreateEvent(ctx context.Context, event *Event) (*Event, error)
	UpdateEvent(ctx context.Context, orgID, id uuid.UUID, changes EventChanges) (*Event, error)
	ListGuests(ctx context.Context, eventID uuid.UUID) ([]Guest, error)
}
