package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookingWithEvent is a row of the "my bookings" list.
type BookingWithEvent struct {
	Booking
	Event *Event `json:"event"`
}

type BookingStatus string

const (
	BookingBooked        BookingStatus = "booked"
	BookingAlreadyBooked BookingStatus = "already_booked"
)

// BookingOutcome is the result of a booking attempt that did not fail.
// BookingID is nil when the user was already booked and the lookup of the
// existing booking did not succeed.
type BookingOutcome struct {
	Status    BookingStatus  `json:"status"`
	BookingID *uuid.UUID     `json:"booking_id,omitempty"`
	Event     EventWithSeats `json:"event"`
}

type BookingRepo interface {
	// CreateBooking inserts a booking only if the event still has a free
	// seat and the user holds none. It returns ErrAlreadyBooked,
	// ErrEventFull or ErrEventNotFound when the store refuses the write.
	CreateBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error)
	FindBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error)
	DeleteBooking(ctx context.Context, userID, bookingID uuid.UUID) error
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]BookingWithEvent, error)
}
