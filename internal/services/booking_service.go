package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

type BookingService struct {
	events   models.EventRepo
	bookings models.BookingRepo
	logger   *slog.Logger
}

func NewBookingService(events models.EventRepo, bookings models.BookingRepo, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{
		events:   events,
		bookings: bookings,
		logger:   logger,
	}
}

// Book reserves a seat for userID. A full event is rejected from the
// availability read before any write, unless the caller already holds a
// seat in it; the store then re-checks capacity
// atomically, so a stale read can never oversell. A duplicate booking is
// reported as BookingAlreadyBooked rather than as an error and leaves the
// returned count untouched.
func (bs *BookingService) Book(ctx context.Context, userID, eventID uuid.UUID) (*models.BookingOutcome, error) {
	if userID == uuid.Nil || eventID == uuid.Nil {
		return nil, models.ErrInvalidID
	}

	event, err := bs.events.GetEventWithSeats(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event.IsFull() {
		// the caller may hold one of the taken seats
		if existing, ferr := bs.bookings.FindBooking(ctx, userID, eventID); ferr == nil {
			return &models.BookingOutcome{
				Status:    models.BookingAlreadyBooked,
				BookingID: &existing.ID,
				Event:     *event,
			}, nil
		}
		return nil, models.ErrEventFull
	}

	booking, err := bs.bookings.CreateBooking(ctx, userID, eventID)
	switch {
	case err == nil:
		event.SeatsTaken++
		return &models.BookingOutcome{
			Status:    models.BookingBooked,
			BookingID: &booking.ID,
			Event:     *event,
		}, nil

	case errors.Is(err, models.ErrAlreadyBooked):
		outcome := &models.BookingOutcome{
			Status: models.BookingAlreadyBooked,
			Event:  *event,
		}
		existing, ferr := bs.bookings.FindBooking(ctx, userID, eventID)
		if ferr != nil {
			bs.logger.Warn("Existing booking lookup failed",
				"user_id", userID,
				"event_id", eventID,
				"error", ferr,
			)
			return outcome, nil
		}
		outcome.BookingID = &existing.ID
		return outcome, nil

	case errors.Is(err, models.ErrEventFull), errors.Is(err, models.ErrEventNotFound):
		return nil, err
	}
	return nil, fmt.Errorf("failed to create booking: %w", err)
}

// Cancel deletes a booking owned by userID.
func (bs *BookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) error {
	if userID == uuid.Nil || bookingID == uuid.Nil {
		return models.ErrInvalidID
	}
	if err := bs.bookings.DeleteBooking(ctx, userID, bookingID); err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			return err
		}
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return nil
}

func (bs *BookingService) MyBookings(ctx context.Context, userID uuid.UUID) ([]models.BookingWithEvent, error) {
	bookings, err := bs.bookings.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// BookingFor returns the user's booking for eventID, or nil when they hold none.
func (bs *BookingService) BookingFor(ctx context.Context, userID, eventID uuid.UUID) (*models.Booking, error) {
	b, err := bs.bookings.FindBooking(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return b, nil
}
