package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const bookEventRPC = "book_event"

// CreateBooking goes through the book_event function so that the capacity
// check and the insert happen under the same row lock.
func (su *SupabaseRepo) CreateBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error) {
	if userID == uuid.Nil || eventID == uuid.Nil {
		return nil, ErrInvalidID
	}
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	body := client.Rpc(bookEventRPC, "", map[string]string{
		"p_event_id": eventID.String(),
		"p_user_id":  userID.String(),
	})

	id, err := parseBookEventResponse(body)
	if err != nil {
		return nil, translatePostgrestError(err, ErrEventNotFound, "create booking")
	}

	return &Booking{
		ID:        id,
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// parseBookEventResponse reads either the new booking id or a raised error
// out of a raw RPC body.
func parseBookEventResponse(body string) (uuid.UUID, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return uuid.Nil, fmt.Errorf("empty response from %s", bookEventRPC)
	}

	var idStr string
	if err := json.Unmarshal([]byte(body), &idStr); err == nil {
		id, perr := uuid.Parse(idStr)
		if perr != nil {
			return uuid.Nil, fmt.Errorf("unexpected booking id %q: %v", idStr, perr)
		}
		return id, nil
	}

	var rpcErr rpcError
	if err := json.Unmarshal([]byte(body), &rpcErr); err != nil || rpcErr.Code == "" {
		return uuid.Nil, fmt.Errorf("unexpected response from %s: %s", bookEventRPC, body)
	}
	return uuid.Nil, &rpcErr
}

func (su *SupabaseRepo) FindBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(BookedEventTable).
		Select("id,user_id,event_id,created_at", "", false).
		Eq("event_id", eventID.String()).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrBookingNotFound, "find booking")
	}

	bookings, err := decodeRows[Booking](raw, "find booking")
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, ErrBookingNotFound
	}
	return &bookings[0], nil
}

func (su *SupabaseRepo) DeleteBooking(ctx context.Context, userID, bookingID uuid.UUID) error {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(BookedEventTable).
		Delete("representation", "exact").
		Eq("id", bookingID.String()).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return translatePostgrestError(err, ErrBookingNotFound, "delete booking")
	}

	deleted, err := decodeRows[Booking](raw, "delete booking")
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (su *SupabaseRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]BookingWithEvent, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(BookedEventTable).
		Select("id,user_id,event_id,created_at,event(*)", "", false).
		Eq("user_id", userID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, nil, "list bookings")
	}

	bookings, err := decodeRows[BookingWithEvent](raw, "list bookings")
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []BookingWithEvent{}
	}
	return bookings, nil
}
