package models_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/testutil"
)

func TestPostgresCreateBookingLastSeatRace(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	orgID := testutil.InsertOrganization(t, ctx, pool, "Org")
	eventID := testutil.InsertEvent(t, ctx, pool, orgID, "Last seat", 1, "2025-06-01")
	repo := models.PostgresNewRepo(pool)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		full    int
		unknown []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateBooking(ctx, uuid.New(), eventID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, models.ErrEventFull):
				full++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	if len(unknown) > 0 {
		t.Fatalf("unexpected errors: %v", unknown)
	}
	if booked != 1 || full != attempts-1 {
		t.Fatalf("expected exactly one booking, got booked=%d full=%d", booked, full)
	}

	ev, err := repo.GetEventWithSeats(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if ev.SeatsTaken != 1 || ev.SeatsLeft() != 0 {
		t.Fatalf("expected 1 taken / 0 left, got %d / %d", ev.SeatsTaken, ev.SeatsLeft())
	}
}

func TestPostgresBookingLifecycle(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	orgID := testutil.InsertOrganization(t, ctx, pool, "Org")
	eventID := testutil.InsertEvent(t, ctx, pool, orgID, "Meetup", 10, "2025-06-01")
	userID := uuid.New()
	testutil.InsertProfile(t, ctx, pool, userID, "ada@example.com", "Ada Lovelace")
	repo := models.PostgresNewRepo(pool)

	b, err := repo.CreateBooking(ctx, userID, eventID)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := repo.CreateBooking(ctx, userID, eventID); !errors.Is(err, models.ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}

	found, err := repo.FindBooking(ctx, userID, eventID)
	if err != nil || found.ID != b.ID {
		t.Fatalf("find booking: %v %v", found, err)
	}

	guests, err := repo.ListGuests(ctx, eventID)
	if err != nil {
		t.Fatalf("list guests: %v", err)
	}
	if len(guests) != 1 || guests[0].Email != "ada@example.com" || guests[0].BookingID != b.ID {
		t.Fatalf("unexpected guests: %+v", guests)
	}

	mine, err := repo.ListUserBookings(ctx, userID)
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(mine) != 1 || mine[0].Event == nil || mine[0].Event.Name != "Meetup" {
		t.Fatalf("unexpected bookings: %+v", mine)
	}

	// someone else cannot cancel it
	if err := repo.DeleteBooking(ctx, uuid.New(), b.ID); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound for foreign cancel, got %v", err)
	}
	if err := repo.DeleteBooking(ctx, userID, b.ID); err != nil {
		t.Fatalf("delete booking: %v", err)
	}

	ev, err := repo.GetEventWithSeats(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if ev.SeatsTaken != 0 {
		t.Fatalf("expected count to drop after cancel, got %d", ev.SeatsTaken)
	}
}

func TestPostgresCapacityLoweredKeepsBookings(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	orgID := testutil.InsertOrganization(t, ctx, pool, "Org")
	eventID := testutil.InsertEvent(t, ctx, pool, orgID, "Workshop", 10, "2025-06-01")
	repo := models.PostgresNewRepo(pool)

	for i := 0; i < 5; i++ {
		if _, err := repo.CreateBooking(ctx, uuid.New(), eventID); err != nil {
			t.Fatalf("booking %d: %v", i, err)
		}
	}

	seats := 5
	if _, err := repo.UpdateEvent(ctx, orgID, eventID, models.EventChanges{TotalSeats: &seats}); err != nil {
		t.Fatalf("update event: %v", err)
	}

	ev, err := repo.GetEventWithSeats(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if ev.SeatsTaken != 5 || ev.SeatsLeft() != 0 || !ev.IsFull() {
		t.Fatalf("expected full event with 5 bookings, got taken=%d left=%d", ev.SeatsTaken, ev.SeatsLeft())
	}

	// editing from another organization must not match
	if _, err := repo.UpdateEvent(ctx, uuid.New(), eventID, models.EventChanges{TotalSeats: &seats}); !errors.Is(err, models.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestPostgresEventRoundTrip(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	orgID := testutil.InsertOrganization(t, ctx, pool, "Org")
	repo := models.PostgresNewRepo(pool)

	created, err := repo.CreateEvent(ctx, &models.Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "Test",
		TotalSeats:     3,
		EventDate:      "2025-06-01",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	events, err := repo.ListEventsWithSeats(ctx, models.EventFilter{OrganizationID: &orgID})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	got := events[0]
	if got.ID != created.ID || got.Name != "Test" || got.TotalSeats != 3 || got.EventDate != "2025-06-01" || got.SeatsTaken != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	other := uuid.New()
	events, err = repo.ListEventsWithSeats(ctx, models.EventFilter{OrganizationID: &other})
	if err != nil || len(events) != 0 {
		t.Fatalf("filter by foreign organization should be empty: %v %v", events, err)
	}
}
