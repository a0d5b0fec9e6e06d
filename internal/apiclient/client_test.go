package apiclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/booking"
	"github.com/joshua-takyi/evently/internal/container"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/routes"
	"github.com/joshua-takyi/evently/internal/testutil"
)

var _ booking.Store = (*Client)(nil)

func newServer(t *testing.T) (*httptest.Server, *testutil.MemoryStore) {
	t.Helper()
	store := testutil.NewMemoryStore()
	app := container.Assemble(slog.New(slog.NewTextHandler(io.Discard, nil)), container.Repos{
		Events:        store,
		Bookings:      store,
		Organizations: store,
		Profiles:      store,
		Auth:          store,
	}, container.Options{
		TokenValidator: helpers.NewSecretValidator(testutil.JWTSecret),
		DefaultLocale:  "en",
	})
	srv := httptest.NewServer(routes.SetupRoutes(app))
	t.Cleanup(func() {
		app.Broker.Close()
		srv.Close()
	})
	return srv, store
}

func TestClientBookingFlow(t *testing.T) {
	srv, store := newServer(t)
	org := store.AddOrganization("Club")
	ev := store.AddEvent(org.ID, "Meetup", 1, "2025-06-01")
	store.AddUser("ada@example.com", "Ada Lovelace", "hunter22")
	ctx := context.Background()

	c := New(srv.URL, srv.Client())
	if _, err := c.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := c.Login(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}

	events, err := c.ListEvents(ctx, nil)
	if err != nil || len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("list: %+v, %v", events, err)
	}

	held, err := c.FindMyBooking(ctx, ev.ID)
	if err != nil || held != nil {
		t.Fatalf("expected no booking, got %+v, %v", held, err)
	}

	out, err := c.Book(ctx, ev.ID)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if out.Status != models.BookingBooked || out.BookingID == nil || out.Event.SeatsTaken != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	again, err := c.Book(ctx, ev.ID)
	if err != nil || again.Status != models.BookingAlreadyBooked {
		t.Fatalf("rebook: %+v, %v", again, err)
	}

	mine, err := c.MyBookings(ctx)
	if err != nil || len(mine) != 1 {
		t.Fatalf("mine: %+v, %v", mine, err)
	}

	if err := c.CancelBooking(ctx, *out.BookingID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := c.CancelBooking(ctx, *out.BookingID); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatalf("second cancel: %v", err)
	}

	if _, err := c.GetEvent(ctx, uuid.New()); !errors.Is(err, models.ErrEventNotFound) {
		t.Fatalf("unknown event: %v", err)
	}
}

func TestClientFullEvent(t *testing.T) {
	srv, store := newServer(t)
	org := store.AddOrganization("Club")
	ev := store.AddEvent(org.ID, "Tiny", 1, "2025-06-01")
	store.AddUser("ada@example.com", "Ada", "pw")
	store.AddUser("bob@example.com", "Bob", "pw")
	ctx := context.Background()

	ada := New(srv.URL, srv.Client())
	bob := New(srv.URL, srv.Client()).WithLocale("it")
	if _, err := ada.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Login(ctx, "bob@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	// bob's view was loaded while the seat was still free
	scope := booking.NewScope(ctx)
	defer scope.Close()
	view := booking.NewView(scope, bob, ev.ID)
	if err := view.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if view.Action() != booking.ActionBook {
		t.Fatalf("expected book, got %s", view.Action())
	}

	if _, err := ada.Book(ctx, ev.ID); err != nil {
		t.Fatal(err)
	}

	_, err := view.Book(ctx)
	if !errors.Is(err, models.ErrEventFull) {
		t.Fatalf("expected ErrEventFull from the server, got %v", err)
	}
	if view.Action() != booking.ActionFull {
		t.Fatalf("expected full, got %s", view.Action())
	}
	if store.SeatsTaken(ev.ID) != 1 {
		t.Fatalf("oversold")
	}
}

func TestClientRefreshAndLogout(t *testing.T) {
	srv, store := newServer(t)
	store.AddUser("ada@example.com", "Ada", "pw")
	ctx := context.Background()

	c := New(srv.URL, srv.Client())
	first, err := c.Login(ctx, "ada@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Tokens().AccessToken != "" {
		t.Fatal("tokens kept after logout")
	}
	var apiErr *APIError
	if _, err := c.MyBookings(ctx); !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("expected 401 after logout, got %v", err)
	}
}
