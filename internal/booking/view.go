// Package booking keeps a client's view of one event's availability. The
// snapshot is disposable: every authoritative fetch overwrites it, and
// local edits between fetches are optimistic patches only.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

var (
	ErrBusy        = errors.New("a booking request is already in progress")
	ErrScopeClosed = errors.New("view is closed")
	ErrNotBooked   = errors.New("no booking held for this event")
)

// Store is the authoritative side.
type Store interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.EventWithSeats, error)
	// FindMyBooking returns nil, nil when the user holds no booking.
	FindMyBooking(ctx context.Context, eventID uuid.UUID) (*models.Booking, error)
	Book(ctx context.Context, eventID uuid.UUID) (*models.BookingOutcome, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID) error
}

type Action string

const (
	ActionBook   Action = "book"
	ActionFull   Action = "full"
	ActionBooked Action = "booked"
	ActionBusy   Action = "busy"
)

type Snapshot struct {
	Event models.EventWithSeats
	// Held can be true with a nil BookingID when the server confirmed a
	// booking but its id could not be looked up.
	Held      bool
	BookingID *uuid.UUID
	Loaded    bool
	FetchedAt time.Time
}

type View struct {
	store   Store
	scope   *Scope
	eventID uuid.UUID
	now     func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	loadGen  uint64
	inFlight bool
}

func NewView(scope *Scope, store Store, eventID uuid.UUID) *View {
	return &View{
		store:   store,
		scope:   scope,
		eventID: eventID,
		now:     time.Now,
	}
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Action is the label of the booking control for the current snapshot.
func (v *View) Action() Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.inFlight:
		return ActionBusy
	case v.snap.Held:
		return ActionBooked
	case v.snap.Loaded && v.snap.Event.IsFull():
		return ActionFull
	}
	return ActionBook
}

// Load fetches the event and the caller's booking and replaces the
// snapshot. A load overtaken by a newer load or by a write applied while it
// was in flight is dropped.
func (v *View) Load(ctx context.Context) error {
	if v.scope.Closed() {
		return ErrScopeClosed
	}
	v.mu.Lock()
	v.loadGen++
	gen := v.loadGen
	v.mu.Unlock()

	rctx, cancel := v.scope.bind(ctx)
	defer cancel()

	event, err := v.store.GetEvent(rctx, v.eventID)
	if err != nil {
		return v.dropIfClosed(fmt.Errorf("load event: %w", err))
	}
	held, err := v.store.FindMyBooking(rctx, v.eventID)
	if err != nil {
		return v.dropIfClosed(fmt.Errorf("load booking: %w", err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.scope.Closed() {
		return ErrScopeClosed
	}
	if gen != v.loadGen {
		return nil
	}
	v.snap = Snapshot{Event: *event, Loaded: true, FetchedAt: v.now()}
	if held != nil {
		id := held.ID
		v.snap.Held = true
		v.snap.BookingID = &id
	}
	return nil
}

// Refresh is an explicit invalidation: the next authoritative read wins
// over any optimistic patch.
func (v *View) Refresh(ctx context.Context) error {
	return v.Load(ctx)
}

// Book rejects locally when the snapshot shows no seat left, and allows one
// request at a time.
func (v *View) Book(ctx context.Context) (*models.BookingOutcome, error) {
	if v.scope.Closed() {
		return nil, ErrScopeClosed
	}

	v.mu.Lock()
	if v.inFlight {
		v.mu.Unlock()
		return nil, ErrBusy
	}
	if v.snap.Held {
		outcome := &models.BookingOutcome{
			Status:    models.BookingAlreadyBooked,
			BookingID: v.snap.BookingID,
			Event:     v.snap.Event,
		}
		v.mu.Unlock()
		return outcome, nil
	}
	if v.snap.Loaded && v.snap.Event.IsFull() {
		v.mu.Unlock()
		return nil, models.ErrEventFull
	}
	v.inFlight = true
	v.mu.Unlock()

	rctx, cancel := v.scope.bind(ctx)
	defer cancel()
	outcome, err := v.store.Book(rctx, v.eventID)
	if err == nil && outcome.Status == models.BookingAlreadyBooked && outcome.BookingID == nil {
		// the server did not know the id either; one lookup, no retry
		if held, ferr := v.store.FindMyBooking(rctx, v.eventID); ferr == nil && held != nil {
			id := held.ID
			outcome.BookingID = &id
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false
	if v.scope.Closed() {
		return nil, ErrScopeClosed
	}
	if err != nil {
		if errors.Is(err, models.ErrEventFull) && v.snap.Loaded && v.snap.Event.SeatsTaken < v.snap.Event.TotalSeats {
			v.snap.Event.SeatsTaken = v.snap.Event.TotalSeats
			v.loadGen++
		}
		return nil, err
	}

	// loads started before this write carry the state it replaced
	v.loadGen++
	switch outcome.Status {
	case models.BookingBooked:
		v.snap.Event.SeatsTaken++
		v.snap.Held = true
		v.snap.BookingID = outcome.BookingID
	case models.BookingAlreadyBooked:
		v.snap.Held = true
		v.snap.BookingID = outcome.BookingID
	}
	return outcome, nil
}

// Cancel deletes the held booking. The seat count is left to the next
// fetch to recompute.
func (v *View) Cancel(ctx context.Context) error {
	if v.scope.Closed() {
		return ErrScopeClosed
	}

	v.mu.Lock()
	if v.inFlight {
		v.mu.Unlock()
		return ErrBusy
	}
	if !v.snap.Held {
		v.mu.Unlock()
		return ErrNotBooked
	}
	known := v.snap.BookingID
	v.inFlight = true
	v.mu.Unlock()

	rctx, cancel := v.scope.bind(ctx)
	defer cancel()
	err := v.cancel(rctx, known)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false
	if v.scope.Closed() {
		return ErrScopeClosed
	}
	if err != nil && !errors.Is(err, ErrNotBooked) {
		return err
	}
	v.loadGen++
	v.snap.Held = false
	v.snap.BookingID = nil
	return err
}

// cancel resolves the booking id first when the snapshot does not have it.
func (v *View) cancel(ctx context.Context, known *uuid.UUID) error {
	if known == nil {
		held, err := v.store.FindMyBooking(ctx, v.eventID)
		if err != nil {
			return fmt.Errorf("find booking: %w", err)
		}
		if held == nil {
			return ErrNotBooked
		}
		known = &held.ID
	}
	return v.store.CancelBooking(ctx, *known)
}

func (v *View) dropIfClosed(err error) error {
	if v.scope.Closed() {
		return ErrScopeClosed
	}
	return err
}
