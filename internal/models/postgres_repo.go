package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `e.id, e.organization_id, e.name, COALESCE(e.description, ''), e.event_date::text,
	e.total_seats, e.lat, e.lng, e.created_at, e.updated_at`

func eventDest(e *Event) []any {
	return []any{&e.ID, &e.OrganizationID, &e.Name, &e.Description, &e.EventDate,
		&e.TotalSeats, &e.Lat, &e.Lng, &e.CreatedAt, &e.UpdatedAt}
}

func (pg *PostgresRepo) ListEventsWithSeats(ctx context.Context, filter EventFilter) ([]EventWithSeats, error) {
	query := `SELECT ` + eventColumns + `, e.seats_taken FROM event_with_seats e`
	var args []any
	if filter.OrganizationID != nil {
		query += ` WHERE e.organization_id = $1`
		args = append(args, *filter.OrganizationID)
	}
	query += ` ORDER BY e.event_date ASC, e.created_at ASC`

	rows, err := pg.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []EventWithSeats{}
	for rows.Next() {
		var ev EventWithSeats
		if err := rows.Scan(append(eventDest(&ev.Event), &ev.SeatsTaken)...); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (pg *PostgresRepo) GetEventWithSeats(ctx context.Context, id uuid.UUID) (*EventWithSeats, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	query := `SELECT ` + eventColumns + `, e.seats_taken FROM event_with_seats e WHERE e.id = $1`

	var ev EventWithSeats
	err := pg.queryRow(ctx, query, id).Scan(append(eventDest(&ev.Event), &ev.SeatsTaken)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

func (pg *PostgresRepo) GetOrganizationEvent(ctx context.Context, orgID, id uuid.UUID) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event e WHERE e.id = $1 AND e.organization_id = $2`

	var ev Event
	if err := pg.queryRow(ctx, query, id, orgID).Scan(eventDest(&ev)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get organization event: %w", err)
	}
	return &ev, nil
}

func (pg *PostgresRepo) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	query := `
WITH e AS (
	INSERT INTO event (id, organization_id, name, description, event_date, total_seats, lat, lng)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5::date, $6, $7, $8)
	RETURNING *
)
SELECT ` + eventColumns + ` FROM e`

	var created Event
	err := pg.queryRow(ctx, query,
		event.ID,
		event.OrganizationID,
		event.Name,
		event.Description,
		event.EventDate,
		event.TotalSeats,
		event.Lat,
		event.Lng,
	).Scan(eventDest(&created)...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, ErrInvalidID
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &created, nil
}

func (pg *PostgresRepo) UpdateEvent(ctx context.Context, orgID, id uuid.UUID, changes EventChanges) (*Event, error) {
	if changes.IsEmpty() {
		return nil, ErrNoChanges
	}
	query := `
WITH e AS (
	UPDATE event SET
		name = COALESCE($3, name),
		description = COALESCE($4, description),
		event_date = COALESCE($5::date, event_date),
		total_seats = COALESCE($6, total_seats),
		lat = COALESCE($7, lat),
		lng = COALESCE($8, lng),
		updated_at = NOW()
	WHERE id = $1 AND organization_id = $2
	RETURNING *
)
SELECT ` + eventColumns + ` FROM e`

	var updated Event
	err := pg.queryRow(ctx, query, id, orgID,
		changes.Name, changes.Description, changes.EventDate, changes.TotalSeats, changes.Lat, changes.Lng,
	).Scan(eventDest(&updated)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &updated, nil
}

func (pg *PostgresRepo) ListGuests(ctx context.Context, eventID uuid.UUID) ([]Guest, error) {
	const query = `
SELECT id, event_id, user_id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(avatar_url, ''), created_at
FROM booked_event_users
WHERE event_id = $1
ORDER BY created_at ASC`

	rows, err := pg.query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	guests := []Guest{}
	for rows.Next() {
		var g Guest
		if err := rows.Scan(&g.BookingID, &g.EventID, &g.UserID, &g.Email, &g.FullName, &g.AvatarURL, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// CreateBooking locks the event row so that concurrent bookings for the
// same event are serialized; the seat count read under the lock is exact.
func (pg *PostgresRepo) CreateBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error) {
	if userID == uuid.Nil || eventID == uuid.Nil {
		return nil, ErrInvalidID
	}

	var booking *Booking
	err := pg.WithTx(ctx, func(ctx context.Context) error {
		var totalSeats int
		err := pg.queryRow(ctx, `SELECT total_seats FROM event WHERE id = $1 FOR UPDATE`, eventID).Scan(&totalSeats)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		var exists bool
		if err := pg.queryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM booked_event WHERE event_id = $1 AND user_id = $2)`,
			eventID, userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check booking: %w", err)
		}
		if exists {
			return ErrAlreadyBooked
		}

		var taken int
		if err := pg.queryRow(ctx, `SELECT COUNT(*) FROM booked_event WHERE event_id = $1`, eventID).Scan(&taken); err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		if taken >= totalSeats {
			return ErrEventFull
		}

		b := Booking{UserID: userID, EventID: eventID}
		err = pg.queryRow(ctx,
			`INSERT INTO booked_event (user_id, event_id) VALUES ($1, $2) RETURNING id, created_at`,
			userID, eventID,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyBooked
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		booking = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (pg *PostgresRepo) FindBooking(ctx context.Context, userID, eventID uuid.UUID) (*Booking, error) {
	const query = `SELECT id, user_id, event_id, created_at FROM booked_event WHERE event_id = $1 AND user_id = $2`

	var b Booking
	if err := pg.queryRow(ctx, query, eventID, userID).Scan(&b.ID, &b.UserID, &b.EventID, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &b, nil
}

func (pg *PostgresRepo) DeleteBooking(ctx context.Context, userID, bookingID uuid.UUID) error {
	tag, err := pg.exec(ctx, `DELETE FROM booked_event WHERE id = $1 AND user_id = $2`, bookingID, userID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (pg *PostgresRepo) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]BookingWithEvent, error) {
	query := `
SELECT b.id, b.user_id, b.event_id, b.created_at, ` + eventColumns + `
FROM booked_event b
JOIN event e ON e.id = b.event_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC`

	rows, err := pg.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []BookingWithEvent{}
	for rows.Next() {
		bw := BookingWithEvent{Event: &Event{}}
		dest := append([]any{&bw.ID, &bw.UserID, &bw.EventID, &bw.CreatedAt}, eventDest(bw.Event)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, bw)
	}
	return bookings, rows.Err()
}

func (pg *PostgresRepo) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	const query = `SELECT id, name, COALESCE(description, ''), created_at FROM organization WHERE id = $1`

	var o Organization
	if err := pg.queryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

func (pg *PostgresRepo) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error) {
	const query = `SELECT organization_id, user_id, role FROM organization_member WHERE organization_id = $1 AND user_id = $2`

	var m Membership
	if err := pg.queryRow(ctx, query, orgID, userID).Scan(&m.OrganizationID, &m.UserID, &m.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (pg *PostgresRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	const query = `SELECT organization_id, user_id, role FROM organization_member WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := pg.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (pg *PostgresRepo) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	const query = `SELECT id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(avatar_url, ''), updated_at FROM profiles WHERE id = $1`

	var p Profile
	if err := pg.queryRow(ctx, query, id).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (pg *PostgresRepo) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges, at time.Time) (*Profile, error) {
	if changes.IsEmpty() {
		return nil, ErrNoChanges
	}
	const query = `
UPDATE profiles SET
	full_name = COALESCE($2, full_name),
	avatar_url = COALESCE($3, avatar_url),
	updated_at = $4
WHERE id = $1
RETURNING id, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(avatar_url, ''), updated_at`

	var p Profile
	err := pg.queryRow(ctx, query, id, changes.FullName, changes.AvatarURL, at).
		Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}
