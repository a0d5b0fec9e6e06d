package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

func (su *SupabaseRepo) ListEventsWithSeats(ctx context.Context, filter EventFilter) ([]EventWithSeats, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	query := client.From(EventWithSeatsView).Select("*", "", false)
	if filter.OrganizationID != nil {
		query = query.Eq("organization_id", filter.OrganizationID.String())
	}

	raw, _, err := query.Order("event_date", &postgrest.OrderOpts{Ascending: true}).Execute()
	if err != nil {
		return nil, translatePostgrestError(err, nil, "list events")
	}

	events, err := decodeRows[EventWithSeats](raw, "list events")
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []EventWithSeats{}
	}
	return events, nil
}

func (su *SupabaseRepo) GetEventWithSeats(ctx context.Context, id uuid.UUID) (*EventWithSeats, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(EventWithSeatsView).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrEventNotFound, "get event")
	}

	events, err := decodeRows[EventWithSeats](raw, "get event")
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return &events[0], nil
}

func (su *SupabaseRepo) GetOrganizationEvent(ctx context.Context, orgID, id uuid.UUID) (*Event, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(EventTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Eq("organization_id", orgID.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrEventNotFound, "get organization event")
	}

	events, err := decodeRows[Event](raw, "get organization event")
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return &events[0], nil
}

func (su *SupabaseRepo) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	row := map[string]interface{}{
		"id":              event.ID,
		"organization_id": event.OrganizationID,
		"name":            event.Name,
		"description":     event.Description,
		"event_date":      event.EventDate,
		"total_seats":     event.TotalSeats,
		"lat":             event.Lat,
		"lng":             event.Lng,
	}

	raw, _, err := client.From(EventTable).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, nil, "create event")
	}

	created, err := decodeRows[Event](raw, "create event")
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create event: no row returned")
	}
	return &created[0], nil
}

func (su *SupabaseRepo) UpdateEvent(ctx context.Context, orgID, id uuid.UUID, changes EventChanges) (*Event, error) {
	if changes.IsEmpty() {
		return nil, ErrNoChanges
	}
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	fields := changes.Fields()
	fields["updated_at"] = time.Now().UTC()

	raw, _, err := client.From(EventTable).
		Update(fields, "representation", "exact").
		Eq("id", id.String()).
		Eq("organization_id", orgID.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrEventNotFound, "update event")
	}

	updated, err := decodeRows[Event](raw, "update event")
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ErrEventNotFound
	}
	return &updated[0], nil
}

func (su *SupabaseRepo) ListGuests(ctx context.Context, eventID uuid.UUID) ([]Guest, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(BookedEventUsersView).
		Select("*", "", false).
		Eq("event_id", eventID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, nil, "list guests")
	}

	guests, err := decodeRows[Guest](raw, "list guests")
	if err != nil {
		return nil, err
	}
	if guests == nil {
		guests = []Guest{}
	}
	return guests, nil
}
