package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

type EventService struct {
	events models.EventRepo
}

func NewEventService(events models.EventRepo) *EventService {
	return &EventService{events: events}
}

type CreateEventInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	EventDate   string   `json:"event_date" binding:"required"`
	TotalSeats  int      `json:"total_seats" binding:"required"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// ListWithAvailability returns events ordered by date with their live seat
// count. When filter.Near is set, events with coordinates also carry their
// distance from that point.
func (es *EventService) ListWithAvailability(ctx context.Context, filter models.EventFilter) ([]models.EventWithSeats, error) {
	if filter.Near != nil {
		if err := filter.Near.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
		}
	}

	events, err := es.events.ListEventsWithSeats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	if filter.Near != nil {
		for i := range events {
			loc, ok := events[i].Location()
			if !ok {
				continue
			}
			d := filter.Near.DistanceKm(loc)
			events[i].DistanceKm = &d
		}
	}
	return events, nil
}

func (es *EventService) Get(ctx context.Context, id uuid.UUID) (*models.EventWithSeats, error) {
	ev, err := es.events.GetEventWithSeats(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) || errors.Is(err, models.ErrInvalidID) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

func (es *EventService) Create(ctx context.Context, orgID uuid.UUID, in CreateEventInput) (*models.EventWithSeats, error) {
	if orgID == uuid.Nil {
		return nil, models.ErrInvalidID
	}

	event := &models.Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		EventDate:      strings.TrimSpace(in.EventDate),
		TotalSeats:     in.TotalSeats,
		Lat:            in.Lat,
		Lng:            in.Lng,
	}
	if err := models.Validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
	}

	created, err := es.events.CreateEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &models.EventWithSeats{Event: *created}, nil
}

func (es *EventService) GetForOrganization(ctx context.Context, orgID, id uuid.UUID) (*models.Event, error) {
	ev, err := es.events.GetOrganizationEvent(ctx, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// Update edits an event of the organization. Lowering the capacity below
// the current booking count keeps every booking; the event simply reads as
// full until seats free up.
func (es *EventService) Update(ctx context.Context, orgID, id uuid.UUID, changes models.EventChanges) (*models.Event, error) {
	changes.Normalize()
	if changes.IsEmpty() {
		return nil, models.ErrNoChanges
	}
	if err := models.Validate.Struct(changes); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
	}

	ev, err := es.events.UpdateEvent(ctx, orgID, id, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return ev, nil
}

// Guests lists who booked an event of the organization.
func (es *EventService) Guests(ctx context.Context, orgID, id uuid.UUID) ([]models.Guest, error) {
	if _, err := es.events.GetOrganizationEvent(ctx, orgID, id); err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	guests, err := es.events.ListGuests(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return guests, nil
}
