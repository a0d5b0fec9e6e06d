package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Membership struct {
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Role           string    `db:"role" json:"role"`
}

type OrganizationRepo interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error)
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}
