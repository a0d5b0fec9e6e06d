package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

type OrganizationService struct {
	orgs models.OrganizationRepo
}

func NewOrganizationService(orgs models.OrganizationRepo) *OrganizationService {
	return &OrganizationService{orgs: orgs}
}

func (ors *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := ors.orgs.GetOrganization(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// MembershipFor returns ErrNotMember when the user does not belong to orgID.
func (ors *OrganizationService) MembershipFor(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	if userID == uuid.Nil || orgID == uuid.Nil {
		return nil, models.ErrInvalidID
	}
	m, err := ors.orgs.GetMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return m, nil
}

// FirstMembership is the organization a user lands on from the home screen.
func (ors *OrganizationService) FirstMembership(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	members, err := ors.orgs.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	if len(members) == 0 {
		return nil, models.ErrNotMember
	}
	return &members[0], nil
}
