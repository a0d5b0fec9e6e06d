package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

func (su *SupabaseRepo) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(OrganizationTable).
		Select("id,name,description,created_at", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrOrganizationNotFound, "get organization")
	}

	orgs, err := decodeRows[Organization](raw, "get organization")
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, ErrOrganizationNotFound
	}
	return &orgs[0], nil
}

func (su *SupabaseRepo) GetMembership(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(MemberTable).
		Select("organization_id,user_id,role", "", false).
		Eq("organization_id", orgID.String()).
		Eq("user_id", userID.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrNotMember, "get membership")
	}

	members, err := decodeRows[Membership](raw, "get membership")
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNotMember
	}
	return &members[0], nil
}

func (su *SupabaseRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(MemberTable).
		Select("organization_id,user_id,role", "", false).
		Eq("user_id", userID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, nil, "list memberships")
	}

	members, err := decodeRows[Membership](raw, "list memberships")
	if err != nil {
		return nil, err
	}
	return members, nil
}
