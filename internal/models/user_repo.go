package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

func (su *SupabaseRepo) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	raw, _, err := client.From(ProfileTable).
		Select("id,email,full_name,avatar_url,updated_at", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrProfileNotFound, "get profile")
	}

	profiles, err := decodeRows[Profile](raw, "get profile")
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}
	return &profiles[0], nil
}

func (su *SupabaseRepo) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges, at time.Time) (*Profile, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	if changes.IsEmpty() {
		return nil, ErrNoChanges
	}
	client, err := su.ClientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %v", err)
	}

	fields := map[string]interface{}{"updated_at": at}
	if changes.FullName != nil {
		fields["full_name"] = *changes.FullName
	}
	if changes.AvatarURL != nil {
		fields["avatar_url"] = *changes.AvatarURL
	}

	raw, _, err := client.From(ProfileTable).
		Update(fields, "representation", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, translatePostgrestError(err, ErrProfileNotFound, "update profile")
	}

	profiles, err := decodeRows[Profile](raw, "update profile")
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}
	return &profiles[0], nil
}

func (su *SupabaseRepo) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		if strings.Contains(err.Error(), "invalid_grant") || strings.Contains(err.Error(), "Invalid login credentials") {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate user: %v", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.RefreshToken(refreshToken)
	if err != nil {
		if strings.Contains(err.Error(), "invalid_grant") || strings.Contains(err.Error(), "refresh_token_not_found") {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to refresh token: %v", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := su.supabaseClient.Auth.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %v", err)
	}
	return nil
}
