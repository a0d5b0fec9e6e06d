package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

type Profile struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	FullName  string     `db:"full_name" json:"full_name"`
	AvatarURL string     `db:"avatar_url" json:"avatar_url"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

type ProfileChanges struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=3"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

func (ch ProfileChanges) IsEmpty() bool {
	return ch.FullName == nil && ch.AvatarURL == nil
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges, at time.Time) (*Profile, error)
}

// AuthRepo is served by Supabase auth regardless of the data backend.
type AuthRepo interface {
	AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}
