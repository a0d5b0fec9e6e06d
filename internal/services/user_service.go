package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/session"
	"github.com/joshua-takyi/evently/internal/storage"
	"github.com/supabase-community/gotrue-go/types"
)

const minFullNameLength = 3

type UserService struct {
	auth     models.AuthRepo
	profiles models.ProfileRepo
	avatars  storage.AvatarStore
	sessions session.Publisher
	now      func() time.Time
}

func NewUserService(auth models.AuthRepo, profiles models.ProfileRepo, avatars storage.AvatarStore, sessions session.Publisher) *UserService {
	return &UserService{
		auth:     auth,
		profiles: profiles,
		avatars:  avatars,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SessionMeta describes where a session change came from.
type SessionMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

func (us *UserService) publish(userID string, kind models.SessionEventKind, meta SessionMeta) {
	if us.sessions == nil || userID == "" {
		return
	}
	us.sessions.Publish(models.SessionEvent{
		UserID:     userID,
		Kind:       kind,
		RequestID:  meta.RequestID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		OccurredAt: us.now(),
	})
}

func (us *UserService) AuthenticateUser(ctx context.Context, email, password string, meta SessionMeta) (*types.TokenResponse, error) {
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email format: %v", err)
	}
	if err := models.Validate.Var(password, "required"); err != nil {
		return nil, fmt.Errorf("invalid password format: %v", err)
	}
	response, err := us.auth.AuthenticateUser(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	us.publish(response.User.ID.String(), models.SessionSignedIn, meta)
	return response, nil
}

func (us *UserService) RefreshToken(ctx context.Context, refreshToken string, meta SessionMeta) (*types.TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	response, err := us.auth.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	us.publish(response.User.ID.String(), models.SessionTokenRefreshed, meta)
	return response, nil
}

// Logout revokes the session server-side. The signed_out event is emitted
// even when revocation fails so that listeners drop the session.
func (us *UserService) Logout(ctx context.Context, userID, accessToken string, meta SessionMeta) error {
	err := us.auth.Logout(ctx, accessToken)
	us.publish(userID, models.SessionSignedOut, meta)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

func (us *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := us.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile trims the name and requires at least three characters.
func (us *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, changes models.ProfileChanges) (*models.Profile, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidID
	}
	if changes.FullName != nil {
		name := strings.TrimSpace(*changes.FullName)
		if len([]rune(name)) < minFullNameLength {
			return nil, fmt.Errorf("%w: name must be at least %d characters", models.ErrInvalidProfile, minFullNameLength)
		}
		changes.FullName = &name
	}
	if changes.IsEmpty() {
		return nil, models.ErrNoChanges
	}
	if err := models.Validate.Struct(changes); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidProfile, err)
	}

	p, err := us.profiles.UpdateProfile(ctx, id, changes, us.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// UploadAvatar stores the image under the user's folder and points the
// profile at its public URL.
func (us *UserService) UploadAvatar(ctx context.Context, id uuid.UUID, filename, contentType string, body io.Reader) (*models.Profile, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidID
	}
	if us.avatars == nil {
		return nil, fmt.Errorf("avatar storage is not configured")
	}

	objectPath, err := storage.AvatarPath(id, filename)
	if err != nil {
		return nil, err
	}
	url, err := us.avatars.Upload(ctx, objectPath, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	p, err := us.profiles.UpdateProfile(ctx, id, models.ProfileChanges{AvatarURL: &url}, us.now())
	if err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}
	return p, nil
}
