package helpers

import (
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/models"
)

// EnhancedClaims is what handlers find under "user" in the gin context.
type EnhancedClaims struct {
	*CustomClaims
	UserID      string `json:"id"`
	Email       string `json:"email,omitempty"`
	Fullname    string `json:"fullname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	AccessToken string `json:"-"`
}

func NewEnhancedClaims(claims *CustomClaims, profile *models.Profile, accessToken string) *EnhancedClaims {
	ec := &EnhancedClaims{
		CustomClaims: claims,
		UserID:       claims.Subject,
		Email:        claims.Email,
		AccessToken:  accessToken,
	}
	if profile != nil {
		ec.Fullname = profile.FullName
		ec.AvatarURL = profile.AvatarURL
		if ec.Email == "" {
			ec.Email = profile.Email
		}
	}
	return ec
}

func (ec *EnhancedClaims) ID() (uuid.UUID, error) {
	return uuid.Parse(ec.UserID)
}
