package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	ValidateToken(tokenStr string) (*CustomClaims, error)
}

// JWTValidator verifies Supabase access tokens against the project's JWKS
// and, for projects still signing with a shared secret, against HS256.
type JWTValidator struct {
	jwks   *keyfunc.JWKS
	secret []byte
	parser *jwt.Parser
}

// NewJWTValidator fetches the JWKS once and keeps it refreshed in the
// background. A JWKS that cannot be fetched is not fatal when a secret is
// configured.
func NewJWTValidator(ctx context.Context, supabaseURL, jwtSecret string, logger *slog.Logger) (*JWTValidator, error) {
	v := &JWTValidator{
		secret: []byte(jwtSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "ES256", "HS256"}),
			jwt.WithExpirationRequired(),
		),
	}

	if supabaseURL != "" {
		jwksURL := fmt.Sprintf("%s/auth/v1/.well-known/jwks.json", strings.TrimRight(supabaseURL, "/"))
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				if logger != nil {
					logger.Warn("JWKS refresh failed", "error", err)
				}
			},
		})
		if err != nil {
			if len(v.secret) == 0 {
				return nil, fmt.Errorf("failed to load JWKS: %w", err)
			}
			if logger != nil {
				logger.Warn("JWKS unavailable, using the shared secret only", "url", jwksURL, "error", err)
			}
		} else {
			v.jwks = jwks
		}
	}

	if v.jwks == nil && len(v.secret) == 0 {
		return nil, errors.New("no key source configured for token validation")
	}
	return v, nil
}

// NewSecretValidator only accepts HS256 tokens signed with secret.
func NewSecretValidator(secret string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()),
	}
}

func (v *JWTValidator) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.secret) == 0 {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return v.secret, nil
	}
	if v.jwks == nil {
		return nil, fmt.Errorf("no key for %s tokens", token.Method.Alg())
	}
	return v.jwks.Keyfunc(token)
}

func (v *JWTValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := v.parser.ParseWithClaims(tokenStr, &CustomClaims{}, v.keyFor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (v *JWTValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
