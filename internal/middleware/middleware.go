package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/helpers"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/services"
)

const (
	RequestIDKey  = "request_id"
	LocaleKey     = "locale"
	UserKey       = "user"
	MembershipKey = "membership"

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	refreshCookieTTL   = 3600 * 24 * 30
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get(RequestIDKey)
		status := c.Writer.Status()

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Error("HTTP Request", attrs...)
		case status >= 400:
			logger.Warn("HTTP Request", attrs...)
		default:
			logger.Info("HTTP Request", attrs...)
		}
	}
}

// ErrorHandler turns errors attached with c.Error into a 500 when the
// handler did not write a response itself.
func ErrorHandler(logger *slog.Logger, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get(RequestIDKey)
		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("internal", tr.T(Locale(c), "error.internal", nil)))
	}
}

// Locale picks the response language from Accept-Language.
func Locale(c *gin.Context) string {
	return c.GetString(LocaleKey)
}

func LocaleMiddleware(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(LocaleKey, tr.Match(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if tok, err := c.Cookie(AccessTokenCookie); err == nil {
		return tok
	}
	return ""
}

// SetSessionCookies stores the token pair as http-only cookies.
func SetSessionCookies(c *gin.Context, accessToken, refreshToken string, expiresIn int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, accessToken, expiresIn, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, refreshToken, refreshCookieTTL, "/", "", secure, true)
}

func ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// AuthMiddleware accepts a bearer token or the access_token cookie. An
// expired cookie session is renewed once from the refresh_token cookie.
func AuthMiddleware(validator helpers.TokenValidator, userService *services.UserService, tr *i18n.Translator, secureCookies bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		unauthorized := func(reason string) {
			logger.Info("Unauthorized request",
				"request_id", c.GetString(RequestIDKey),
				"path", c.Request.URL.Path,
				"reason", reason,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.ErrorResponse("unauthorized", tr.T(Locale(c), "auth.unauthorized", nil)))
		}

		token := bearerToken(c)
		claims, err := validator.ValidateToken(token)
		if err != nil {
			refreshToken, cookieErr := c.Cookie(RefreshTokenCookie)
			if cookieErr != nil || refreshToken == "" {
				unauthorized(err.Error())
				return
			}

			meta := services.SessionMeta{
				RequestID: c.GetString(RequestIDKey),
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			}
			refreshed, refreshErr := userService.RefreshToken(c.Request.Context(), refreshToken, meta)
			if refreshErr != nil || refreshed.AccessToken == "" {
				logger.Error("Token refresh failed", "error", refreshErr)
				unauthorized("token expired and refresh failed")
				return
			}
			logger.Info("Token refreshed successfully",
				"user_id", refreshed.User.ID,
				"expires_in", refreshed.ExpiresIn,
			)
			SetSessionCookies(c, refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresIn, secureCookies)

			token = refreshed.AccessToken
			claims, err = validator.ValidateToken(token)
			if err != nil {
				unauthorized("refreshed token validation failed")
				return
			}
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			unauthorized("subject is not a uuid")
			return
		}

		ctx := models.ContextWithAccessToken(c.Request.Context(), token)
		c.Request = c.Request.WithContext(ctx)

		// a missing profile row is not an auth failure
		profile, err := userService.GetProfile(ctx, userID)
		if err != nil && !errors.Is(err, models.ErrProfileNotFound) {
			logger.Warn("Profile lookup failed", "user_id", userID, "error", err)
		}

		c.Set(UserKey, helpers.NewEnhancedClaims(claims, profile, token))
		c.Next()
	}
}

// CurrentUser returns the claims set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*helpers.EnhancedClaims)
	return claims, ok && claims != nil
}

// RequireMembership guards /organizations/:orgId routes.
func RequireMembership(orgService *services.OrganizationService, tr *i18n.Translator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := Locale(c)
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", tr.T(locale, "auth.unauthorized", nil)))
			return
		}
		userID, err := user.ID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", tr.T(locale, "auth.unauthorized", nil)))
			return
		}
		orgID, err := uuid.Parse(c.Param("orgId"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse("invalid_id", tr.T(locale, "request.invalid_id", nil)))
			return
		}

		membership, err := orgService.MembershipFor(c.Request.Context(), userID, orgID)
		if err != nil {
			if errors.Is(err, models.ErrNotMember) {
				c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("not_member", tr.T(locale, "organization.not_member", nil)))
				return
			}
			logger.Error("Membership check failed", "user_id", userID, "organization_id", orgID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse("internal", tr.T(locale, "error.internal", nil)))
			return
		}

		c.Set(MembershipKey, membership)
		c.Next()
	}
}

func CurrentMembership(c *gin.Context) (*models.Membership, bool) {
	v, ok := c.Get(MembershipKey)
	if !ok {
		return nil, false
	}
	m, ok := v.(*models.Membership)
	return m, ok && m != nil
}
