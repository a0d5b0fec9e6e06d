package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/middleware"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/services"
	"github.com/joshua-takyi/evently/internal/session"
	"github.com/supabase-community/gotrue-go/types"
)

const (
	sessionPingInterval = 25 * time.Second
	maxHistoryLimit     = 100
)

type tokenPayload struct {
	User         types.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
}

func newTokenPayload(t *types.TokenResponse) tokenPayload {
	return tokenPayload{
		User:         t.User,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
}

// AuthenticateUser signs in with email and password. Browsers get the
// tokens as cookies, other clients read them from the body.
func AuthenticateUser(u *services.UserService, tr *i18n.Translator, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, tr, "request.invalid")
			return
		}

		tokenRes, err := u.AuthenticateUser(c.Request.Context(), req.Email, req.Password, sessionMeta(c))
		if err != nil {
			respondError(c, tr, err)
			return
		}

		middleware.SetSessionCookies(c, tokenRes.AccessToken, tokenRes.RefreshToken, tokenRes.ExpiresIn, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(newTokenPayload(tokenRes), message(c, tr, "auth.signed_in")))
	}
}

// RefreshToken exchanges a refresh token from the body or the cookie.
func RefreshToken(u *services.UserService, tr *i18n.Translator, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.RefreshToken == "" {
			req.RefreshToken, _ = c.Cookie(middleware.RefreshTokenCookie)
		}
		if req.RefreshToken == "" {
			badRequest(c, tr, "request.invalid")
			return
		}

		tokenRes, err := u.RefreshToken(c.Request.Context(), req.RefreshToken, sessionMeta(c))
		if err != nil {
			respondError(c, tr, err)
			return
		}

		middleware.SetSessionCookies(c, tokenRes.AccessToken, tokenRes.RefreshToken, tokenRes.ExpiresIn, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(newTokenPayload(tokenRes), message(c, tr, "auth.refreshed")))
	}
}

// Logout revokes the session and clears the cookies. Cookies are cleared
// even when revocation fails.
func Logout(u *services.UserService, tr *i18n.Translator, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", message(c, tr, "auth.unauthorized")))
			return
		}

		err := u.Logout(c.Request.Context(), user.UserID, user.AccessToken, sessionMeta(c))
		middleware.ClearSessionCookies(c, secureCookies)
		if err != nil {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, message(c, tr, "auth.signed_out")))
	}
}

// SessionEvents streams the caller's session changes as server-sent
// events, starting with an initial_session event.
func SessionEvents(broker *session.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		events := broker.Subscribe(c.Request.Context())
		ping := time.NewTicker(sessionPingInterval)
		defer ping.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.SSEvent("initial_session", gin.H{"user_id": user.UserID})
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case ev, open := <-events:
				if !open {
					return false
				}
				if ev.UserID == user.UserID {
					c.SSEvent(string(ev.Kind), ev)
				}
				return ev.Kind != models.SessionSignedOut || ev.UserID != user.UserID
			case <-ping.C:
				c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

// SessionHistory lists the caller's recorded session events, newest first.
func SessionHistory(repo models.SessionEventRepo, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", message(c, tr, "auth.unauthorized")))
			return
		}
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				badRequest(c, tr, "request.invalid")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		events, err := repo.ListSessionEvents(c.Request.Context(), user.UserID, limit)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(events, len(events)))
	}
}
