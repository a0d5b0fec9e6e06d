package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/middleware"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/nickname"
	"github.com/joshua-takyi/evently/internal/services"
	"github.com/joshua-takyi/evently/internal/storage"
)

type errorMapping struct {
	target error
	status int
	code   string
	key    string
}

// first match wins
var errorMappings = []errorMapping{
	{models.ErrInvalidID, http.StatusBadRequest, "invalid_id", "request.invalid_id"},
	{models.ErrNoChanges, http.StatusBadRequest, "no_changes", "request.no_changes"},
	{models.ErrInvalidEvent, http.StatusBadRequest, "invalid_event", "event.invalid"},
	{models.ErrInvalidProfile, http.StatusBadRequest, "invalid_profile", "profile.invalid"},
	{storage.ErrUnsupportedImage, http.StatusBadRequest, "invalid_avatar", "profile.avatar_invalid"},
	{models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "auth.invalid_credentials"},
	{models.ErrSessionExpired, http.StatusUnauthorized, "unauthorized", "auth.unauthorized"},
	{models.ErrNotMember, http.StatusForbidden, "not_member", "organization.not_member"},
	{models.ErrEventNotFound, http.StatusNotFound, "event_not_found", "event.not_found"},
	{models.ErrBookingNotFound, http.StatusNotFound, "booking_not_found", "booking.not_found"},
	{models.ErrOrganizationNotFound, http.StatusNotFound, "organization_not_found", "organization.not_found"},
	{models.ErrProfileNotFound, http.StatusNotFound, "profile_not_found", "profile.not_found"},
	{models.ErrEventFull, http.StatusConflict, "event_full", "booking.full"},
	{nickname.ErrNotConfigured, http.StatusServiceUnavailable, "nickname_unavailable", "nickname.failed"},
}

// respondError writes the localized error for err. Unknown errors become a
// 500 and are attached to the context for ErrorHandler to log.
func respondError(c *gin.Context, tr *i18n.Translator, err error) {
	locale := middleware.Locale(c)
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, models.ErrorResponse(m.code, tr.T(locale, m.key, nil)))
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse("internal", tr.T(locale, "error.internal", nil)))
}

func badRequest(c *gin.Context, tr *i18n.Translator, key string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid_request", tr.T(middleware.Locale(c), key, nil)))
}

func message(c *gin.Context, tr *i18n.Translator, key string) string {
	return tr.T(middleware.Locale(c), key, nil)
}

// currentUserID is only called behind AuthMiddleware.
func currentUserID(c *gin.Context, tr *i18n.Translator) (uuid.UUID, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", message(c, tr, "auth.unauthorized")))
		return uuid.Nil, false
	}
	id, err := user.ID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized", message(c, tr, "auth.unauthorized")))
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, tr *i18n.Translator, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, tr, "request.invalid_id")
		return uuid.Nil, false
	}
	return id, true
}

func sessionMeta(c *gin.Context) services.SessionMeta {
	return services.SessionMeta{
		RequestID: c.GetString(middleware.RequestIDKey),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
