package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/services"
)

const maxAvatarBytes = 5 << 20

func GetProfile(u *services.UserService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		profile, err := u.GetProfile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(profile, ""))
	}
}

func UpdateProfile(u *services.UserService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		var changes models.ProfileChanges
		if err := c.ShouldBindJSON(&changes); err != nil {
			badRequest(c, tr, "request.invalid")
			return
		}
		profile, err := u.UpdateProfile(c.Request.Context(), userID, changes)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(profile, message(c, tr, "profile.updated")))
	}
}

// UploadAvatar takes a multipart "avatar" file.
func UploadAvatar(u *services.UserService, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c, tr)
		if !ok {
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes)
		header, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid_avatar", message(c, tr, "profile.avatar_invalid")))
			return
		}
		file, err := header.Open()
		if err != nil {
			respondError(c, tr, err)
			return
		}
		defer file.Close()

		profile, err := u.UploadAvatar(c.Request.Context(), userID, header.Filename, header.Header.Get("Content-Type"), file)
		if err != nil {
			respondError(c, tr, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(profile, message(c, tr, "profile.updated")))
	}
}
