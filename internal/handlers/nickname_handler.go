package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/evently/internal/i18n"
	"github.com/joshua-takyi/evently/internal/middleware"
	"github.com/joshua-takyi/evently/internal/models"
	"github.com/joshua-takyi/evently/internal/nickname"
)

type NicknameGenerator interface {
	Generate(ctx context.Context, theme string) ([]string, error)
}

// GenerateNicknames proxies one request to the nickname model. Failures are
// reported, never retried.
func GenerateNicknames(gen NicknameGenerator, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Theme string `json:"theme" binding:"max=60"`
		}
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, tr, "request.invalid")
			return
		}
		names, err := gen.Generate(c.Request.Context(), req.Theme)
		if err != nil {
			if errors.Is(err, nickname.ErrNotConfigured) {
				respondError(c, tr, err)
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, models.ErrorResponse("nickname_failed", message(c, tr, "nickname.failed")))
			return
		}
		msg := tr.T(middleware.Locale(c), "nickname.generated", map[string]any{"Count": len(names)})
		c.JSON(http.StatusOK, models.SuccessResponse(names, msg))
	}
}
