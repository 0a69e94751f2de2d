package handlers

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sticktock/mirror/internal/helpers"
	"github.com/sticktock/mirror/internal/middleware"
)

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(SessionMiddleware(h.Config.SessionSecret, h.Config.SecureSessionCookie))

	r.GET("/health", h.HealthCheckHandler)
	r.GET("/by_url/*url", h.ByURLHandler)
	r.GET("/related/*url", h.RelatedHandler)
	r.GET("/by_id/:id", h.ByIDHandler)
	r.POST("/restore/:id", h.RestoreHandler)

	for _, kind := range helpers.AssetKinds {
		r.Static("/"+string(kind), filepath.Join(h.Config.PublicDir, string(kind)))
	}
}
