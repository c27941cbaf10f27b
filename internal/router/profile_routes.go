package router

import (
	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/middleware"
)

// RegisterProfile registers the profile setup endpoints under /v1.
func RegisterProfile(e *echo.Echo, h *handler.ProfileHandler, jwtSecret string) {
	g := e.Group("/v1/profile", middleware.JWTAuth(jwtSecret))

	g.GET("", h.Get)
	g.PUT("", h.Put)
	g.POST("/avatar", h.UploadAvatar)
}
