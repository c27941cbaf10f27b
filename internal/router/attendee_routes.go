package router

import (
	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/middleware"
)

// RegisterAttendee registers the booking endpoints under /v1.  All
// routes require a valid JWT; booking additionally requires a completed
// profile, which the handler reports as a soft failure rather than an
// HTTP error.
func RegisterAttendee(e *echo.Echo, h *handler.AttendeeHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/slots/:id/book", h.BookSlot)
	g.GET("/my-bookings", h.MyBookings)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.POST("/bookings/:id/review", h.Review)
}
