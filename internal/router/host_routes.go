package router

import (
	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/handler"
	"github.com/voluntree/voluntree-api/internal/middleware"
)

// RegisterHost registers host-scoped endpoints under /v1.  Every
// account can host; ownership of the touched workshop or slot is
// checked inside the handlers and repositories, not by a role.
func RegisterHost(e *echo.Echo, h *handler.HostHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	// ---- Workshops ----
	g.POST("/workshops", h.CreateWorkshop)
	g.GET("/my-workshops", h.ListMyWorkshops)
	g.GET("/my-workshops/:id", h.GetMyWorkshop)
	g.PUT("/workshops/:id", h.UpdateWorkshop)
	g.PATCH("/workshops/:id", h.UpdateWorkshop) // allow partial/semantic updates via PATCH as well
	g.DELETE("/workshops/:id", h.DeleteWorkshop)

	// ---- Slots ----
	g.POST("/workshops/:id/slots", h.CreateSlot)
	g.DELETE("/slots/:id", h.CancelSlot) // cascades to every booking on the slot
	g.GET("/slots/:id/bookings", h.ListSlotBookings)
}
