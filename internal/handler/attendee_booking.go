package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/lifecycle"
	"github.com/voluntree/voluntree-api/internal/queue"
	"github.com/voluntree/voluntree-api/internal/repository"
)

// AttendeeHandler serves everything a user does with bookings they
// hold: booking a slot, listing their bookings, cancelling, reviewing.
type AttendeeHandler struct {
	Slots     *repository.SlotRepo
	Bookings  *repository.BookingRepo
	Lifecycle *lifecycle.Manager
}

// NewAttendeeHandler constructs an AttendeeHandler and panics if any dependency is nil.
func NewAttendeeHandler(s *repository.SlotRepo, b *repository.BookingRepo, l *lifecycle.Manager) *AttendeeHandler {
	if s == nil || b == nil || l == nil {
		panic("nil dependency passed to NewAttendeeHandler")
	}
	return &AttendeeHandler{Slots: s, Bookings: b, Lifecycle: l}
}

type bookReq struct {
	WorkshopID uint64 `json:"workshop_id"`
}

// BookSlot books the slot for the caller.  An incomplete profile is not
// an error: the response carries booked=false and the client sends the
// user to profile setup.
func (h *AttendeeHandler) BookSlot(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	// An empty body is fine, the workshop is then resolved from the slot
	// itself.  A body that fails to parse is not.
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	workshopID := req.WorkshopID
	if workshopID == 0 {
		slot, err := h.Slots.GetByID(ctx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		workshopID = slot.WorkshopID
	}

	booking, profileOK, err := h.Lifecycle.BookSlot(ctx, workshopID, slotID, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, lifecycle.ErrSlotInPast):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot has already started"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is fully booked"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}
	if !profileOK {
		return c.JSON(http.StatusOK, echo.Map{"booked": false, "reason": "profile_incomplete"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"booked": true, "booking_id": booking.ID})
}

// MyBookings lists the caller's bookings.  The optional when filter
// narrows to upcoming or past sessions.
func (h *AttendeeHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	all, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	when := c.QueryParam("when")
	if when != "upcoming" && when != "past" {
		return c.JSON(http.StatusOK, echo.Map{"items": all})
	}
	now := time.Now().UTC()
	out := make([]repository.BookingDetail, 0, len(all))
	for _, d := range all {
		starts, err := time.Parse("2006-01-02 15:04:05", d.Date+" "+d.StartTime)
		if err != nil {
			continue
		}
		if (when == "upcoming") == starts.After(now) {
			out = append(out, d)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CancelBooking removes the caller's own booking and notifies both
// parties.
func (h *AttendeeHandler) CancelBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err = h.Lifecycle.CancelBooking(ctx, bookingID, uid, queue.TriggerAttendee)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}
}

type reviewReq struct {
	Rating  uint8  `json:"rating"`
	Comment string `json:"comment"`
}

// Review stores a rating and comment on a past booking.  Reviewing
// again replaces the previous review.
func (h *AttendeeHandler) Review(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Lifecycle.ReviewBooking(ctx, bookingID, uid, req.Rating, req.Comment)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"rating": req.Rating, "comment": req.Comment})
	case errors.Is(err, lifecycle.ErrInvalidRating):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	case errors.Is(err, lifecycle.ErrSlotNotEnded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session has not taken place yet"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "review failed"})
	}
}
