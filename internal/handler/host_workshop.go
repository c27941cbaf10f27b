package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/lifecycle"
	"github.com/voluntree/voluntree-api/internal/model"
	"github.com/voluntree/voluntree-api/internal/repository"
)

// HostHandler bundles the dependencies for everything a host does with
// their own workshops: the listing itself, its slots, and the bookings
// attendees placed on them.
type HostHandler struct {
	Workshops *repository.WorkshopRepo
	Slots     *repository.SlotRepo
	Bookings  *repository.BookingRepo
	Lifecycle *lifecycle.Manager
}

// NewHostHandler constructs a HostHandler and panics if any dependency is nil.
func NewHostHandler(w *repository.WorkshopRepo, s *repository.SlotRepo, b *repository.BookingRepo, l *lifecycle.Manager) *HostHandler {
	if w == nil || s == nil || b == nil || l == nil {
		panic("nil dependency passed to NewHostHandler")
	}
	return &HostHandler{Workshops: w, Slots: s, Bookings: b, Lifecycle: l}
}

type workshopReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsVirtual   bool   `json:"is_virtual"`
	Street      string `json:"street"`
	MeetingLink string `json:"meeting_link"`
}

func (r *workshopReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Street = strings.TrimSpace(r.Street)
	r.MeetingLink = strings.TrimSpace(r.MeetingLink)
	if r.Name == "" {
		return "name required"
	}
	if r.IsVirtual && r.MeetingLink == "" {
		return "meeting_link required for virtual workshops"
	}
	if !r.IsVirtual && r.Street == "" {
		return "street required for in-person workshops"
	}
	return ""
}

type workshopResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsVirtual   bool   `json:"is_virtual"`
	Street      string `json:"street,omitempty"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

func toWorkshopResp(w *model.Workshop) workshopResp {
	return workshopResp{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Category:    w.Category,
		IsVirtual:   w.IsVirtual,
		Street:      w.Street,
		MeetingLink: w.MeetingLink,
	}
}

// CreateWorkshop inserts a new listing owned by the caller and kicks
// off the creation confirmation email.
func (h *HostHandler) CreateWorkshop(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req workshopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w := &model.Workshop{
		HostID:      hostID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsVirtual:   req.IsVirtual,
		Street:      req.Street,
		MeetingLink: req.MeetingLink,
	}
	if err := h.Workshops.Create(ctx, w); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create workshop failed"})
	}

	h.Lifecycle.AnnounceWorkshop(ctx, w)
	return c.JSON(http.StatusCreated, toWorkshopResp(w))
}

// ListMyWorkshops returns every workshop the caller hosts.
func (h *HostHandler) ListMyWorkshops(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	list, err := h.Workshops.ListByHost(ctx, hostID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]workshopResp, 0, len(list))
	for _, w := range list {
		out = append(out, toWorkshopResp(w))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// slotResp is the host's view of one slot, including how many bookings
// sit on it.
type slotResp struct {
	ID        uint64 `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  uint32 `json:"capacity"`
	Booked    uint32 `json:"booked"`
}

// GetMyWorkshop returns one of the caller's workshops with its slots
// and per-slot booking counts.
func (h *HostHandler) GetMyWorkshop(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	ctx := c.Request().Context()

	w, err := h.Workshops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWorkshopNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if w.HostID != hostID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your workshop"})
	}

	slots, err := h.Slots.ListByWorkshop(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	counts, err := h.Slots.BookedCounts(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	slotOut := make([]slotResp, 0, len(slots))
	for _, s := range slots {
		slotOut = append(slotOut, slotResp{
			ID:        s.ID,
			Date:      s.Date,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Capacity:  s.Capacity,
			Booked:    counts[s.ID],
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"workshop": toWorkshopResp(w), "slots": slotOut})
}

// UpdateWorkshop rewrites the mutable fields of a listing.  Ownership
// can never change.
func (h *HostHandler) UpdateWorkshop(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	var req workshopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w := &model.Workshop{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsVirtual:   req.IsVirtual,
		Street:      req.Street,
		MeetingLink: req.MeetingLink,
	}
	err = h.Workshops.Update(ctx, id, hostID, w)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your workshop"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update workshop failed"})
	}
	w.ID = id
	return c.JSON(http.StatusOK, toWorkshopResp(w))
}

// DeleteWorkshop removes a listing together with its slots and
// bookings, notifying every attendee whose booking is swept away.
func (h *HostHandler) DeleteWorkshop(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err = h.Lifecycle.DeleteWorkshop(ctx, id, hostID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrWorkshopNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your workshop"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete workshop failed"})
	}
}

type slotReq struct {
	Date      string `json:"date"`       // "2006-01-02"
	StartTime string `json:"start_time"` // "15:04" or "15:04:05"
	EndTime   string `json:"end_time"`
	Capacity  uint32 `json:"capacity"`
}

// normalizeClock accepts "15:04" or "15:04:05" and returns "15:04:05".
func normalizeClock(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse("15:04:05", v); err == nil {
		return t.Format("15:04:05"), true
	}
	if t, err := time.Parse("15:04", v); err == nil {
		return t.Format("15:04:05"), true
	}
	return "", false
}

// CreateSlot adds a bookable time window to one of the caller's
// workshops.
func (h *HostHandler) CreateSlot(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	workshopID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	start, ok := normalizeClock(req.StartTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	}
	end, ok := normalizeClock(req.EndTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be HH:MM"})
	}
	if end <= start {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w, err := h.Workshops.GetByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, repository.ErrWorkshopNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if w.HostID != hostID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your workshop"})
	}

	s := &model.Slot{
		WorkshopID: workshopID,
		Date:       strings.TrimSpace(req.Date),
		StartTime:  start,
		EndTime:    end,
		Capacity:   req.Capacity,
	}
	if err := h.Slots.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
	}
	return c.JSON(http.StatusCreated, slotResp{
		ID:        s.ID,
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Capacity:  s.Capacity,
	})
}

// CancelSlot removes one slot with all bookings on it and notifies each
// affected attendee.
func (h *HostHandler) CancelSlot(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err = h.Lifecycle.CancelSlot(ctx, slotID, hostID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your slot"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel slot failed"})
	}
}

// ListSlotBookings shows the host who booked one of their slots,
// including any reviews left after the session.
func (h *HostHandler) ListSlotBookings(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	ctx := c.Request().Context()

	rows, err := h.Bookings.ListBySlotForHost(ctx, slotID, hostID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"items": rows})
	case errors.Is(err, repository.ErrSlotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your slot"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
