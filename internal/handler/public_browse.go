// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes let
// unauthenticated users browse workshops and their slots. Sensitive fields
// (host IDs, timestamps) are filtered from responses.

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	Workshops *repository.WorkshopRepo
	Slots     *repository.SlotRepo
}

// PublicWorkshop represents a workshop in list responses.  Only safe
// fields are included.
type PublicWorkshop struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsVirtual   bool   `json:"is_virtual"`
	Street      string `json:"street,omitempty"`
}

// PublicSlot is a slot in the detail response.  AvailableSpaces is
// derived on every read as capacity minus current bookings; it can go
// negative when the permissive booking policy has oversold the slot.
type PublicSlot struct {
	ID              uint64 `json:"id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Capacity        uint32 `json:"capacity"`
	AvailableSpaces int32  `json:"available_spaces"`
}

// parseVirtual reads the optional ?virtual= filter.  Nil means no filter.
func parseVirtual(c echo.Context) *bool {
	switch strings.ToLower(c.QueryParam("virtual")) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// ListWorkshops returns all workshops, optionally filtered by category
// and virtual/in-person.
func (h *PublicHandler) ListWorkshops(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := h.Workshops.ListPublic(ctx, strings.TrimSpace(c.QueryParam("category")), parseVirtual(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicWorkshop, 0, len(list))
	for _, w := range list {
		out = append(out, PublicWorkshop{
			ID:          w.ID,
			Name:        w.Name,
			Description: w.Description,
			Category:    w.Category,
			IsVirtual:   w.IsVirtual,
			Street:      w.Street,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SearchWorkshops performs a case-insensitive name search with paging.
func (h *PublicHandler) SearchWorkshops(c echo.Context) error {
	ctx := c.Request().Context()
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	q := repository.WorkshopSearchQuery{
		Name:     strings.TrimSpace(c.QueryParam("q")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Virtual:  parseVirtual(c),
		Page:     page,
		PageSize: pageSize,
	}
	rows, total, err := h.Workshops.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows, "total": total})
}

// GetWorkshop returns one workshop with its slots and the number of
// spaces still available on each.
func (h *PublicHandler) GetWorkshop(c echo.Context) error {
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
	slots, err := h.Slots.ListByWorkshop(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	counts, err := h.Slots.BookedCounts(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	slotOut := make([]PublicSlot, 0, len(slots))
	for _, s := range slots {
		slotOut = append(slotOut, PublicSlot{
			ID:              s.ID,
			Date:            s.Date,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			Capacity:        s.Capacity,
			AvailableSpaces: int32(s.Capacity) - int32(counts[s.ID]),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"workshop": PublicWorkshop{
			ID:          w.ID,
			Name:        w.Name,
			Description: w.Description,
			Category:    w.Category,
			IsVirtual:   w.IsVirtual,
			Street:      w.Street,
		},
		"slots": slotOut,
	})
}
