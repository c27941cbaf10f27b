package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/voluntree/voluntree-api/internal/repository"
	"github.com/voluntree/voluntree-api/internal/storage"
)

// ProfileHandler serves the profile setup flow.  A user must save a
// name and contact email here before they are allowed to book.
type ProfileHandler struct {
	Profiles *repository.ProfileRepo
	Avatars  *storage.AvatarStore // nil when CLOUDINARY_URL is unset
}

// NewProfileHandler constructs a ProfileHandler.  Avatars may be nil;
// the upload endpoint then reports the feature as unavailable.
func NewProfileHandler(p *repository.ProfileRepo, a *storage.AvatarStore) *ProfileHandler {
	if p == nil {
		panic("nil repository passed to NewProfileHandler")
	}
	return &ProfileHandler{Profiles: p, Avatars: a}
}

type profileReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type profileResp struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Complete bool   `json:"complete"`
}

// Get returns the caller's profile.  A user without a profile row gets
// an empty, incomplete profile rather than a 404 so the client can
// render the setup form directly.
func (h *ProfileHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, profileResp{Complete: false})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, profileResp{
		Name:     p.Name,
		Email:    p.Email,
		Avatar:   p.AvatarPath,
		Complete: p.Complete(),
	})
}

// Put creates or replaces the caller's profile name and contact email.
func (h *ProfileHandler) Put(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Profiles.Upsert(ctx, uid, req.Name, req.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save profile failed"})
	}
	return c.JSON(http.StatusOK, profileResp{Name: req.Name, Email: req.Email, Complete: true})
}

// UploadAvatar accepts a multipart image under the "avatar" field,
// stores it and records the delivery URL on the profile.  The profile
// itself must exist first.
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Avatars == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "avatar uploads are not configured"})
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "avatar file required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read avatar file"})
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if _, err := h.Profiles.Get(ctx, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "create profile before uploading avatar"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	url, err := h.Avatars.Upload(ctx, f)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "avatar upload failed"})
	}
	if err := h.Profiles.SetAvatar(ctx, uid, url); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save avatar failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"avatar": url})
}
