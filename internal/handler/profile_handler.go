package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"contentflow/internal/service"
)

// ProfileHandler serves principal records.
type ProfileHandler struct {
	svc service.ProfileService
}

// NewProfileHandler creates a handler layer.
func NewProfileHandler(svc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// Me godoc
// @Summary Current profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	profile, err := h.svc.Me(c.Request().Context(), subject)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// GetProfile godoc
// @Summary Get profile by id
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 200 {object} model.Profile
// @Failure 404 {object} errors.ErrorResponse
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	profile, err := h.svc.Get(c.Request().Context(), subject, c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ListProfiles godoc
// @Summary List profiles
// @Description Admins see every profile; everyone else only their own.
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Profile
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	profiles, err := h.svc.List(c.Request().Context(), subject)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}
