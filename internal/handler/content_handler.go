package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"contentflow/internal/errors"
	"contentflow/internal/model"
	"contentflow/internal/service"
)

const dateLayout = "2006-01-02"

// ContentHandler handles content item endpoints.
type ContentHandler struct {
	contentService service.ContentService
}

// NewContentHandler creates a new content handler.
func NewContentHandler(contentService service.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// CreateContentRequest represents a new content item. A status sent by the
// client is ignored; new items always start pending.
type CreateContentRequest struct {
	Title        *string `json:"title"`
	Caption      string  `json:"caption" validate:"required"`
	ContentType  string  `json:"content_type" validate:"required,oneof=post story reel tiktok"`
	MediaURL     string  `json:"media_url" validate:"omitempty,url"`
	ScheduleDate string  `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	AssignedTo   string  `json:"assigned_to" validate:"required"`
	Status       string  `json:"status,omitempty"`
}

// UpdateContentRequest is a partial update; omitted fields stay unchanged.
type UpdateContentRequest struct {
	Title          *string `json:"title"`
	Caption        *string `json:"caption" validate:"omitempty,min=1"`
	ContentType    *string `json:"content_type" validate:"omitempty,oneof=post story reel tiktok"`
	MediaURL       *string `json:"media_url" validate:"omitempty,url"`
	ScheduleDate   *string `json:"schedule_date" validate:"omitempty,datetime=2006-01-02"`
	AssignedTo     *string `json:"assigned_to" validate:"omitempty,min=1"`
	Status         *string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	RejectionNotes *string `json:"rejection_notes"`
}

// RejectRequest carries the notes required to reject an item.
type RejectRequest struct {
	Notes string `json:"notes"`
}

func validationError(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func invalidRequest() error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid request body",
		Code:  "INVALID_REQUEST",
	})
}

func parseContentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid content ID",
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}

func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid " + name + " date, expected YYYY-MM-DD",
			Code:  "INVALID_DATE",
		})
	}
	return &t, nil
}

// ListContent godoc
// @Summary List content items
// @Description Returns the items visible to the caller: assigned ones, or all for admins.
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param view query string false "current (default), archived or all"
// @Param content_type query string false "post, story, reel or tiktok"
// @Param status query string false "pending, approved or rejected"
// @Param assigned_to query string false "Profile ID"
// @Param from query string false "Earliest schedule date, YYYY-MM-DD"
// @Param to query string false "Latest schedule date, YYYY-MM-DD"
// @Success 200 {array} service.ContentView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /content [get]
func (h *ContentHandler) ListContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}

	opts := service.ListOptions{
		View:        service.View(c.QueryParam("view")),
		ContentType: model.ContentType(c.QueryParam("content_type")),
		Status:      model.ContentStatus(c.QueryParam("status")),
		AssignedTo:  c.QueryParam("assigned_to"),
	}
	switch opts.View {
	case "", service.ViewCurrent, service.ViewArchived, service.ViewAll:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "view must be current, archived or all",
			Code:  "INVALID_VIEW",
		})
	}
	if opts.From, err = parseDateParam(c, "from"); err != nil {
		return err
	}
	if opts.To, err = parseDateParam(c, "to"); err != nil {
		return err
	}

	items, err := h.contentService.List(c.Request().Context(), subject, opts)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetContent godoc
// @Summary Get a content item
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} service.ContentView
// @Failure 404 {object} errors.ErrorResponse
// @Router /content/{id} [get]
func (h *ContentHandler) GetContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	id, err := parseContentID(c)
	if err != nil {
		return err
	}
	item, err := h.contentService.Get(c.Request().Context(), subject, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// CreateContent godoc
// @Summary Create a content item
// @Description Admin only. The item always starts pending.
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateContentRequest true "Content data"
// @Success 201 {object} service.ContentView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /content [post]
func (h *ContentHandler) CreateContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}

	var req CreateContentRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest()
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}
	schedule, _ := time.Parse(dateLayout, req.ScheduleDate)

	item, err := h.contentService.Create(c.Request().Context(), subject, service.CreateContentInput{
		Title:        req.Title,
		Caption:      req.Caption,
		ContentType:  model.ContentType(req.ContentType),
		MediaURL:     req.MediaURL,
		ScheduleDate: schedule,
		AssignedTo:   req.AssignedTo,
		Status:       model.ContentStatus(req.Status),
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateContent godoc
// @Summary Update a content item
// @Description Admins may change any field. The assignee may only change status and rejection notes.
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body UpdateContentRequest true "Fields to change"
// @Success 200 {object} service.ContentView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /content/{id} [patch]
func (h *ContentHandler) UpdateContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	id, err := parseContentID(c)
	if err != nil {
		return err
	}

	var req UpdateContentRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest()
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}

	in := service.UpdateContentInput{
		Title:          req.Title,
		Caption:        req.Caption,
		MediaURL:       req.MediaURL,
		AssignedTo:     req.AssignedTo,
		RejectionNotes: req.RejectionNotes,
	}
	if req.ContentType != nil {
		ct := model.ContentType(*req.ContentType)
		in.ContentType = &ct
	}
	if req.Status != nil {
		st := model.ContentStatus(*req.Status)
		in.Status = &st
	}
	if req.ScheduleDate != nil {
		d, _ := time.Parse(dateLayout, *req.ScheduleDate)
		in.ScheduleDate = &d
	}

	item, err := h.contentService.Update(c.Request().Context(), subject, id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// ApproveContent godoc
// @Summary Approve a pending content item
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} service.ContentView
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /content/{id}/approve [post]
func (h *ContentHandler) ApproveContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	id, err := parseContentID(c)
	if err != nil {
		return err
	}
	item, err := h.contentService.Approve(c.Request().Context(), subject, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// RejectContent godoc
// @Summary Reject a pending content item
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body RejectRequest true "Rejection notes"
// @Success 200 {object} service.ContentView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /content/{id}/reject [post]
func (h *ContentHandler) RejectContent(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	id, err := parseContentID(c)
	if err != nil {
		return err
	}
	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest()
	}
	item, err := h.contentService.Reject(c.Request().Context(), subject, id, req.Notes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// ContentHistory godoc
// @Summary Review history of a content item
// @Description Creation and every status change, oldest first.
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {array} model.ContentEvent
// @Failure 404 {object} errors.ErrorResponse
// @Router /content/{id}/history [get]
func (h *ContentHandler) ContentHistory(c echo.Context) error {
	subject, err := subjectFrom(c)
	if err != nil {
		return err
	}
	id, err := parseContentID(c)
	if err != nil {
		return err
	}
	events, err := h.contentService.History(c.Request().Context(), subject, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, events)
}
