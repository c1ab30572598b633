package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/service"
)

type AnnouncementHandler struct {
	svc service.AnnouncementService
}

func NewAnnouncementHandler(svc service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

type AnnouncementRequest struct {
	Title          string `json:"title"`
	Message        string `json:"message"`
	TargetAudience string `json:"targetAudience"`
	Priority       string `json:"priority"`
}

func (h *AnnouncementHandler) List(c echo.Context) error {
	who, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.List(c.Request().Context(), who, queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]event.Announcement, 0, len(list))
	for i := range list {
		resp = append(resp, event.FromAnnouncement(&list[i].Announcement, list[i].IsRead))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AnnouncementHandler) Get(c echo.Context) error {
	who, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	v, err := h.svc.Get(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, event.FromAnnouncement(&v.Announcement, v.IsRead))
}

func (h *AnnouncementHandler) Create(c echo.Context) error {
	who, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req AnnouncementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	a, err := h.svc.Create(c.Request().Context(), who, service.AnnouncementInput{
		Title:          req.Title,
		Message:        req.Message,
		TargetAudience: req.TargetAudience,
		Priority:       req.Priority,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, event.FromAnnouncement(a, false))
}

func (h *AnnouncementHandler) MarkRead(c echo.Context) error {
	who, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.svc.MarkRead(c.Request().Context(), who, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
