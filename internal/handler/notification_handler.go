package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/service"
)

type NotificationHandler struct {
	svc    service.NotificationService
	unread service.UnreadService
}

func NewNotificationHandler(svc service.NotificationService, unread service.UnreadService) *NotificationHandler {
	return &NotificationHandler{svc: svc, unread: unread}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unreadOnly"))
	list, err := h.svc.List(c.Request().Context(), uid, unreadOnly, queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]event.Notification, 0, len(list))
	for i := range list {
		resp = append(resp, event.FromNotification(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	n, err := h.unread.NotificationCount(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.MarkRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	n, err := h.svc.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.Request().Context(), uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Intake lets other services raise a notification over HTTP. Delivery is
// asynchronous; only the request shape is checked here.
func (h *NotificationHandler) Intake(c echo.Context) error {
	var req service.NotifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := req.Validate(); err != nil {
		return respondError(c, err)
	}
	h.svc.Notify(c.Request().Context(), req)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *NotificationHandler) Summary(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	sum, err := h.unread.Summary(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{
		"messages":      sum.Messages,
		"notifications": sum.Notifications,
	})
}
