package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/service"
)

type ConversationHandler struct {
	svc    service.ConversationService
	unread service.UnreadService
}

func NewConversationHandler(svc service.ConversationService, unread service.UnreadService) *ConversationHandler {
	return &ConversationHandler{svc: svc, unread: unread}
}

type PeerResponse struct {
	UID         string  `json:"uid"`
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
}

type ConversationResponse struct {
	ID            string       `json:"id"`
	Peer          PeerResponse `json:"peer"`
	LastMessage   string       `json:"lastMessage"`
	LastMessageAt *string      `json:"lastMessageAt"`
	UnreadCount   int64        `json:"unreadCount"`
	CreatedAt     string       `json:"createdAt"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	RecipientID    string `json:"recipientId"`
	Text           string `json:"text"`
}

func toPeerResponse(u model.UserSummary) PeerResponse {
	return PeerResponse{UID: u.UID, DisplayName: strPtrOrNil(u.DisplayName), PhotoURL: strPtrOrNil(u.PhotoURL)}
}

func toConversationResponse(cv model.Conversation, peer model.UserSummary, unread int64) ConversationResponse {
	resp := ConversationResponse{
		ID:          cv.ID,
		Peer:        toPeerResponse(peer),
		LastMessage: cv.LastMessageText,
		UnreadCount: unread,
		CreatedAt:   cv.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !cv.LastMessageAt.IsZero() {
		at := cv.LastMessageAt.UTC().Format(time.RFC3339)
		resp.LastMessageAt = &at
	}
	return resp
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	views, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ConversationResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toConversationResponse(v.Conversation, v.Peer, v.UnreadCount))
	}
	return c.JSON(http.StatusOK, resp)
}

// StartWith returns the conversation with :userId, creating it if needed.
func (h *ConversationHandler) StartWith(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	peer := c.Param("userId")
	cv, err := h.svc.StartWith(c.Request().Context(), uid, peer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(*cv, model.UserSummary{UID: peer}, 0))
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	cv, err := h.svc.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(*cv, model.UserSummary{UID: cv.Peer(uid)}, 0))
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var afterSeq int64
	if s := c.QueryParam("afterSeq"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return respondError(c, errs.Invalid("invalid afterSeq"))
		}
		afterSeq = v
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), uid, c.Param("id"), afterSeq, queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]event.Message, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, event.FromMessage(&msgs[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.MarkRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// SendMessage is the REST twin of the send-message event.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.svc.Send(c.Request().Context(), uid, service.SendInput{
		ConversationID: req.ConversationID,
		RecipientID:    req.RecipientID,
		Text:           req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, event.MessagePayload{ChatID: msg.ConversationID, Message: event.FromMessage(msg)})
}

func (h *ConversationHandler) UnreadCount(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	n, err := h.unread.MessageCount(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}
