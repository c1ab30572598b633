// Package event defines the live-protocol vocabulary shared by the gateway
// and the services that push to connected users.
package event

import (
	"encoding/json"
	"time"

	"github.com/shinyyama/campusconnect/internal/model"
)

// Client to server.
const (
	SendMessage = "send-message"
	JoinChat    = "join-chat"
	LeaveChat   = "leave-chat"
	MarkRead    = "mark-read"
)

// Server to client.
const (
	ReceiveMessage  = "receive-message"
	MessageSent     = "message-sent"
	MessagesRead    = "messages-read"
	NewNotification = "new-notification"
	NewAnnouncement = "new-announcement"
	Error           = "error"
)

// Event is an outbound frame: {"event": name, "data": payload}.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Inbound is a client frame whose payload is decoded per event name.
type Inbound struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversationId,omitempty"`
	RecipientID    string `json:"recipientId,omitempty"`
	Text           string `json:"text"`
}

type ChatPayload struct {
	ConversationID string `json:"conversationId"`
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Seq       int64     `json:"seq"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessagePayload struct {
	ChatID  string  `json:"chatId"`
	Message Message `json:"message"`
}

type MessagesReadPayload struct {
	ChatID string `json:"chatId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type Notification struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Type          string     `json:"type"`
	Category      string     `json:"category"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	RelatedItemID *string    `json:"relatedItemId,omitempty"`
	RelatedKind   *string    `json:"relatedKind,omitempty"`
	FromUserID    *string    `json:"fromUserId,omitempty"`
	Read          bool       `json:"read"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type Announcement struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedBy      string    `json:"createdBy"`
	TargetAudience string    `json:"targetAudience"`
	Priority       string    `json:"priority"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func FromMessage(m *model.Message) Message {
	return Message{
		ID:        m.ID,
		ChatID:    m.ConversationID,
		Seq:       m.Seq,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func FromNotification(n *model.Notification) Notification {
	return Notification{
		ID:            n.ID,
		UserID:        n.UserID,
		Type:          n.Type,
		Category:      n.Category(),
		Title:         n.Title,
		Message:       n.Message,
		RelatedItemID: n.RelatedItemID,
		RelatedKind:   n.RelatedKind,
		FromUserID:    n.FromUserID,
		Read:          n.Read,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}

func FromAnnouncement(a *model.Announcement, isRead bool) Announcement {
	return Announcement{
		ID:             a.ID,
		Title:          a.Title,
		Message:        a.Message,
		CreatedBy:      a.CreatedBy,
		TargetAudience: a.TargetAudience,
		Priority:       a.Priority,
		IsRead:         isRead,
		CreatedAt:      a.CreatedAt,
	}
}

func NewMessageEvent(name string, m *model.Message) Event {
	return Event{Name: name, Data: MessagePayload{ChatID: m.ConversationID, Message: FromMessage(m)}}
}

func NewErrorEvent(code, message, origin string) Event {
	return Event{Name: Error, Data: ErrorPayload{Code: code, Message: message, Event: origin}}
}
