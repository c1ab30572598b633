package model

import "time"

// Conversation is a two-party thread. The pair is stored ordered
// (ParticipantA < ParticipantB) so the unique index covers the unordered pair.
type Conversation struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantA    string    `gorm:"column:participant_a;size:128;not null;uniqueIndex:idx_conv_pair" json:"-"`
	ParticipantB    string    `gorm:"column:participant_b;size:128;not null;uniqueIndex:idx_conv_pair;index" json:"-"`
	LastMessageText string    `gorm:"column:last_message_text;type:text" json:"lastMessageText"`
	LastMessageAt   time.Time `gorm:"column:last_message_at;index" json:"lastMessageAt"`
	MessageCount    int64     `gorm:"column:message_count;not null;default:0" json:"messageCount"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// OrderedPair returns the two ids sorted so that a < b.
func OrderedPair(x, y string) (a, b string) {
	if x <= y {
		return x, y
	}
	return y, x
}

func (c *Conversation) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

func (c *Conversation) HasParticipant(uid string) bool {
	return uid != "" && (c.ParticipantA == uid || c.ParticipantB == uid)
}

// Peer returns the other participant, or "" when uid is not part of the pair.
func (c *Conversation) Peer(uid string) string {
	switch uid {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// ConversationSummary is a conversation as seen by one participant.
type ConversationSummary struct {
	Conversation
	UnreadCount int64
}
