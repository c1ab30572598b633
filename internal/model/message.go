package model

import "time"

type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:36;not null;uniqueIndex:idx_msg_conv_seq" json:"conversationId"`
	Seq            int64     `gorm:"column:seq;not null;uniqueIndex:idx_msg_conv_seq" json:"seq"`
	SenderID       string    `gorm:"column:sender_id;size:128;not null;index" json:"senderId"`
	Text           string    `gorm:"column:text;type:text;not null" json:"text"`
	Read           bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
