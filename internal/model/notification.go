package model

import "time"

type Notification struct {
	ID            string     `gorm:"primaryKey;size:36" bson:"_id"`
	UserID        string     `gorm:"column:user_id;size:128;not null;index:idx_notif_user_created" bson:"userId"`
	Type          string     `gorm:"column:type;size:64;not null" bson:"type"`
	Title         string     `gorm:"column:title;size:255" bson:"title"`
	Message       string     `gorm:"column:message;type:text" bson:"message"`
	RelatedItemID *string    `gorm:"column:related_item_id;size:128" bson:"relatedItemId,omitempty"`
	RelatedKind   *string    `gorm:"column:related_kind;size:32" bson:"relatedKind,omitempty"`
	FromUserID    *string    `gorm:"column:from_user_id;size:128" bson:"fromUserId,omitempty"`
	Read          bool       `gorm:"column:is_read;not null;default:false;index" bson:"read"`
	ReadAt        *time.Time `gorm:"column:read_at" bson:"readAt,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;index:idx_notif_user_created" bson:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Category groups a type for display; unknown stored types fall back to generic.
func (n *Notification) Category() string {
	return CategoryOf(n.Type)
}
