package model

import "time"

const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceAlumni   = "alumni"
	AudienceAdmins   = "admins"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Announcement struct {
	ID             string    `gorm:"primaryKey;size:36" bson:"_id"`
	Title          string    `gorm:"column:title;size:255;not null" bson:"title"`
	Message        string    `gorm:"column:message;type:text;not null" bson:"message"`
	CreatedBy      string    `gorm:"column:created_by;size:128;not null" bson:"createdBy"`
	TargetAudience string    `gorm:"column:target_audience;size:16;not null;default:all;index" bson:"targetAudience"`
	Priority       string    `gorm:"column:priority;size:16;not null;default:medium" bson:"priority"`
	IsActive       bool      `gorm:"column:is_active;not null" bson:"isActive"`
	CreatedAt      time.Time `gorm:"column:created_at;index" bson:"createdAt"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// AnnouncementRead is a per-user read receipt.
type AnnouncementRead struct {
	AnnouncementID string    `gorm:"column:announcement_id;size:36;primaryKey" bson:"announcementId"`
	UserID         string    `gorm:"column:user_id;size:128;primaryKey" bson:"userId"`
	ReadAt         time.Time `gorm:"column:read_at" bson:"readAt"`
}

func (AnnouncementRead) TableName() string {
	return "announcement_reads"
}

// AnnouncementView pairs an announcement with the caller's read state.
type AnnouncementView struct {
	Announcement
	IsRead bool
}

// AudienceFor maps a user role to the audience bucket it receives besides "all".
func AudienceFor(role string) string {
	switch role {
	case "admin":
		return AudienceAdmins
	case "alumni":
		return AudienceAlumni
	case "student":
		return AudienceStudents
	}
	return ""
}

func IsKnownAudience(a string) bool {
	switch a {
	case AudienceAll, AudienceStudents, AudienceAlumni, AudienceAdmins:
		return true
	}
	return false
}

func IsKnownPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
