package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/campusconnect/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	FindByID(ctx context.Context, id string) (*model.Announcement, error)
	// ListActive returns active announcements for the given audiences, newest
	// first, with IsRead resolved for userID.
	ListActive(ctx context.Context, audiences []string, userID string, limit int) ([]model.AnnouncementView, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	HasRead(ctx context.Context, id, userID string) (bool, error)
}

type announcementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *model.Announcement) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *announcementRepository) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var a model.Announcement
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *announcementRepository) ListActive(ctx context.Context, audiences []string, userID string, limit int) ([]model.AnnouncementView, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Announcement
	q := r.db.WithContext(ctx).
		Where("is_active = ? AND target_audience IN ?", true, audiences).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []model.AnnouncementView{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	var readIDs []string
	if err := r.db.WithContext(ctx).
		Model(&model.AnnouncementRead{}).
		Where("user_id = ? AND announcement_id IN ?", userID, ids).
		Pluck("announcement_id", &readIDs).Error; err != nil {
		return nil, err
	}
	read := make(map[string]bool, len(readIDs))
	for _, id := range readIDs {
		read[id] = true
	}

	out := make([]model.AnnouncementView, 0, len(list))
	for _, a := range list {
		out = append(out, model.AnnouncementView{Announcement: a, IsRead: read[a.ID]})
	}
	return out, nil
}

func (r *announcementRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	rec := model.AnnouncementRead{AnnouncementID: id, UserID: userID, ReadAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *announcementRepository) HasRead(ctx context.Context, id, userID string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.AnnouncementRead{}).
		Where("announcement_id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	return n > 0, err
}
