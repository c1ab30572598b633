package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/campusconnect/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByPair(ctx context.Context, x, y string) (*model.Conversation, error)
	// FindOrCreate returns the conversation for the unordered pair, creating it
	// when absent. Concurrent callers observe the same row.
	FindOrCreate(ctx context.Context, x, y string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]model.ConversationSummary, error)
	// AppendMessage assigns msg.Seq and stores msg together with the
	// conversation's last-message cache in one atomic step.
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, convID, readerID string) (int64, error)
	CountUnread(ctx context.Context, uid string) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&cv).Error; err != nil {
		return nil, translate(err)
	}
	return &cv, nil
}

func (r *conversationRepository) FindByPair(ctx context.Context, x, y string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	a, b := model.OrderedPair(x, y)
	var cv model.Conversation
	if err := r.db.WithContext(ctx).
		Where("participant_a = ? AND participant_b = ?", a, b).
		Take(&cv).Error; err != nil {
		return nil, translate(err)
	}
	return &cv, nil
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, x, y string) (*model.Conversation, error) {
	cv, err := r.FindByPair(ctx, x, y)
	if err == nil {
		return cv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	a, b := model.OrderedPair(x, y)
	now := time.Now().UTC()
	cv = &model.Conversation{
		ID:            uuid.NewString(),
		ParticipantA:  a,
		ParticipantB:  b,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// a concurrent creator wins the unique index; re-read to get its row
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cv).Error; err != nil {
		return nil, err
	}
	return r.FindByPair(ctx, a, b)
}

func (r *conversationRepository) ListByUser(ctx context.Context, uid string) ([]model.ConversationSummary, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var convs []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", uid, uid).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []model.ConversationSummary{}, nil
	}

	ids := make([]string, 0, len(convs))
	for _, cv := range convs {
		ids = append(ids, cv.ID)
	}
	type unreadRow struct {
		ConversationID string
		N              int64
	}
	var rows []unreadRow
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("conversation_id, COUNT(*) AS n").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", ids, uid, false).
		Group("conversation_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	unread := make(map[string]int64, len(rows))
	for _, row := range rows {
		unread[row.ConversationID] = row.N
	}

	out := make([]model.ConversationSummary, 0, len(convs))
	for _, cv := range convs {
		out = append(out, model.ConversationSummary{Conversation: cv, UnreadCount: unread[cv.ID]})
	}
	return out, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the counter bump takes the row lock that serializes appends
		res := tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"message_count":     gorm.Expr("message_count + ?", 1),
				"last_message_text": msg.Text,
				"last_message_at":   msg.CreatedAt,
				"updated_at":        msg.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var cv model.Conversation
		if err := tx.Select("message_count").Where("id = ?", msg.ConversationID).Take(&cv).Error; err != nil {
			return translate(err)
		}
		msg.Seq = cv.MessageCount
		return tx.Create(msg).Error
	})
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ? AND seq > ?", convID, afterSeq).
		Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *conversationRepository) MarkRead(ctx context.Context, convID, readerID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *conversationRepository) CountUnread(ctx context.Context, uid string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.participant_a = ? OR conversations.participant_b = ?) AND messages.sender_id <> ? AND messages.is_read = ?", uid, uid, uid, false).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
