package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type announcementStore struct {
	col   *mongo.Collection
	reads *mongo.Collection
}

func NewAnnouncementRepository(db *mongo.Database) repository.AnnouncementRepository {
	return &announcementStore{
		col:   db.Collection(colAnnouncements),
		reads: db.Collection(colAnnouncementReads),
	}
}

func (s *announcementStore) Create(ctx context.Context, a *model.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, a)
	return err
}

func (s *announcementStore) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *announcementStore) ListActive(ctx context.Context, audiences []string, userID string, limit int) ([]model.AnnouncementView, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.col.Find(ctx, bson.M{"isActive": true, "targetAudience": bson.M{"$in": audiences}}, opts)
	if err != nil {
		return nil, err
	}
	var list []model.Announcement
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []model.AnnouncementView{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	rc, err := s.reads.Find(ctx, bson.M{"userId": userID, "announcementId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var receipts []model.AnnouncementRead
	if err := rc.All(ctx, &receipts); err != nil {
		return nil, err
	}
	read := make(map[string]bool, len(receipts))
	for _, r := range receipts {
		read[r.AnnouncementID] = true
	}

	out := make([]model.AnnouncementView, 0, len(list))
	for _, a := range list {
		out = append(out, model.AnnouncementView{Announcement: a, IsRead: read[a.ID]})
	}
	return out, nil
}

func (s *announcementStore) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	_, err := s.reads.UpdateOne(ctx,
		bson.M{"announcementId": id, "userId": userID},
		bson.M{"$setOnInsert": bson.M{"readAt": at}},
		options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *announcementStore) HasRead(ctx context.Context, id, userID string) (bool, error) {
	n, err := s.reads.CountDocuments(ctx, bson.M{"announcementId": id, "userId": userID})
	return n > 0, err
}
