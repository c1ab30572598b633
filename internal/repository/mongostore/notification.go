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

type notificationStore struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) repository.NotificationRepository {
	return &notificationStore{col: db.Collection(colNotifications)}
}

func (s *notificationStore) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, n)
	return err
}

func (s *notificationStore) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (s *notificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	filter := bson.M{"userId": userID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	list := []model.Notification{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *notificationStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at}})
	return err
}

func (s *notificationStore) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *notificationStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *notificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
}
