// Package mongostore implements the repository interfaces on MongoDB. A
// conversation is one document with its messages embedded, so an append is a
// single atomic document update.
package mongostore

import (
	"context"
	"errors"

	"github.com/shinyyama/campusconnect/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colConversations     = "conversations"
	colNotifications     = "notifications"
	colAnnouncements     = "announcements"
	colAnnouncementReads = "announcement_reads"
)

// EnsureIndexes creates the indexes the stores rely on. Safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colConversations: {
			{Keys: bson.D{{Key: "participantA", Value: 1}, {Key: "participantB", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participantB", Value: 1}}},
			{Keys: bson.D{{Key: "lastMessageAt", Value: -1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}},
		},
		colAnnouncements: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "targetAudience", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colAnnouncementReads: {
			{Keys: bson.D{{Key: "announcementId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}
