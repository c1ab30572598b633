package mongostore

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type conversationDocument struct {
	ID              string            `bson:"_id"`
	ParticipantA    string            `bson:"participantA"`
	ParticipantB    string            `bson:"participantB"`
	Messages        []messageDocument `bson:"messages,omitempty"`
	LastMessageText string            `bson:"lastMessageText"`
	LastMessageAt   time.Time         `bson:"lastMessageAt"`
	MessageCount    int64             `bson:"messageCount"`
	CreatedAt       time.Time         `bson:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt"`
	UnreadCount     int64             `bson:"unreadCount,omitempty"`
}

type messageDocument struct {
	ID        string    `bson:"id"`
	SenderID  string    `bson:"senderId"`
	Text      string    `bson:"text"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d *conversationDocument) toModel() *model.Conversation {
	return &model.Conversation{
		ID:              d.ID,
		ParticipantA:    d.ParticipantA,
		ParticipantB:    d.ParticipantB,
		LastMessageText: d.LastMessageText,
		LastMessageAt:   d.LastMessageAt,
		MessageCount:    d.MessageCount,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// without the embedded messages
var summaryProjection = bson.M{"messages": 0}

type conversationStore struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) repository.ConversationRepository {
	return &conversationStore{col: db.Collection(colConversations)}
}

func (s *conversationStore) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var doc conversationDocument
	err := s.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(summaryProjection)).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

func (s *conversationStore) FindByPair(ctx context.Context, x, y string) (*model.Conversation, error) {
	a, b := model.OrderedPair(x, y)
	var doc conversationDocument
	err := s.col.FindOne(ctx, bson.M{"participantA": a, "participantB": b},
		options.FindOne().SetProjection(summaryProjection)).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

func (s *conversationStore) FindOrCreate(ctx context.Context, x, y string) (*model.Conversation, error) {
	a, b := model.OrderedPair(x, y)
	now := time.Now().UTC()
	_, err := s.col.UpdateOne(ctx,
		bson.M{"participantA": a, "participantB": b},
		bson.M{"$setOnInsert": bson.M{
			"_id":             uuid.NewString(),
			"messages":        bson.A{},
			"lastMessageText": "",
			"lastMessageAt":   now,
			"messageCount":    0,
			"createdAt":       now,
			"updatedAt":       now,
		}},
		options.Update().SetUpsert(true))
	// two upserts racing on the unique pair index: the loser reads the winner
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	return s.FindByPair(ctx, a, b)
}

func (s *conversationStore) ListByUser(ctx context.Context, uid string) ([]model.ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"participantA": uid}, bson.M{"participantB": uid}}}}},
		{{Key: "$addFields", Value: bson.M{"unreadCount": bson.M{"$size": bson.M{"$filter": bson.M{
			"input": bson.M{"$ifNull": bson.A{"$messages", bson.A{}}},
			"cond": bson.M{"$and": bson.A{
				bson.M{"$ne": bson.A{"$$this.senderId", uid}},
				bson.M{"$eq": bson.A{"$$this.read", false}},
			}},
		}}}}}},
		{{Key: "$project", Value: summaryProjection}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessageAt", Value: -1}}}},
	}
	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []model.ConversationSummary{}
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, model.ConversationSummary{Conversation: *doc.toModel(), UnreadCount: doc.UnreadCount})
	}
	return out, cursor.Err()
}

func (s *conversationStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	update := bson.M{
		"$push": bson.M{"messages": messageDocument{
			ID:        msg.ID,
			SenderID:  msg.SenderID,
			Text:      msg.Text,
			Read:      false,
			CreatedAt: msg.CreatedAt,
		}},
		"$set": bson.M{
			"lastMessageText": msg.Text,
			"lastMessageAt":   msg.CreatedAt,
			"updatedAt":       msg.CreatedAt,
		},
		"$inc": bson.M{"messageCount": 1},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"messageCount": 1})

	var doc conversationDocument
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": msg.ConversationID}, update, opts).Decode(&doc); err != nil {
		return translate(err)
	}
	msg.Seq = doc.MessageCount
	msg.Read = false
	return nil
}

func (s *conversationStore) ListMessages(ctx context.Context, convID string, afterSeq int64, limit int) ([]model.Message, error) {
	if afterSeq < 0 {
		afterSeq = 0
	}
	n := int64(math.MaxInt32)
	if limit > 0 {
		n = int64(limit)
	}
	var doc conversationDocument
	err := s.col.FindOne(ctx, bson.M{"_id": convID},
		options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": bson.A{afterSeq, n}}})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []model.Message{}, nil
		}
		return nil, err
	}
	out := make([]model.Message, 0, len(doc.Messages))
	for i, m := range doc.Messages {
		out = append(out, model.Message{
			ID:             m.ID,
			ConversationID: convID,
			Seq:            afterSeq + int64(i) + 1,
			SenderID:       m.SenderID,
			Text:           m.Text,
			Read:           m.Read,
			CreatedAt:      m.CreatedAt,
		})
	}
	return out, nil
}

// MarkRead flips every unread message from the peer in one update. The count
// is the number of modified documents, so it is 1 when anything changed.
func (s *conversationStore) MarkRead(ctx context.Context, convID, readerID string) (int64, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": convID, "messages": bson.M{"$elemMatch": bson.M{"senderId": bson.M{"$ne": readerID}, "read": false}}},
		bson.M{"$set": bson.M{"messages.$[m].read": true}},
		options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.M{"m.senderId": bson.M{"$ne": readerID}, "m.read": false},
		}}))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *conversationStore) CountUnread(ctx context.Context, uid string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"participantA": uid}, bson.M{"participantB": uid}}}}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$match", Value: bson.M{"messages.senderId": bson.M{"$ne": uid}, "messages.read": false}}},
		{{Key: "$count", Value: "n"}},
	}
	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var row struct {
		N int64 `bson:"n"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.N, cursor.Err()
}
