package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/campusconnect/internal/db"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// newTestDatabase connects to MONGO_TEST_URI and returns a throwaway database.
func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	mdb, err := db.ConnectMongo(ctx, uri, "campusconnect_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, mdb))
	t.Cleanup(func() {
		_ = mdb.Drop(context.Background())
		_ = mdb.Client().Disconnect(context.Background())
	})
	return mdb
}

func TestConversationStore(t *testing.T) {
	mdb := newTestDatabase(t)
	repo := NewConversationRepository(mdb)
	ctx := context.Background()

	cv, err := repo.FindOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	same, err := repo.FindOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, cv.ID, same.ID)

	for _, text := range []string{"one", "two"} {
		msg := &model.Message{ConversationID: cv.ID, SenderID: "bob", Text: text}
		require.NoError(t, repo.AppendMessage(ctx, msg))
	}
	msgs, err := repo.ListMessages(ctx, cv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), msgs[1].Seq)
	assert.Equal(t, "two", msgs[1].Text)

	n, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].UnreadCount)
	assert.Equal(t, "two", list[0].LastMessageText)

	changed, err := repo.MarkRead(ctx, cv.ID, "alice")
	require.NoError(t, err)
	assert.Positive(t, changed)
	changed, err = repo.MarkRead(ctx, cv.ID, "alice")
	require.NoError(t, err)
	assert.Zero(t, changed)

	n, err = repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)

	err = repo.AppendMessage(ctx, &model.Message{ConversationID: "missing", SenderID: "bob", Text: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotificationStore(t *testing.T) {
	mdb := newTestDatabase(t)
	repo := NewNotificationRepository(mdb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "bob", Type: model.NotifyChatMessage}))
	}
	updated, err := repo.MarkAllRead(ctx, "bob", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	n, err := repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := repo.ListByUser(ctx, "bob", false, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].ReadAt)

	require.NoError(t, repo.Delete(ctx, list[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, list[0].ID), repository.ErrNotFound)
}
