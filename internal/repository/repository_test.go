package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/campusconnect/internal/db"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func TestConversationFindOrCreateIsPairUnique(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	second, err := repo.FindOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice", first.ParticipantA)
	assert.Equal(t, "bob", first.ParticipantB)
	assert.False(t, first.LastMessageAt.IsZero())
}

func TestConversationFindOrCreateConcurrent(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := "alice", "bob"
			if i%2 == 1 {
				x, y = y, x
			}
			cv, err := repo.FindOrCreate(ctx, x, y)
			errs[i] = err
			if cv != nil {
				ids[i] = cv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestAppendMessageAssignsSequence(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()
	cv, err := repo.FindOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		msg := &model.Message{ConversationID: cv.ID, SenderID: "alice", Text: text}
		require.NoError(t, repo.AppendMessage(ctx, msg))
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.Read)
	}

	msgs, err := repo.ListMessages(ctx, cv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
	}
	assert.Equal(t, "three", msgs[2].Text)

	after, err := repo.ListMessages(ctx, cv.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "two", after[0].Text)

	got, err := repo.FindByID(ctx, cv.ID)
	require.NoError(t, err)
	assert.Equal(t, "three", got.LastMessageText)
	assert.Equal(t, int64(3), got.MessageCount)
}

func TestAppendMessageMissingConversation(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	err := repo.AppendMessage(context.Background(), &model.Message{ConversationID: "nope", SenderID: "a", Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadAndUnreadCounts(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))
	ctx := context.Background()

	ab, err := repo.FindOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	ac, err := repo.FindOrCreate(ctx, "alice", "carol")
	require.NoError(t, err)

	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: ab.ID, SenderID: "bob", Text: "hi"}))
	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: ab.ID, SenderID: "bob", Text: "there"}))
	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: ab.ID, SenderID: "alice", Text: "yo"}))
	require.NoError(t, repo.AppendMessage(ctx, &model.Message{ConversationID: ac.ID, SenderID: "carol", Text: "hey"}))

	n, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	unread := map[string]int64{}
	for _, s := range list {
		unread[s.ID] = s.UnreadCount
	}
	assert.Equal(t, int64(2), unread[ab.ID])
	assert.Equal(t, int64(1), unread[ac.ID])

	changed, err := repo.MarkRead(ctx, ab.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	again, err := repo.MarkRead(ctx, ab.ID, "alice")
	require.NoError(t, err)
	assert.Zero(t, again)

	n, err = repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// bob's own message is still unread from his peer's side
	n, err = repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationReadState(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "bob", Type: model.NotifyChatMessage, Title: "t"}))
	}
	require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "carol", Type: model.NotifyChatMessage}))

	list, err := repo.ListByUser(ctx, "bob", true, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkRead(ctx, list[0].ID, at))
	one, err := repo.FindByID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.True(t, one.Read)
	require.NotNil(t, one.ReadAt)

	updated, err := repo.MarkAllRead(ctx, "bob", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	n, err := repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repo.ListByUser(ctx, "bob", false, 10)
	require.NoError(t, err)
	for _, n := range all {
		assert.True(t, n.Read)
		assert.NotNil(t, n.ReadAt)
	}

	// first read time is kept
	one, err = repo.FindByID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.True(t, one.ReadAt.Equal(at))

	n, err = repo.CountUnread(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationDelete(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	n := &model.Notification{UserID: "bob", Type: model.NotifyAnnouncement}
	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.Delete(ctx, n.ID))
	assert.ErrorIs(t, repo.Delete(ctx, n.ID), ErrNotFound)

	_, err := repo.FindByID(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnnouncementListAndRead(t *testing.T) {
	repo := NewAnnouncementRepository(newTestDB(t))
	ctx := context.Background()

	everyone := &model.Announcement{Title: "all", Message: "m", CreatedBy: "admin", TargetAudience: model.AudienceAll, Priority: model.PriorityLow, IsActive: true}
	alumni := &model.Announcement{Title: "alumni", Message: "m", CreatedBy: "admin", TargetAudience: model.AudienceAlumni, Priority: model.PriorityHigh, IsActive: true}
	require.NoError(t, repo.Create(ctx, everyone))
	require.NoError(t, repo.Create(ctx, alumni))

	list, err := repo.ListActive(ctx, []string{model.AudienceAll, model.AudienceStudents}, "bob", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, everyone.ID, list[0].ID)
	assert.False(t, list[0].IsRead)

	require.NoError(t, repo.MarkRead(ctx, everyone.ID, "bob", time.Now().UTC()))
	require.NoError(t, repo.MarkRead(ctx, everyone.ID, "bob", time.Now().UTC()))

	list, err = repo.ListActive(ctx, []string{model.AudienceAll}, "bob", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)

	read, err := repo.HasRead(ctx, everyone.ID, "bob")
	require.NoError(t, err)
	assert.True(t, read)
	read, err = repo.HasRead(ctx, alumni.ID, "bob")
	require.NoError(t, err)
	assert.False(t, read)
}
