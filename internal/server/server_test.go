package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/db"
	"github.com/shinyyama/campusconnect/internal/logging"
	"github.com/shinyyama/campusconnect/internal/metrics"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/queue"
	"github.com/shinyyama/campusconnect/internal/realtime"
	"github.com/shinyyama/campusconnect/internal/repository"
	"github.com/shinyyama/campusconnect/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const internalToken = "internal-secret"

type testEnv struct {
	h   http.Handler
	jwt *auth.JWTVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	log := logging.Discard()
	m := metrics.New()
	jwt := auth.NewJWTVerifier("test-secret", "", 0)
	reg := realtime.NewRegistry(log, m)
	q := queue.NewMemory(16, 1, log)

	convRepo := repository.NewConversationRepository(gdb)
	noteRepo := repository.NewNotificationRepository(gdb)
	convs := service.NewConversationService(convRepo, reg, nil, log, m)
	notes := service.NewNotificationService(noteRepo, q, reg, log, m)
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		q.Shutdown()
		_ = db.Close(gdb)
	})

	srv := New(Deps{
		Log:           log,
		Metrics:       m,
		Verifier:      jwt,
		Gateway:       realtime.NewGateway(jwt, reg, convs, realtime.Options{}, log),
		Conversations: convs,
		Notifications: notes,
		Announcements: service.NewAnnouncementService(repository.NewAnnouncementRepository(gdb), reg, log),
		Unread:        service.NewUnreadService(convRepo, noteRepo),
		InternalToken: internalToken,
		Ready:         func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}, "sha", "now")
	return &testEnv{h: srv.Handler(), jwt: jwt}
}

func (env *testEnv) do(t *testing.T, method, path, uid, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		token, err := env.jwt.Sign(uid, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", decode[map[string]string](t, rec)["ok"])
}

func TestRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/conversations", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorBody](t, rec).Error.Code)
}

func TestQueryTokenOnlyOpensWebSocket(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.jwt.Sign("alice", "student", time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorBody](t, rec).Error.Code)
}

func TestConversationFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/messages", "alice", "student", map[string]string{"recipientId": "bob", "text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[struct {
		ChatID  string `json:"chatId"`
		Message struct {
			Seq  int64  `json:"seq"`
			Text string `json:"text"`
		} `json:"message"`
	}](t, rec)
	assert.Equal(t, int64(1), sent.Message.Seq)

	rec = env.do(t, http.MethodGet, "/api/messages/unread-count", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, rec)["count"])

	rec = env.do(t, http.MethodGet, "/api/conversations", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0]["lastMessage"])
	assert.Equal(t, "alice", list[0]["peer"].(map[string]any)["uid"])
	assert.EqualValues(t, 1, list[0]["unreadCount"])

	rec = env.do(t, http.MethodGet, "/api/conversations/"+sent.ChatID+"/messages", "mallory", "student", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/conversations/missing/messages", "bob", "student", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/conversations/"+sent.ChatID+"/read", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/messages/unread-count", "bob", "student", nil)
	assert.Equal(t, int64(0), decode[map[string]int64](t, rec)["count"])

	rec = env.do(t, http.MethodPost, "/api/messages", "alice", "student", map[string]string{"recipientId": "bob", "text": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[errorBody](t, rec).Error.Code)
}

func TestNotificationIntakeAndReadAll(t *testing.T) {
	env := newTestEnv(t)
	req := map[string]string{"userId": "bob", "type": model.NotifyMentorshipBooking, "title": "Booked", "message": "Tuesday 3pm"}

	rec := env.do(t, http.MethodPost, "/api/internal/notifications", "", "", req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/internal/notifications", bytes.NewReader(mustJSON(t, req)))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Internal-Token", internalToken)
		w := httptest.NewRecorder()
		env.h.ServeHTTP(w, r)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	}

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/notifications/unread-count", "bob", "student", nil)
		return decode[map[string]int64](t, rec)["count"] == 2
	}, 2*time.Second, 20*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/api/notifications?unreadOnly=true", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Booked", list[0]["title"])

	rec = env.do(t, http.MethodPut, "/api/notifications/"+list[0]["id"].(string)+"/read", "carol", "student", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/notifications/read-all", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), decode[map[string]int64](t, rec)["updated"])

	rec = env.do(t, http.MethodGet, "/api/unread", "bob", "student", nil)
	assert.Equal(t, map[string]int64{"messages": 0, "notifications": 0}, decode[map[string]int64](t, rec))
}

func TestAnnouncementsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"title": "Exams", "message": "Library open late"}

	rec := env.do(t, http.MethodPost, "/api/announcements", "bob", "student", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/announcements", "root", auth.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodPut, "/api/announcements/"+id+"/read", "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/announcements/"+id, "bob", "student", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["isRead"])
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
