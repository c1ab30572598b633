package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/config"
	"github.com/shinyyama/campusconnect/internal/logging"
	"github.com/shinyyama/campusconnect/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoresSQLite(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DatabaseURL: filepath.Join(t.TempDir(), "app.db")}
	ctx := context.Background()

	st, err := OpenStores(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer st.Close(ctx)

	require.NoError(t, st.Ping(ctx))
	cv, err := st.Conversations.FindOrCreate(ctx, "a", "b")
	require.NoError(t, err)
	assert.NotEmpty(t, cv.ID)
}

func TestIdentityDefaultsToJWT(t *testing.T) {
	v, dir, err := Identity(context.Background(), &config.Config{AuthProvider: config.AuthJWT, JWTSecret: "s"})
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTVerifier{}, v)
	assert.Nil(t, dir)
}

func TestQueueDefaultsToMemory(t *testing.T) {
	q, err := Queue(&config.Config{QueueBackend: config.QueueMemory, QueueSize: 4, QueueWorkers: 1}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &queue.Memory{}, q)
}
