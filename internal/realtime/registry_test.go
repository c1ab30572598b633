package realtime

import (
	"sync"
	"testing"

	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/logging"
	"github.com/shinyyama/campusconnect/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id, user string

	mu        sync.Mutex
	events    []event.Event
	closeCode int
	sendErr   error
}

func (f *fakeConn) ID() string     { return f.id }
func (f *fakeConn) UserID() string { return f.user }

func (f *fakeConn) Send(ev event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeConn) Close(code int, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCode = code
}

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry(logging.Discard(), metrics.New())
	first := &fakeConn{id: "c1", user: "alice"}
	second := &fakeConn{id: "c2", user: "alice"}

	assert.Nil(t, r.Register(first))
	replaced := r.Register(second)
	require.NotNil(t, replaced)
	assert.Equal(t, "c1", replaced.ID())
	assert.Equal(t, CloseSessionReplaced, first.closeCode)
	assert.Equal(t, 1, r.Len())

	// the stale connection's disconnect must not evict the new one
	assert.False(t, r.Unregister(first))
	cur, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "c2", cur.ID())

	assert.True(t, r.Unregister(second))
	assert.Zero(t, r.Len())
}

func TestRegistrySendTo(t *testing.T) {
	r := NewRegistry(logging.Discard(), nil)
	bob := &fakeConn{id: "c1", user: "bob"}
	r.Register(bob)

	ev := event.Event{Name: event.NewNotification, Data: map[string]string{"id": "n1"}}
	require.NoError(t, r.SendTo("bob", ev))
	assert.Len(t, bob.events, 1)

	err := r.SendTo("carol", ev)
	assert.ErrorIs(t, err, errs.ErrNotConnected)

	bob.sendErr = errs.ErrDelivery
	assert.ErrorIs(t, r.SendTo("bob", ev), errs.ErrDelivery)
}

func TestRegistryBroadcastAndCloseAll(t *testing.T) {
	r := NewRegistry(logging.Discard(), nil)
	a := &fakeConn{id: "c1", user: "alice"}
	b := &fakeConn{id: "c2", user: "bob"}
	slow := &fakeConn{id: "c3", user: "carol", sendErr: errs.ErrDelivery}
	r.Register(a)
	r.Register(b)
	r.Register(slow)

	n := r.Broadcast(event.Event{Name: event.NewAnnouncement})
	assert.Equal(t, 2, n)

	r.CloseAll()
	assert.Zero(t, r.Len())
	for _, c := range []*fakeConn{a, b, slow} {
		assert.Equal(t, CloseGoingAway, c.closeCode)
	}
}
