package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	failNext bool
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

type fakeStore struct {
	mu      sync.Mutex
	online  map[string]bool
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{online: make(map[string]bool)}
}

func (s *fakeStore) SetOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("store down")
	}
	s.online[userID] = isOnline
	return nil
}

func (s *fakeStore) isOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID]
}

func TestConnectRegistersSingleSession(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	token := hub.Connect(context.Background(), "alice", &fakeConn{}, ConnInfo{UserID: "alice"})

	require.NotEmpty(t, token)
	assert.True(t, hub.IsConnected("alice"))
	assert.True(t, store.isOnline("alice"))
}

func TestConnectEvictsPriorSession(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	first := &fakeConn{}
	second := &fakeConn{}
	hub.Connect(context.Background(), "alice", first, ConnInfo{UserID: "alice"})
	tokenB := hub.Connect(context.Background(), "alice", second, ConnInfo{UserID: "alice"})

	assert.True(t, first.isClosed(), "evicted session must be closed")
	assert.False(t, second.isClosed())

	current, ok := hub.SessionToken("alice")
	require.True(t, ok)
	assert.Equal(t, tokenB, current)
}

func TestStaleDisconnectIsIgnored(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	tokenA := hub.Connect(context.Background(), "alice", &fakeConn{}, ConnInfo{UserID: "alice"})
	tokenB := hub.Connect(context.Background(), "alice", &fakeConn{}, ConnInfo{UserID: "alice"})

	// Session A's teardown arrives after B superseded it.
	took := hub.Disconnect(context.Background(), "alice", tokenA)

	assert.False(t, took)
	assert.True(t, hub.IsConnected("alice"))
	assert.True(t, store.isOnline("alice"))

	current, ok := hub.SessionToken("alice")
	require.True(t, ok)
	assert.Equal(t, tokenB, current)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	token := hub.Connect(context.Background(), "alice", &fakeConn{}, ConnInfo{UserID: "alice"})

	assert.True(t, hub.Disconnect(context.Background(), "alice", token))
	assert.False(t, hub.Disconnect(context.Background(), "alice", token))
	assert.False(t, hub.IsConnected("alice"))
	assert.False(t, store.isOnline("alice"))
}

func TestTrySendWithoutSessionReturnsFalse(t *testing.T) {
	hub := NewHub(newFakeStore(), time.Second)

	assert.False(t, hub.TrySend(context.Background(), "nobody", map[string]string{"type": "ping"}))
}

func TestTrySendDeliversPayload(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	conn := &fakeConn{}
	hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})

	require.True(t, hub.TrySend(context.Background(), "alice", map[string]string{"type": "ping"}))
	assert.Equal(t, 1, conn.writeCount())
}

func TestTrySendFailureEvictsAndMarksOffline(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	conn := &fakeConn{failNext: true}
	hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})

	assert.False(t, hub.TrySend(context.Background(), "alice", map[string]string{"type": "ping"}))
	assert.False(t, hub.IsConnected("alice"))
	assert.False(t, store.isOnline("alice"))
	assert.True(t, conn.isClosed())
}

func TestConnectSurvivesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	hub := NewHub(store, time.Second)

	hub.Connect(context.Background(), "alice", &fakeConn{}, ConnInfo{UserID: "alice"})

	// Presence is best-effort for persistence, authoritative for routing.
	assert.True(t, hub.IsConnected("alice"))
}

func TestConcurrentConnectsKeepOneSession(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 16)
	for i := range conns {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(conn *fakeConn) {
			defer wg.Done()
			hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})
		}(conns[i])
	}
	wg.Wait()

	open := 0
	for _, conn := range conns {
		if !conn.isClosed() {
			open++
		}
	}
	assert.Equal(t, 1, open, "exactly one session must survive")
	assert.True(t, hub.IsConnected("alice"))
}

func TestSetStatusReportsStoreFailure(t *testing.T) {
	store := newFakeStore()
	hub := NewHub(store, time.Second)

	require.NoError(t, hub.SetStatus(context.Background(), "alice", true))
	assert.True(t, store.isOnline("alice"))

	store.failAll = true
	assert.Error(t, hub.SetStatus(context.Background(), "alice", false))
}
