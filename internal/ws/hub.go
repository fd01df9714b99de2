package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/observability"
)

// Conn is the subset of *websocket.Conn the hub needs. Narrow so tests can
// substitute a fake transport.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// PresenceStore mirrors connect/disconnect into durable user state.
type PresenceStore interface {
	SetOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}

type session struct {
	token string
	conn  Conn
	info  ConnInfo

	// writeMu serializes transport writes and eviction for one user so
	// unrelated users never contend with each other.
	writeMu sync.Mutex
}

// Hub maps each connected user to exactly one live session and mirrors the
// online flag into the durable store. It is purely in-memory and starts
// empty on process restart.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	store        PresenceStore
	writeTimeout time.Duration
}

// NewHub creates an empty hub.
func NewHub(store PresenceStore, writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		sessions:     make(map[string]*session),
		store:        store,
		writeTimeout: writeTimeout,
	}
}

// Connect registers conn as the user's current live session and returns its
// session token. Any prior session for the same user is evicted and closed
// (last-connect-wins). The durable online flag is best-effort: a store
// failure never fails the registration.
func (h *Hub) Connect(ctx context.Context, userID string, conn Conn, info ConnInfo) string {
	token := newSessionToken()
	info.ConnID = token

	h.mu.Lock()
	prior := h.sessions[userID]
	h.sessions[userID] = &session{token: token, conn: conn, info: info}
	h.mu.Unlock()

	if prior != nil {
		prior.writeMu.Lock()
		_ = prior.conn.Close()
		prior.writeMu.Unlock()
		observability.IncWSEvent("session", "evicted")
	}

	if err := h.store.SetOnlineStatus(ctx, userID, true, time.Now().UTC()); err != nil {
		log.Printf("presence: set online failed user_id=%s: %v", userID, err)
	}
	return token
}

// Disconnect removes the session only if token still matches the user's
// current session. Stale tokens from an already-superseded session are
// ignored, so an old session's teardown never clobbers the new one.
func (h *Hub) Disconnect(ctx context.Context, userID, token string) bool {
	h.mu.Lock()
	current, ok := h.sessions[userID]
	if !ok || current.token != token {
		h.mu.Unlock()
		return false
	}
	delete(h.sessions, userID)
	h.mu.Unlock()

	current.writeMu.Lock()
	_ = current.conn.Close()
	current.writeMu.Unlock()

	if err := h.store.SetOnlineStatus(ctx, userID, false, time.Now().UTC()); err != nil {
		log.Printf("presence: set offline failed user_id=%s: %v", userID, err)
	}
	return true
}

// TrySend pushes payload to the user's live session if one exists. It never
// blocks beyond the write deadline and never queues: no session means an
// immediate false. A transport failure evicts the session and marks the
// user offline, then reports false.
func (h *Hub) TrySend(ctx context.Context, userID string, payload any) bool {
	h.mu.RLock()
	current, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		observability.IncDelivery("miss")
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("presence: marshal push payload user_id=%s: %v", userID, err)
		return false
	}

	current.writeMu.Lock()
	_ = current.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	err = current.conn.WriteMessage(websocket.TextMessage, data)
	current.writeMu.Unlock()

	if err != nil {
		log.Printf("presence: push failed user_id=%s: %v", userID, err)
		h.Disconnect(ctx, userID, current.token)
		observability.IncDelivery("transport_error")
		return false
	}
	observability.IncDelivery("delivered")
	return true
}

// IsConnected reports whether the user currently has a live session.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// SessionToken returns the user's current session token, if any.
func (h *Hub) SessionToken(userID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	current, ok := h.sessions[userID]
	if !ok {
		return "", false
	}
	return current.token, true
}

// SetStatus is the explicit client-driven presence override, independent of
// any socket lifecycle. Unlike the connect/disconnect mirror it reports
// store failures to the caller.
func (h *Hub) SetStatus(ctx context.Context, userID string, isOnline bool) error {
	return h.store.SetOnlineStatus(ctx, userID, isOnline, time.Now().UTC())
}
