package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

type senderStub struct {
	msg models.Message
	err error

	lastChatID  string
	lastContent string
}

func (s *senderStub) CreateAndSend(ctx context.Context, chatID, senderID, content, messageType string, repliedTo *string) (models.Message, error) {
	s.lastChatID = chatID
	s.lastContent = content
	return s.msg, s.err
}

func lastFrameType(t *testing.T, conn *fakeConn) string {
	t.Helper()
	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.NotEmpty(t, conn.writes)
	var frame struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(conn.writes[len(conn.writes)-1], &frame))
	return frame.Type
}

func TestHandleSendMessageEchoesConfirmation(t *testing.T) {
	hub := NewHub(newFakeStore(), time.Second)
	conn := &fakeConn{}
	hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})

	sender := &senderStub{msg: models.Message{ID: "msg-1", ChatID: "chat-1", SenderID: "alice"}}
	handler := NewSocketHandler(hub, nil, sender)

	handler.handleSendMessage(context.Background(), "alice", models.ClientFrame{
		Type:    models.FrameSendMessage,
		ChatID:  "chat-1",
		Content: "hello",
	})

	assert.Equal(t, "chat-1", sender.lastChatID)
	assert.Equal(t, "hello", sender.lastContent)
	assert.Equal(t, models.FrameMessageSent, lastFrameType(t, conn))
}

func TestHandleSendMessageRequiresChatAndContent(t *testing.T) {
	hub := NewHub(newFakeStore(), time.Second)
	conn := &fakeConn{}
	hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})

	sender := &senderStub{}
	handler := NewSocketHandler(hub, nil, sender)

	handler.handleSendMessage(context.Background(), "alice", models.ClientFrame{
		Type:   models.FrameSendMessage,
		ChatID: "chat-1",
	})

	assert.Empty(t, sender.lastChatID, "service must not be called for invalid frames")
	assert.Equal(t, models.FrameError, lastFrameType(t, conn))
}

func TestHandleSendMessageReportsServiceFailure(t *testing.T) {
	hub := NewHub(newFakeStore(), time.Second)
	conn := &fakeConn{}
	hub.Connect(context.Background(), "alice", conn, ConnInfo{UserID: "alice"})

	sender := &senderStub{err: errors.New("db down")}
	handler := NewSocketHandler(hub, nil, sender)

	handler.handleSendMessage(context.Background(), "alice", models.ClientFrame{
		Type:    models.FrameSendMessage,
		ChatID:  "chat-1",
		Content: "hello",
	})

	assert.Equal(t, models.FrameError, lastFrameType(t, conn))
}
