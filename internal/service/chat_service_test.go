package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/domain"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func newChatServiceFixture() (*ChatService, *mocks.ChatRepositoryMock, *mocks.MessageRepositoryMock, *mocks.UserRepositoryMock) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	return NewChatService(chats, messages, users), chats, messages, users
}

func TestStartDirectRejectsSelfChat(t *testing.T) {
	svc, chats, _, _ := newChatServiceFixture()

	_, err := svc.StartDirect(context.Background(), "alice", "alice")

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	chats.AssertNotCalled(t, "FindOrCreateDirect", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartDirectRejectsEmptyTarget(t *testing.T) {
	svc, _, _, _ := newChatServiceFixture()

	_, err := svc.StartDirect(context.Background(), "alice", "")

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStartDirectUnknownUser(t *testing.T) {
	svc, _, _, users := newChatServiceFixture()

	users.On("GetByID", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound)

	_, err := svc.StartDirect(context.Background(), "alice", "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartDirectCreatesChat(t *testing.T) {
	svc, chats, _, users := newChatServiceFixture()

	users.On("GetByID", mock.Anything, "bob").Return(models.User{ID: "bob"}, nil)
	created := models.Chat{ID: "chat-1", ChatType: models.ChatTypeDirect, Participants: []string{"alice", "bob"}}
	chats.On("FindOrCreateDirect", mock.Anything, mock.AnythingOfType("string"), "alice", "bob", mock.AnythingOfType("time.Time")).
		Return(created, nil)

	chat, err := svc.StartDirect(context.Background(), "alice", "bob")

	require.NoError(t, err)
	assert.Equal(t, "chat-1", chat.ID)
	assert.Equal(t, models.ChatTypeDirect, chat.ChatType)
}

func TestListChatsEmbedsOtherUserAndLastMessage(t *testing.T) {
	svc, chats, messages, users := newChatServiceFixture()

	chats.On("ListChatsForUser", mock.Anything, "alice").Return([]models.Chat{
		{ID: "chat-1", ChatType: models.ChatTypeDirect, Participants: []string{"alice", "bob"}},
	}, nil)
	users.On("GetByIDs", mock.Anything, []string{"bob"}).Return([]models.User{
		{ID: "bob", Username: "bob", IsOnline: true},
	}, nil)
	last := &models.Message{ID: "msg-9", ChatID: "chat-1", SenderID: "bob", Content: "hey"}
	messages.On("LastMessage", mock.Anything, "chat-1").Return(last, nil)

	summaries, err := svc.ListChats(context.Background(), "alice")

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].OtherUser)
	assert.Equal(t, "bob", summaries[0].OtherUser.ID)
	assert.Equal(t, "online", summaries[0].OtherUser.LastSeen)
	assert.Equal(t, last, summaries[0].LastMessage)
}

func TestListChatsWithoutMessages(t *testing.T) {
	svc, chats, messages, users := newChatServiceFixture()

	chats.On("ListChatsForUser", mock.Anything, "alice").Return([]models.Chat{
		{ID: "chat-1", ChatType: models.ChatTypeDirect, Participants: []string{"alice", "bob"}},
	}, nil)
	users.On("GetByIDs", mock.Anything, []string{"bob"}).Return([]models.User{{ID: "bob", Username: "bob"}}, nil)
	messages.On("LastMessage", mock.Anything, "chat-1").Return(nil, nil)

	summaries, err := svc.ListChats(context.Background(), "alice")

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Nil(t, summaries[0].LastMessage)
}

func TestHumanizeLastSeen(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		isOnline bool
		lastSeen time.Time
		want     string
	}{
		{"online", true, now, "online"},
		{"just now", false, now.Add(-30 * time.Second), "last seen just now"},
		{"minutes", false, now.Add(-5 * time.Minute), "last seen 5 minutes ago"},
		{"hours", false, now.Add(-3 * time.Hour), "last seen 3 hours ago"},
		{"yesterday", false, now.Add(-30 * time.Hour), "last seen yesterday"},
		{"older", false, now.Add(-90 * 24 * time.Hour), "last seen Jun 2, 2026"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HumanizeLastSeen(tc.isOnline, tc.lastSeen, now))
		})
	}
}
