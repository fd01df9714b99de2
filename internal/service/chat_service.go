package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"messaging-service/internal/domain"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// ChatService is the chat directory: it resolves direct chats per unordered
// participant pair and builds the per-user chat listing.
type ChatService struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
}

// NewChatService constructs a ChatService.
func NewChatService(chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository) *ChatService {
	return &ChatService{chats: chats, messages: messages, users: users}
}

// StartDirect finds or creates the direct chat between the caller and
// another user. Concurrent calls for the same pair converge on one chat.
func (s *ChatService) StartDirect(ctx context.Context, userID, otherUserID string) (models.Chat, error) {
	if otherUserID == "" || otherUserID == userID {
		return models.Chat{}, fmt.Errorf("cannot start chat with %q: %w", otherUserID, domain.ErrInvalidArgument)
	}

	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Chat{}, fmt.Errorf("user %s: %w", otherUserID, domain.ErrNotFound)
		}
		return models.Chat{}, storageErr("load user", err)
	}

	chat, err := s.chats.FindOrCreateDirect(ctx, uuid.NewString(), userID, otherUserID, time.Now().UTC())
	if err != nil {
		return models.Chat{}, storageErr("find or create chat", err)
	}
	return chat, nil
}

// ListChats returns the caller's chats, most recently active first, with the
// other participant's presence and the latest message embedded.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list chats", err)
	}

	otherIDs := make([]string, 0, len(chats))
	for _, chat := range chats {
		if other := otherParticipant(chat.Participants, userID); other != "" {
			otherIDs = append(otherIDs, other)
		}
	}
	others, err := s.users.GetByIDs(ctx, otherIDs)
	if err != nil {
		return nil, storageErr("load participants", err)
	}
	userByID := make(map[string]models.User, len(others))
	for _, other := range others {
		userByID[other.ID] = other
	}

	now := time.Now().UTC()
	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := models.ChatSummary{Chat: chat}

		if other, ok := userByID[otherParticipant(chat.Participants, userID)]; ok {
			summary.OtherUser = &models.UserSummary{
				ID:        other.ID,
				Username:  other.Username,
				AvatarURL: other.AvatarURL,
				IsOnline:  other.IsOnline,
				LastSeen:  HumanizeLastSeen(other.IsOnline, other.LastSeen, now),
			}
		}

		last, err := s.messages.LastMessage(ctx, chat.ID)
		if err != nil {
			return nil, storageErr("load last message", err)
		}
		summary.LastMessage = last

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// IsParticipant reports chat membership for authorization checks.
func (s *ChatService) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	member, err := s.chats.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return false, storageErr("check membership", err)
	}
	return member, nil
}

// HumanizeLastSeen renders presence the way chat clients display it.
func HumanizeLastSeen(isOnline bool, lastSeen, now time.Time) string {
	if isOnline {
		return "online"
	}
	elapsed := now.Sub(lastSeen)
	switch {
	case elapsed < time.Minute:
		return "last seen just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("last seen %d minutes ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("last seen %d hours ago", int(elapsed.Hours()))
	case elapsed < 48*time.Hour:
		return "last seen yesterday"
	default:
		return "last seen " + lastSeen.Format("Jan 2, 2006")
	}
}

func otherParticipant(participants []string, userID string) string {
	for _, participant := range participants {
		if participant != userID {
			return participant
		}
	}
	return ""
}
