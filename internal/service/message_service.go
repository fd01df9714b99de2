package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"messaging-service/internal/domain"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// MessageService owns the message lifecycle: creation, persistence, the
// live-delivery attempt and the sent -> delivered -> read state machine.
type MessageService struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	registry Registry
	router   *Router
}

// NewMessageService constructs a MessageService.
func NewMessageService(chats repositories.ChatRepository, messages repositories.MessageRepository, registry Registry) *MessageService {
	return &MessageService{
		chats:    chats,
		messages: messages,
		registry: registry,
		router:   NewRouter(registry),
	}
}

// CreateAndSend persists a new message, then attempts a live push to every
// other participant. If any participant received it live the message is
// promoted to delivered. A push miss is silent: the message stays in sent
// and the call still succeeds.
func (s *MessageService) CreateAndSend(ctx context.Context, chatID, senderID, content, messageType string, repliedTo *string) (models.Message, error) {
	participants, err := s.chats.GetParticipants(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return models.Message{}, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		return models.Message{}, storageErr("load participants", err)
	}
	if !contains(participants, senderID) {
		return models.Message{}, fmt.Errorf("sender not in chat %s: %w", chatID, domain.ErrForbidden)
	}

	if messageType == "" {
		messageType = "text"
	}
	now := time.Now().UTC()
	msg := models.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    senderID,
		Content:     content,
		MessageType: messageType,
		Status:      models.StatusSent,
		RepliedTo:   repliedTo,
		Timestamp:   now,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return models.Message{}, storageErr("create message", err)
	}
	if err := s.chats.TouchLastMessage(ctx, chatID, now); err != nil {
		return models.Message{}, storageErr("touch chat", err)
	}

	results := s.router.Fanout(ctx, participants, senderID, models.MessageEvent{
		Type:    models.FrameNewMessage,
		Message: &msg,
	})
	if AnyDelivered(results) {
		deliveredAt := time.Now().UTC()
		if err := s.messages.MarkDelivered(ctx, msg.ID, deliveredAt); err != nil {
			return models.Message{}, storageErr("mark delivered", err)
		}
		msg.Status = models.StatusDelivered
		msg.DeliveredAt = &deliveredAt
	}

	publishMessageEvent(ctx, "messages.created", msg)
	return msg, nil
}

// MarkRead records a read receipt for a message. Reading one's own message
// is a successful no-op. The live receipt to the sender is fire-and-forget.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID string) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
		return models.Message{}, storageErr("load message", err)
	}

	if msg.SenderID == readerID {
		return msg, nil
	}

	member, err := s.chats.IsParticipant(ctx, msg.ChatID, readerID)
	if err != nil {
		return models.Message{}, storageErr("check membership", err)
	}
	if !member {
		return models.Message{}, fmt.Errorf("reader not in chat %s: %w", msg.ChatID, domain.ErrForbidden)
	}

	readAt := time.Now().UTC()
	if err := s.messages.MarkRead(ctx, messageID, readAt); err != nil {
		return models.Message{}, storageErr("mark read", err)
	}
	if models.StatusRank(msg.Status) < models.StatusRank(models.StatusRead) {
		msg.Status = models.StatusRead
		msg.IsRead = true
		msg.ReadAt = &readAt
	}

	s.registry.TrySend(ctx, msg.SenderID, models.ReadReceiptEvent{
		Type:      models.FrameMessageRead,
		MessageID: msg.ID,
		ReadBy:    readerID,
		ReadAt:    readAt,
	})

	publishMessageEvent(ctx, "messages.read", msg)
	return msg, nil
}

// BulkUpdateStatus applies delivered or read to a batch of messages, skipping
// the requester's own. The returned count may be smaller than the batch when
// some messages were ineligible or unknown; that is not an error.
func (s *MessageService) BulkUpdateStatus(ctx context.Context, messageIDs []string, targetStatus, requesterID string) (int64, error) {
	if targetStatus != models.StatusDelivered && targetStatus != models.StatusRead {
		return 0, fmt.Errorf("status %q: %w", targetStatus, domain.ErrInvalidArgument)
	}

	count, err := s.messages.BulkUpdateStatus(ctx, messageIDs, targetStatus, requesterID, time.Now().UTC())
	if err != nil {
		return 0, storageErr("bulk update status", err)
	}
	return count, nil
}

// ListMessages returns a chat's messages in timestamp order. Fetching a chat
// implies the requester has seen it, so everything not sent by them is
// marked read as a best-effort side effect that never alters the returned
// page.
func (s *MessageService) ListMessages(ctx context.Context, chatID, requesterID string) ([]models.Message, error) {
	participants, err := s.chats.GetParticipants(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
		}
		return nil, storageErr("load participants", err)
	}
	if !contains(participants, requesterID) {
		return nil, fmt.Errorf("requester not in chat %s: %w", chatID, domain.ErrForbidden)
	}

	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, storageErr("list messages", err)
	}

	if err := s.messages.MarkChatRead(ctx, chatID, requesterID, time.Now().UTC()); err != nil {
		log.Printf("mark chat read failed chat_id=%s user_id=%s: %v", chatID, requesterID, err)
	}

	return msgs, nil
}

func publishMessageEvent(ctx context.Context, routingKey string, msg models.Message) {
	_ = observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType: "message_events",
		EventName: routingKey,
		Payload: map[string]interface{}{
			"message_id": msg.ID,
			"chat_id":    msg.ChatID,
			"sender_id":  msg.SenderID,
			"status":     msg.Status,
		},
	}, nil)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorageUnavailable)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
