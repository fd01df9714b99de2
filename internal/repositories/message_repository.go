package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) error
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	LastMessage(ctx context.Context, chatID string) (*models.Message, error)
	MarkDelivered(ctx context.Context, messageID string, deliveredAt time.Time) error
	MarkRead(ctx context.Context, messageID string, readAt time.Time) error
	BulkUpdateStatus(ctx context.Context, messageIDs []string, status string, excludeSenderID string, at time.Time) (int64, error)
	MarkChatRead(ctx context.Context, chatID string, readerID string, readAt time.Time) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, content, message_type, status, is_read, replied_to, timestamp, delivered_at, read_at`

// Create stores a new message.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, chat_id, sender_id, content, message_type, status, is_read, replied_to, timestamp)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.MessageType, msg.Status, msg.IsRead, msg.RepliedTo, msg.Timestamp)
	return err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListByChat returns a chat's messages ordered by timestamp ascending.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY timestamp ASC, id ASC`, chatID)
	return msgs, err
}

// LastMessage returns the most recent message in a chat, or nil if empty.
func (r *MessageRepo) LastMessage(ctx context.Context, chatID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY timestamp DESC, id DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkDelivered advances a message from sent to delivered. Messages already
// past sent are left untouched.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID string, deliveredAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2, delivered_at=$3
        WHERE id=$1 AND status=$4`,
		messageID, models.StatusDelivered, deliveredAt, models.StatusSent)
	return err
}

// MarkRead advances a message to read. Already-read messages are untouched.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID string, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2, is_read=TRUE, read_at=$3
        WHERE id=$1 AND status<>$2`,
		messageID, models.StatusRead, readAt)
	return err
}

// BulkUpdateStatus applies a status transition to many messages at once,
// skipping the requester's own messages and any message already at or past
// the target status. Returns the number of rows actually modified.
func (r *MessageRepo) BulkUpdateStatus(ctx context.Context, messageIDs []string, status string, excludeSenderID string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	var res sql.Result
	var err error
	switch status {
	case models.StatusDelivered:
		res, err = r.db.ExecContext(ctx, `UPDATE messages SET status=$1, delivered_at=$2
            WHERE id = ANY($3) AND sender_id <> $4 AND status = $5`,
			models.StatusDelivered, at, pq.Array(messageIDs), excludeSenderID, models.StatusSent)
	case models.StatusRead:
		res, err = r.db.ExecContext(ctx, `UPDATE messages SET status=$1, is_read=TRUE, read_at=$2
            WHERE id = ANY($3) AND sender_id <> $4 AND status <> $1`,
			models.StatusRead, at, pq.Array(messageIDs), excludeSenderID)
	default:
		return 0, fmt.Errorf("unsupported status %q", status)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkChatRead marks every message in a chat not sent by the reader as read.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID string, readerID string, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$3, is_read=TRUE, read_at=$4
        WHERE chat_id=$1 AND sender_id<>$2 AND status<>$3`,
		chatID, readerID, models.StatusRead, readAt)
	return err
}
