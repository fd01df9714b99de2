package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	FindOrCreateDirect(ctx context.Context, chatID string, userA, userB string, now time.Time) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	GetParticipants(ctx context.Context, chatID string) ([]string, error)
	IsParticipant(ctx context.Context, chatID string, userID string) (bool, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	TouchLastMessage(ctx context.Context, chatID string, timestamp time.Time) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// DirectPairKey normalizes an unordered participant pair into the unique key
// the chats table enforces direct-chat uniqueness on.
func DirectPairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// FindOrCreateDirect returns the direct chat for the pair, creating it if
// absent. The insert races through the pair_key unique constraint, so
// concurrent calls for the same pair converge on one row.
func (r *ChatRepo) FindOrCreateDirect(ctx context.Context, chatID string, userA, userB string, now time.Time) (models.Chat, error) {
	pairKey := DirectPairKey(userA, userB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO chats (id, chat_type, pair_key, created_at, last_message_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (pair_key) DO NOTHING`, chatID, models.ChatTypeDirect, pairKey, now); err != nil {
		return models.Chat{}, err
	}

	var chat models.Chat
	if err := tx.GetContext(ctx, &chat, `SELECT id, chat_type, name, created_at, last_message_at FROM chats WHERE pair_key=$1`, pairKey); err != nil {
		return models.Chat{}, err
	}

	for _, userID := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_participants (chat_id, user_id, joined_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (chat_id, user_id) DO NOTHING`, chat.ID, userID, now); err != nil {
			return models.Chat{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Chat{}, err
	}

	chat.Participants = []string{userA, userB}
	return chat, nil
}

// GetChat fetches a chat with its participant set.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, chat_type, name, created_at, last_message_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}

	participants, err := r.GetParticipants(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	chat.Participants = participants
	return chat, nil
}

// GetParticipants returns the participant user ids of a chat.
func (r *ChatRepo) GetParticipants(ctx context.Context, chatID string) ([]string, error) {
	var participants []string
	err := r.db.SelectContext(ctx, &participants, `SELECT user_id FROM chat_participants WHERE chat_id=$1 ORDER BY user_id`, chatID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrChatNotFound
	}
	return participants, nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// ListChatsForUser returns the user's chats, most recently active first.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT c.id, c.chat_type, c.name, c.created_at, c.last_message_at
        FROM chats c
        JOIN chat_participants cp ON cp.chat_id = c.id
        WHERE cp.user_id = $1
        ORDER BY c.last_message_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	for i := range chats {
		participants, err := r.GetParticipants(ctx, chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].Participants = participants
	}
	return chats, nil
}

// TouchLastMessage advances last_message_at, never moving it backwards.
func (r *ChatRepo) TouchLastMessage(ctx context.Context, chatID string, timestamp time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET last_message_at = GREATEST(last_message_at, $2) WHERE id=$1`, chatID, timestamp)
	return err
}
