package models

import "time"

// Message delivery statuses. Transitions only advance forward.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// StatusRank orders statuses for forward-only transition checks.
func StatusRank(status string) int {
	switch status {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// Message represents a chat message.
type Message struct {
	ID          string     `db:"id" json:"id"`
	ChatID      string     `db:"chat_id" json:"chat_id"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	Content     string     `db:"content" json:"content"`
	MessageType string     `db:"message_type" json:"message_type"`
	Status      string     `db:"status" json:"status"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	RepliedTo   *string    `db:"replied_to" json:"replied_to,omitempty"`
	Timestamp   time.Time  `db:"timestamp" json:"timestamp"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
}
