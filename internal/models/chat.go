package models

import "time"

// Chat types.
const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

// Chat is a conversation between a fixed set of participants. Direct chats
// have exactly two participants and are unique per unordered pair.
type Chat struct {
	ID            string    `db:"id" json:"id"`
	ChatType      string    `db:"chat_type" json:"chat_type"`
	Name          *string   `db:"name" json:"name,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`

	Participants []string `db:"-" json:"participants"`
}

// ChatSummary is the API view of a chat for one user, with the other
// participant and the latest message embedded.
type ChatSummary struct {
	Chat
	OtherUser   *UserSummary `json:"other_user,omitempty"`
	LastMessage *Message     `json:"last_message,omitempty"`
}
