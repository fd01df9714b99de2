package models

import "time"

// Websocket frame types.
const (
	FrameSendMessage = "send_message"
	FrameMessageSent = "message_sent"
	FrameNewMessage  = "new_message"
	FrameMessageRead = "message_read"
	FrameError       = "error"
)

// ClientFrame is an inbound websocket frame from a connected client.
type ClientFrame struct {
	Type        string  `json:"type"`
	ChatID      string  `json:"chat_id"`
	Content     string  `json:"content"`
	MessageType string  `json:"message_type,omitempty"`
	RepliedTo   *string `json:"replied_to,omitempty"`
}

// MessageEvent is pushed to live clients when a message is created.
type MessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// ReadReceiptEvent notifies a sender that their message was read.
type ReadReceiptEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	ReadBy    string    `json:"read_by"`
	ReadAt    time.Time `json:"read_at"`
}

// ErrorEvent reports a failed frame back to the client that sent it.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
