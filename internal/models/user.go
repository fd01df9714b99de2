package models

import "time"

// User is an account holder. PasswordHash never leaves the service.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	AvatarURL    *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	IsOnline     bool      `db:"is_online" json:"is_online"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the participant view embedded in chat listings.
type UserSummary struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	IsOnline  bool    `json:"is_online"`
	LastSeen  string  `json:"last_seen"`
}
