package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already registered")

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	Search(ctx context.Context, query string, excludeUserID string, limit int) ([]models.User, error)
	SetOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. A duplicate email maps to ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, avatar_url, is_online, last_seen, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.AvatarURL, user.IsOnline, user.LastSeen, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, email, password_hash, avatar_url, is_online, last_seen, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, email, password_hash, avatar_url, is_online, last_seen, created_at FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByIDs fetches multiple users in one query.
func (r *UserRepo) GetByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, email, password_hash, avatar_url, is_online, last_seen, created_at FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...)
	return users, err
}

// Search matches username or email case-insensitively, excluding one user.
func (r *UserRepo) Search(ctx context.Context, query string, excludeUserID string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, email, password_hash, avatar_url, is_online, last_seen, created_at
        FROM users
        WHERE id <> $1 AND (username ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
        ORDER BY username ASC
        LIMIT $3`, excludeUserID, query, limit)
	return users, err
}

// SetOnlineStatus mirrors presence into durable user state.
func (r *UserRepo) SetOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$2, last_seen=$3 WHERE id=$1`, userID, isOnline, lastSeen)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
