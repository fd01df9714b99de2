package auth

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

// Service handles registration and login against the user store.
type Service struct {
	users  repositories.UserRepository
	tokens *TokenService
	hasher *PasswordHasher
}

func NewService(users repositories.UserRepository, tokens *TokenService, hasher *PasswordHasher) *Service {
	return &Service{users: users, tokens: tokens, hasher: hasher}
}

// Register creates an account and returns an access token for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (models.User, string, error) {
	if username == "" || email == "" || password == "" {
		return models.User{}, "", fmt.Errorf("username, email and password are required: %w", domain.ErrInvalidArgument)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		LastSeen:     now,
		CreatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return models.User{}, "", fmt.Errorf("email %s: %w", email, repositories.ErrEmailTaken)
		}
		return models.User{}, "", fmt.Errorf("create user: %v: %w", err, domain.ErrStorageUnavailable)
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and returns an access token.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
		}
		return models.User{}, "", fmt.Errorf("load user: %v: %w", err, domain.ErrStorageUnavailable)
	}

	if err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// CurrentUser loads the account behind a resolved user id.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("user %s: %w", userID, domain.ErrUnauthenticated)
		}
		return models.User{}, fmt.Errorf("load user: %v: %w", err, domain.ErrStorageUnavailable)
	}
	return user, nil
}
