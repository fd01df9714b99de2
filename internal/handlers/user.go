package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
	"messaging-service/internal/telemetry"
)

// Presence is the explicit status-override surface of the presence registry.
type Presence interface {
	SetStatus(ctx context.Context, userID string, isOnline bool) error
}

// UserHandler manages user presence and search endpoints.
type UserHandler struct {
	users    repositories.UserRepository
	presence Presence
	emitter  *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, presence Presence, emitter *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{users: users, presence: presence, emitter: emitter}
}

// UpdateStatus is the client-driven presence override, independent of any
// socket lifecycle. Unlike the socket mirror, a store failure is reported.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		IsOnline *bool `json:"is_online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.presence.SetStatus(c.Request.Context(), userID, *req.IsOnline); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to update status"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load user"})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "presence override", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"is_online": user.IsOnline,
		"last_seen": user.LastSeen,
		"pretty":    service.HumanizeLastSeen(user.IsOnline, user.LastSeen, time.Now().UTC()),
	})
}

// SearchUsers matches users by username or email, excluding the caller.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	userID := c.GetString("userID")
	users, err := h.users.Search(c.Request.Context(), query, userID, 10)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to search users"})
		return
	}

	now := time.Now().UTC()
	results := make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		results = append(results, models.UserSummary{
			ID:        user.ID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
			IsOnline:  user.IsOnline,
			LastSeen:  service.HumanizeLastSeen(user.IsOnline, user.LastSeen, now),
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}
