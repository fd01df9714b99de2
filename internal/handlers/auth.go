package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/auth"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// AuthHandler manages registration and login endpoints.
type AuthHandler struct {
	svc     *auth.Service
	emitter *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(svc *auth.Service, emitter *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{svc: svc, emitter: emitter}
}

// Register creates an account and returns an access token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
			return
		}
		abortWithError(c, err, "registration failed")
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user registered", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusCreated, gin.H{"access_token": token, "token_type": "bearer"})
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err, "invalid credentials")
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user logged in", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.svc.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err, "failed to load user")
		return
	}

	c.JSON(http.StatusOK, user)
}
