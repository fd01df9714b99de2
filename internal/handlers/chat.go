package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/service"
)

// ChatHandler manages chat and message endpoints.
type ChatHandler struct {
	chatSvc *service.ChatService
	msgSvc  *service.MessageService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatSvc *service.ChatService, msgSvc *service.MessageService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc, msgSvc: msgSvc}
}

// ListChats returns the chats visible to the authenticated user, with the
// other participant's presence and the latest message embedded.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	summaries, err := h.chatSvc.ListChats(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err, "failed to load chats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// StartChat creates or returns the direct chat with another user.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		OtherUserID string `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	chat, err := h.chatSvc.StartDirect(c.Request.Context(), userID, req.OtherUserID)
	if err != nil {
		abortWithError(c, err, "could not start chat")
		return
	}

	c.JSON(http.StatusOK, chat)
}

// GetChatMessages returns a chat's messages in timestamp order and marks
// everything not sent by the caller as read.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	msgs, err := h.msgSvc.ListMessages(c.Request.Context(), chatID, userID)
	if err != nil {
		abortWithError(c, err, "failed to load messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a message and attempts live delivery.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var req struct {
		Content     string  `json:"content" binding:"required"`
		MessageType string  `json:"message_type"`
		RepliedTo   *string `json:"replied_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.msgSvc.CreateAndSend(c.Request.Context(), chatID, userID, req.Content, req.MessageType, req.RepliedTo)
	if err != nil {
		abortWithError(c, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}
