package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/service"
)

// MessageHandler manages message status endpoints.
type MessageHandler struct {
	msgSvc *service.MessageService
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(msgSvc *service.MessageService) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc}
}

// MarkRead records a read receipt for one message.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	msg, err := h.msgSvc.MarkRead(c.Request.Context(), messageID, userID)
	if err != nil {
		abortWithError(c, err, "failed to mark message read")
		return
	}

	c.JSON(http.StatusOK, msg)
}

// BulkUpdateStatus applies delivered or read to a batch of messages.
func (h *MessageHandler) BulkUpdateStatus(c *gin.Context) {
	var req struct {
		MessageIDs []string `json:"message_ids" binding:"required"`
		Status     string   `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	count, err := h.msgSvc.BulkUpdateStatus(c.Request.Context(), req.MessageIDs, req.Status, userID)
	if err != nil {
		abortWithError(c, err, "failed to update message status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated_count": count})
}
