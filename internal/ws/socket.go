package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// TokenResolver resolves a credential token to a user id.
type TokenResolver interface {
	ResolveUserID(ctx context.Context, token string) (string, error)
}

// MessageSender is the slice of the message lifecycle the socket needs.
type MessageSender interface {
	CreateAndSend(ctx context.Context, chatID, senderID, content, messageType string, repliedTo *string) (models.Message, error)
}

// SocketHandler owns the live-connection endpoint.
type SocketHandler struct {
	hub      *Hub
	auth     TokenResolver
	messages MessageSender
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, auth TokenResolver, messages MessageSender) *SocketHandler {
	return &SocketHandler{hub: hub, auth: auth, messages: messages}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the user's live session and
// processes inbound frames until the peer goes away.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.resolveToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	sessionToken := h.hub.Connect(ctx, userID, conn, info)
	info.ConnID = sessionToken

	observability.IncWSActive()
	observability.IncWSEvent("session", "ws_connect")
	publishSessionEvent(context.Background(), "ws_connect", info, "")

	go h.readLoop(userID, sessionToken, conn, info)
}

func (h *SocketHandler) readLoop(userID, sessionToken string, conn *websocket.Conn, info ConnInfo) {
	// The handshake context dies with the HTTP handler; the session outlives it.
	ctx := context.Background()

	var closeReason string
	defer func() {
		h.hub.Disconnect(ctx, userID, sessionToken)
		observability.DecWSActive()
		observability.IncWSEvent("session", "ws_disconnect")
		publishSessionEvent(ctx, "ws_disconnect", info, closeReason)
	}()

	for {
		var frame models.ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("session", "ws_error")
				publishSessionEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}

		switch frame.Type {
		case models.FrameSendMessage:
			h.handleSendMessage(ctx, userID, frame)
		default:
			h.hub.TrySend(ctx, userID, models.ErrorEvent{Type: models.FrameError, Message: "unknown frame type"})
		}
	}
}

func (h *SocketHandler) handleSendMessage(ctx context.Context, userID string, frame models.ClientFrame) {
	if frame.ChatID == "" || frame.Content == "" {
		h.hub.TrySend(ctx, userID, models.ErrorEvent{Type: models.FrameError, Message: "send_message requires chat_id and content"})
		return
	}

	msg, err := h.messages.CreateAndSend(ctx, frame.ChatID, userID, frame.Content, frame.MessageType, frame.RepliedTo)
	if err != nil {
		h.hub.TrySend(ctx, userID, models.ErrorEvent{Type: models.FrameError, Message: "failed to send message"})
		return
	}

	// Echo confirmation back to the sender on their own session.
	h.hub.TrySend(ctx, userID, models.MessageEvent{Type: models.FrameMessageSent, Message: &msg})
}

func (h *SocketHandler) resolveToken(ctx context.Context, header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return h.auth.ResolveUserID(ctx, parts[1])
	}
	return "", errors.New("invalid token")
}

func publishSessionEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
