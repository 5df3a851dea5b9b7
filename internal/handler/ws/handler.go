package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MessageType constants
const (
	TypePing         = "ping"
	TypePong         = "pong"
	TypeRead         = "read"
	TypeReadAll      = "read_all"
	TypeNotification = "notification"
	TypeError        = "error"
	TypeSuccess      = "success"
)

// NotificationMarker marks notifications as read on behalf of a socket.
type NotificationMarker interface {
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Handler handles WebSocket messages.
type Handler struct {
	log           zerolog.Logger
	notifications NotificationMarker
}

// NewHandler creates a new WebSocket handler.
func NewHandler(log zerolog.Logger, notifications NotificationMarker) *Handler {
	return &Handler{log: log, notifications: notifications}
}

// Response represents a WebSocket response.
type Response struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Handle processes an incoming message from userID's socket and returns
// the reply to send back, if any.
func (h *Handler) Handle(ctx context.Context, userID uuid.UUID, msgType string, payload json.RawMessage) ([]byte, error) {
	h.log.Debug().
		Str("user_id", userID.String()).
		Str("type", msgType).
		Msg("Handling WebSocket message")

	switch msgType {
	case TypePing:
		return h.response(TypePong, map[string]string{
			"message": "pong",
		})

	case TypeRead:
		return h.handleRead(ctx, userID, payload)

	case TypeReadAll:
		n, err := h.notifications.MarkAllRead(ctx, userID)
		if err != nil {
			return h.errorResponse("failed to mark notifications read")
		}
		return h.response(TypeSuccess, map[string]interface{}{
			"type":    TypeReadAll,
			"updated": n,
		})

	default:
		return h.errorResponse("unknown message type: " + msgType)
	}
}

// ReadPayload names the notification to mark as read.
type ReadPayload struct {
	ID uuid.UUID `json:"id"`
}

func (h *Handler) handleRead(ctx context.Context, userID uuid.UUID, payload json.RawMessage) ([]byte, error) {
	var read ReadPayload
	if err := json.Unmarshal(payload, &read); err != nil || read.ID == uuid.Nil {
		return h.errorResponse("invalid read payload")
	}

	if err := h.notifications.MarkRead(ctx, userID, read.ID); err != nil {
		h.log.Warn().
			Err(err).
			Str("user_id", userID.String()).
			Msg("Failed to mark notification read")
		return h.errorResponse("notification not found")
	}
	return h.response(TypeSuccess, map[string]interface{}{
		"type": TypeRead,
		"id":   read.ID,
	})
}

// Notification wraps an already encoded notification for delivery.
func Notification(payload []byte) ([]byte, error) {
	return json.Marshal(Response{
		Type:    TypeNotification,
		Payload: json.RawMessage(payload),
	})
}

func (h *Handler) response(msgType string, payload interface{}) ([]byte, error) {
	resp := Response{
		Type:    msgType,
		Payload: payload,
	}
	return json.Marshal(resp)
}

func (h *Handler) errorResponse(message string) ([]byte, error) {
	return h.response(TypeError, map[string]string{
		"error": message,
	})
}
