package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	wshandler "github.com/windfall/lingo_service/internal/handler/ws"
	"github.com/windfall/lingo_service/internal/middleware"
	"github.com/windfall/lingo_service/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	messageTimeout = 10 * time.Second
	resubscribeGap = time.Second
)

// WebSocketMessage represents a WebSocket message.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PubSub carries notifications between server instances.
type PubSub interface {
	Publish(ctx context.Context, channel string, value interface{}) error
	Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error
}

// Client represents a WebSocket client.
type Client struct {
	ID     string
	UserID uuid.UUID
	Hub    *WebSocketHub
	Conn   *websocket.Conn
	Send   chan []byte
}

type delivery struct {
	userID  uuid.UUID
	message []byte
}

// WebSocketHub manages the notification sockets of connected users. It
// implements service.Broadcaster: with a PubSub, notifications go through
// it so that every instance delivers to its own sockets.
type WebSocketHub struct {
	clients    map[uuid.UUID]map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	pubsub     PubSub
	handler    *wshandler.Handler
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewWebSocketHub creates a new WebSocket hub. pubsub may be nil, in which
// case notifications are delivered in process only.
func NewWebSocketHub(log zerolog.Logger, pubsub PubSub, allowedOrigins []string) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		pubsub:     pubsub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r.Header.Get("Origin"), allowedOrigins)
			},
		},
		log: log,
	}
}

// SetHandler sets the handler for client messages. It must be called
// before Run; the notification service both broadcasts through the hub and
// serves its read messages.
func (h *WebSocketHub) SetHandler(handler *wshandler.Handler) {
	h.handler = handler
}

// originAllowed accepts clients without an Origin header, such as the
// mobile apps.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Run starts the WebSocket hub.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	if h.pubsub != nil {
		go h.listen(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("WebSocket hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			h.log.Info().
				Str("client_id", client.ID).
				Str("user_id", client.UserID.String()).
				Msg("Client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.Info().Str("client_id", client.ID).Msg("Client disconnected")

		case d := <-h.deliver:
			h.mu.Lock()
			for client := range h.clients[d.userID] {
				select {
				case client.Send <- d.message:
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *WebSocketHub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.remove(client)
		}
	}
}

// listen relays notifications published by any instance to local sockets.
func (h *WebSocketHub) listen(ctx context.Context) {
	pattern := service.NotificationChannelPrefix + "*"
	for {
		err := h.pubsub.Subscribe(ctx, pattern, func(channel string, payload []byte) {
			userID, err := uuid.Parse(strings.TrimPrefix(channel, service.NotificationChannelPrefix))
			if err != nil {
				h.log.Warn().Str("channel", channel).Msg("Ignoring message on unknown channel")
				return
			}
			if err := h.Deliver(ctx, userID, payload); err != nil && ctx.Err() == nil {
				h.log.Error().Err(err).Msg("Failed to deliver notification")
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.log.Error().Err(err).Msg("Notification subscription failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeGap):
		}
	}
}

// Publish sends value to the user that owns channel.
func (h *WebSocketHub) Publish(ctx context.Context, channel string, value interface{}) error {
	if h.pubsub != nil {
		return h.pubsub.Publish(ctx, channel, value)
	}

	userID, err := uuid.Parse(strings.TrimPrefix(channel, service.NotificationChannelPrefix))
	if err != nil {
		return errors.InternalWrap("invalid notification channel", err)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.InternalWrap("failed to encode notification", err)
	}
	return h.Deliver(ctx, userID, payload)
}

// Deliver queues an encoded notification for the user's sockets on this
// instance.
func (h *WebSocketHub) Deliver(ctx context.Context, userID uuid.UUID, payload []byte) error {
	message, err := wshandler.Notification(payload)
	if err != nil {
		return errors.InternalWrap("failed to encode notification", err)
	}
	select {
	case h.deliver <- delivery{userID: userID, message: message}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWebSocket handles WebSocket upgrade and connection. The route is
// mounted behind the query token auth.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		middleware.WriteError(w, r, errors.Unauthorized("missing user").WithMessageID("auth.missing_token"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected sockets.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Error().Err(err).Msg("WebSocket read error")
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Hub.log.Error().Err(err).Msg("Failed to parse WebSocket message")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
		response, err := c.Hub.handler.Handle(ctx, c.UserID, msg.Type, msg.Payload)
		cancel()
		if err != nil {
			c.Hub.log.Error().Err(err).Str("type", msg.Type).Msg("Failed to handle message")
			continue
		}

		if response != nil {
			c.Hub.mu.RLock()
			registered := c.Hub.clients[c.UserID][c]
			if registered {
				select {
				case c.Send <- response:
				default:
				}
			}
			c.Hub.mu.RUnlock()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
