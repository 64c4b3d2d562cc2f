package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/parley-core/internal/auth"
	"github.com/nerrad567/parley-core/internal/chat"
	"github.com/nerrad567/parley-core/internal/infrastructure/config"
	"github.com/nerrad567/parley-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/parley-core/internal/infrastructure/logging"
)

// Frame types. The protocol is JSON, shaped after STOMP commands: clients
// connect once, then subscribe to topics and send to application
// destinations.
const (
	FrameConnect     = "connect"
	FrameConnected   = "connected"
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSend        = "send"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameReceipt     = "receipt"
	FrameMessage     = "message"
	FrameError       = "error"
)

// wsSendBufferSize is the per-client outbound message buffer size.
const wsSendBufferSize = 256

// Frame is a single WebSocket protocol frame.
type Frame struct {
	Type        string            `json:"type"`
	ID          string            `json:"id,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Destination string            `json:"destination,omitempty"`
	Body        string            `json:"body,omitempty"`
	Timestamp   string            `json:"timestamp,omitempty"`
	Payload     any               `json:"payload,omitempty"`
}

// Hub manages WebSocket connections and fans frames out to subscribers.
//
// It also implements chat.Notifier, so every stored message reaches
// subscribed clients through the same path whether it arrived over REST or
// over a send frame.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	metrics *influxdb.Client // optional
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	srv           *Server
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	// user is set by the connect frame and never changes afterwards.
	// Token expiry mid-connection does not drop the connection; clients
	// re-authenticate on reconnect. Revisit if sessions need hard expiry.
	user       *auth.User
	registered bool
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, metrics *influxdb.Client) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds an authenticated client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	count := h.ClientCount()
	h.logger.Debug("websocket client connected", "user_id", client.user.ID, "clients", count)
	if h.metrics != nil {
		h.metrics.WriteConnectionMetric(count)
	}
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}

	count := h.ClientCount()
	h.logger.Debug("websocket client disconnected", "clients", count)
	if h.metrics != nil {
		h.metrics.WriteConnectionMetric(count)
	}
}

// MessageSent broadcasts a stored chat message to its topic.
// Implements chat.Notifier.
func (h *Hub) MessageSent(m *chat.Message) {
	h.Broadcast(chatMessageTopic(m.ChatID), m)
}

// Broadcast sends a message frame to all clients subscribed to the topic.
// Lock ordering: hub lock is acquired first, then released before per-client
// subscription checks. This avoids holding both hub and client locks simultaneously.
func (h *Hub) Broadcast(topic string, payload any) {
	frame := Frame{
		Type:        FrameMessage,
		Destination: topic,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Payload:     payload,
	}

	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal broadcast frame", "error", err)
		return
	}

	// Snapshot client list under hub lock, then release before sending
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sentCount := 0
	for _, client := range clients {
		if client.isSubscribed(topic) {
			client.trySend(data)
			sentCount++
		}
	}
	if sentCount > 0 {
		h.logger.Debug("broadcast sent", "topic", topic, "recipients", sentCount)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// chatMessageTopic returns the broadcast topic for a chat's messages.
func chatMessageTopic(chatID string) string {
	return "/topic/chats/" + chatID + "/messages"
}

// chatTopicID extracts the chat ID from a /topic/chats/{id}/... destination.
// Destinations outside the chats namespace return ok=false and are not
// membership-gated.
func chatTopicID(destination string) (string, bool) {
	const prefix = "/topic/chats/"
	if !strings.HasPrefix(destination, prefix) {
		return "", false
	}
	rest := destination[len(prefix):]
	id, _, found := strings.Cut(rest, "/")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// chatSendID extracts the chat ID from an /app/chats/{id}/messages
// destination. Any other send destination is invalid.
func chatSendID(destination string) (string, bool) {
	const prefix = "/app/chats/"
	rest, found := strings.CutPrefix(destination, prefix)
	if !found {
		return "", false
	}
	id, tail, found := strings.Cut(rest, "/")
	if !found || id == "" || tail != "messages" {
		return "", false
	}
	return id, true
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
//
// The route itself is unauthenticated; the first frame must be a connect
// frame carrying a bearer token, validated in the read pump. Until that
// succeeds the client is not registered with the hub and receives no
// broadcasts.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		srv:           s,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}

	// Pumps start before authentication so the connect handshake and its
	// error frames flow through the normal write path.
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads frames from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		if c.registered {
			c.hub.Unregister(c)
		} else {
			close(c.send)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client frame resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		if !c.handleFrame(message) {
			return
		}
	}
}

// writePump writes frames to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame processes an incoming frame. It returns false when the
// connection must close (unauthenticated traffic or a failed connect).
func (c *WSClient) handleFrame(data []byte) bool {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError("", "invalid JSON frame")
		return c.user != nil
	}

	// Everything before a successful connect closes the connection.
	if c.user == nil {
		if frame.Type != FrameConnect {
			c.sendError(frame.ID, "connect frame required")
			return false
		}
		return c.handleConnect(frame)
	}

	switch frame.Type {
	case FrameConnect:
		c.sendError(frame.ID, "already connected")
	case FrameSubscribe:
		c.handleSubscribe(frame)
	case FrameUnsubscribe:
		c.handleUnsubscribe(frame)
	case FrameSend:
		c.handleSend(frame)
	case FramePing:
		c.sendFrame(Frame{Type: FramePong, ID: frame.ID})
	default:
		c.sendError(frame.ID, "unknown frame type: "+frame.Type)
	}
	return true
}

// handleConnect authenticates the connection from the frame's bearer token.
// On failure an error frame is queued and the connection closes.
func (c *WSClient) handleConnect(frame Frame) bool {
	header := frame.Headers["Authorization"]
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		c.sendError(frame.ID, "missing bearer token")
		return false
	}

	userID, err := c.srv.authority.Verify(header[len(prefix):])
	if err != nil {
		c.sendError(frame.ID, "invalid or expired token")
		return false
	}

	user, err := c.srv.users.GetByID(context.Background(), userID)
	if err != nil || !user.Enabled {
		c.sendError(frame.ID, "invalid or expired token")
		return false
	}

	c.user = user
	c.registered = true
	c.hub.Register(c)

	c.sendFrame(Frame{
		Type: FrameConnected,
		ID:   frame.ID,
		Payload: map[string]any{
			"user_id":  user.ID,
			"nickname": user.Nickname,
		},
	})
	return true
}

// handleSubscribe adds a topic to the client's subscription set.
// Chat topics require membership; a denial is an error frame referencing
// the subscribe frame's id, and the connection stays open.
func (c *WSClient) handleSubscribe(frame Frame) {
	if frame.Destination == "" {
		c.sendError(frame.ID, "destination is required")
		return
	}

	if chatID, ok := chatTopicID(frame.Destination); ok {
		member, err := c.srv.members.IsMember(context.Background(), chatID, c.user.ID)
		if err != nil {
			c.hub.logger.Error("subscription membership check failed", "error", err, "chat_id", chatID)
			c.sendError(frame.ID, "subscription failed")
			return
		}
		if !member {
			c.sendError(frame.ID, "not a member of this chat")
			return
		}
	}

	c.mu.Lock()
	c.subscriptions[frame.Destination] = struct{}{}
	c.mu.Unlock()

	c.hub.logger.Info("websocket client subscribed", "user_id", c.user.ID, "destination", frame.Destination)

	c.sendFrame(Frame{
		Type:        FrameReceipt,
		ID:          frame.ID,
		Destination: frame.Destination,
	})
}

// handleUnsubscribe removes a topic from the client's subscription set.
func (c *WSClient) handleUnsubscribe(frame Frame) {
	if frame.Destination == "" {
		c.sendError(frame.ID, "destination is required")
		return
	}

	c.mu.Lock()
	delete(c.subscriptions, frame.Destination)
	c.mu.Unlock()

	c.sendFrame(Frame{
		Type:        FrameReceipt,
		ID:          frame.ID,
		Destination: frame.Destination,
	})
}

// handleSend persists a message through the chat service and lets the hub
// broadcast the stored row to the chat's message topic. The sender receives
// the broadcast like any other subscriber; the receipt only confirms
// storage.
func (c *WSClient) handleSend(frame Frame) {
	chatID, ok := chatSendID(frame.Destination)
	if !ok {
		c.sendError(frame.ID, "invalid send destination")
		return
	}

	message, err := c.srv.chats.SendMessage(context.Background(), c.user, chatID, frame.Body)
	if err != nil {
		c.sendError(frame.ID, sendFailureMessage(err))
		return
	}

	if c.srv.influx != nil {
		c.srv.influx.WriteMessageMetric(chatID, len(frame.Body))
	}

	c.sendFrame(Frame{
		Type:    FrameReceipt,
		ID:      frame.ID,
		Payload: map[string]any{"message_id": message.ID},
	})
}

// sendFailureMessage maps a send error to a client-safe string.
func sendFailureMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrNotMember):
		return "not a member of this chat"
	case errors.Is(err, chat.ErrInvalidContent):
		return "invalid message content"
	default:
		return "failed to send message"
	}
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// isSubscribed checks if the client is subscribed to a topic.
func (c *WSClient) isSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

// sendFrame sends a frame to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendFrame(frame Frame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error frame referencing the offending frame's id.
func (c *WSClient) sendError(id, message string) {
	c.sendFrame(Frame{
		Type:    FrameError,
		ID:      id,
		Payload: map[string]string{"message": message},
	})
}
