package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/config"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/logging"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/mqtt"
)

// WebSocket constants.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub manages WebSocket connections and broadcasts events.
// Channels are event types such as "game.ownership_changed"; "*" receives all.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex

	onCountChange func(float64)
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	userID        string // from the ticket
}

// wildcardChannel subscribes a client to every event type.
const wildcardChannel = "*"

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
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.countChanged(n)
	h.logger.Debug("websocket client connected", "user_id", client.userID, "clients", n)
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.countChanged(n)
	h.logger.Debug("websocket client disconnected", "user_id", client.userID, "clients", n)
}

func (h *Hub) countChanged(n int) {
	if h.onCountChange != nil {
		h.onCountChange(float64(n))
	}
}

// Broadcast sends an event to all clients subscribed to the given channel.
// Lock ordering: hub lock is acquired first, then released before per-client
// subscription checks. This avoids holding both hub and client locks simultaneously.
func (h *Hub) Broadcast(channel string, payload any) {
	msg := WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
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
		if client.isSubscribed(channel) {
			client.trySend(data)
			sentCount++
		}
	}
	if sentCount > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sentCount)
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
	h.countChanged(0)
}

// subscribeEventRelay subscribes to the broker's event topics and forwards
// each event to WebSocket clients subscribed to its type. With MQTT every
// instance sees every event, so the hub is fed from the broker rather than
// from the local bus.
func (s *Server) subscribeEventRelay() error {
	if s.mqtt == nil {
		return nil // local HubSink feeds the hub instead
	}

	topic := mqtt.Topics{}.AllEvents()
	s.logger.Info("subscribing to events for WebSocket relay", "topic", topic)
	return s.mqtt.Subscribe(topic, s.mqtt.QoS(), func(t string, payload []byte) error {
		eventType, ok := mqtt.EventTypeFromTopic(t)
		if !ok {
			return nil
		}

		var evt map[string]any
		if err := json.Unmarshal(payload, &evt); err != nil {
			s.logger.Warn("failed to parse event for WebSocket relay", "topic", t, "error", err)
			return nil
		}

		s.hub.Broadcast(eventType, evt)
		return nil
	})
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// Authentication is via ticket query parameter (obtained from POST /auth/ws-ticket).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket, time.Now())
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		userID:        entry.userID,
	}

	s.hub.Register(client)

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// wsTimings are the keepalive durations derived from the WebSocket config.
type wsTimings struct {
	ping     time.Duration // interval between server pings
	pongWait time.Duration // grace period for a pong or any client frame
}

func newWSTimings(cfg config.WebSocketConfig) wsTimings {
	return wsTimings{
		ping:     time.Duration(cfg.PingInterval) * time.Second,
		pongWait: time.Duration(cfg.PongTimeout) * time.Second,
	}
}

// readDeadline is when the connection is considered dead without traffic.
func (t wsTimings) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pongWait)
}

// readPump reads client frames until the connection fails, then unregisters.
// Any client frame extends the deadline, so browsers that never answer
// protocol pings stay connected while they keep talking.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // already tearing down
	}()

	timings := newWSTimings(cfg)
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces on the next read
	c.conn.SetReadDeadline(timings.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(timings.readDeadline())
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces on the next read
		c.conn.SetReadDeadline(timings.readDeadline())
		c.dispatch(frame)
	}
}

// writePump drains the send queue and pings on an interval. It exits when the
// hub closes the queue or a write fails.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	timings := newWSTimings(cfg)
	ticker := time.NewTicker(timings.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // already tearing down
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // the write below reports a dead connection
		c.conn.SetWriteDeadline(time.Now().Add(timings.pongWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, open := <-c.send:
			if !open {
				write(websocket.CloseMessage, nil) //nolint:errcheck // best-effort goodbye
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// wsInbound is a client frame with its payload left undecoded until the
// message type is known.
type wsInbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// dispatch routes one client frame.
func (c *WSClient) dispatch(frame []byte) {
	var in wsInbound
	if err := json.Unmarshal(frame, &in); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch in.Type {
	case WSTypeSubscribe:
		c.changeSubscriptions(in, true)
	case WSTypeUnsubscribe:
		c.changeSubscriptions(in, false)
	case WSTypePing:
		c.reply(in.ID, WSTypePong, nil)
	default:
		c.reply(in.ID, WSTypeError, errorPayload("unknown message type: "+in.Type))
	}
}

// changeSubscriptions adds or removes the channels named in the payload and
// acknowledges with the channels it touched.
func (c *WSClient) changeSubscriptions(in wsInbound, add bool) {
	var sub WSSubscribePayload
	if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &sub) != nil {
		c.reply(in.ID, WSTypeError, errorPayload("invalid "+in.Type+" payload"))
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if add {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if add {
		key = "subscribed"
		c.hub.logger.Debug("websocket client subscribed", "user_id", c.userID, "channels", sub.Channels)
	}
	c.reply(in.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}

// trySend queues data for the write pump. A full queue drops the frame for
// this slow client; a queue closed by a concurrent disconnect is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on a queue the hub just closed
	}()

	select {
	case c.send <- data:
	default:
	}
}

// isSubscribed reports whether the client receives events on channel.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, all := c.subscriptions[wildcardChannel]; all {
		return true
	}
	_, ok := c.subscriptions[channel]
	return ok
}

// reply queues a direct answer to the client.
func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}
