// Package monitoring streams training progress to websocket clients.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MessageType identifies the payload carried by a Message.
type MessageType string

const (
	RunStarted  MessageType = "run_started"
	RoundReport MessageType = "round_report"
	RunFinished MessageType = "run_finished"
	Heartbeat   MessageType = "heartbeat"
)

var ErrNotRunning = errors.New("monitor is not running")

// Message is the envelope sent to clients. Topic is the run id.
type Message struct {
	Type      MessageType     `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// ClientMessage is what clients send. Type is "subscribe" or "unsubscribe";
// anything else is ignored.
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// Client is one websocket connection. A client without subscriptions
// receives every topic.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string

	mu            sync.RWMutex
	subscriptions map[string]bool
}

func (c *Client) wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions) == 0 || topic == "" || c.subscriptions[topic]
}

type outbound struct {
	topic   string
	payload []byte
}

// WebSocketHub owns the client set and fans broadcasts out to it.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start runs the hub loop until Stop is called.
func (h *WebSocketHub) Start() {
	defer h.logger.Debug("websocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client_id", client.clientID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client_id", client.clientID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(message.topic) {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *WebSocketHub) Stop() {
	h.cancel()
}

func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and attaches a new client.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:          conn,
		send:          make(chan []byte, 256),
		clientID:      uuid.NewString(),
		subscriptions: make(map[string]bool),
	}
	if topic := r.URL.Query().Get("run"); topic != "" {
		client.subscriptions[topic] = true
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

// Broadcast queues payload for every client subscribed to topic. The message
// is dropped when the queue is full.
func (h *WebSocketHub) Broadcast(topic string, payload []byte) {
	select {
	case h.broadcast <- outbound{topic: topic, payload: payload}:
	default:
		h.logger.Warn("websocket broadcast queue is full, dropping message", zap.String("topic", topic))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(h *WebSocketHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", c.clientID), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid client message", zap.String("client_id", c.clientID), zap.Error(err))
			continue
		}
		c.handleClientMessage(msg)
	}
}

func (c *Client) handleClientMessage(msg ClientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case "subscribe":
		c.subscriptions[msg.Topic] = true
	case "unsubscribe":
		delete(c.subscriptions, msg.Topic)
	}
}

// MonitorStats counts what the monitor has sent.
type MonitorStats struct {
	ConnectedClients int           `json:"connected_clients"`
	MessagesSent     int64         `json:"messages_sent"`
	StartTime        time.Time     `json:"start_time"`
	LastMessageTime  time.Time     `json:"last_message_time"`
	Uptime           time.Duration `json:"uptime"`
}

// RealtimeMonitor wraps the hub with typed publishing and statistics.
type RealtimeMonitor struct {
	hub     *WebSocketHub
	logger  *zap.Logger
	mu      sync.RWMutex
	running bool
	stats   MonitorStats
}

func NewRealtimeMonitor(logger *zap.Logger) *RealtimeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeMonitor{
		hub:    NewWebSocketHub(logger),
		logger: logger,
	}
}

func (m *RealtimeMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("monitor is already running")
	}
	go m.hub.Start()
	m.running = true
	m.stats.StartTime = time.Now()
	m.logger.Info("realtime monitor started")
	return nil
}

func (m *RealtimeMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}
	m.running = false
	m.hub.Stop()
	m.logger.Info("realtime monitor stopped")
	return nil
}

// Publish wraps data in a Message and broadcasts it to clients of topic.
func (m *RealtimeMonitor) Publish(msgType MessageType, topic string, data interface{}) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", msgType)
	}
	message, err := json.Marshal(Message{
		Type:      msgType,
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      payload,
		ID:        uuid.NewString(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	m.hub.Broadcast(topic, message)
	m.mu.Lock()
	m.stats.MessagesSent++
	m.stats.LastMessageTime = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *RealtimeMonitor) SendHeartbeat() error {
	return m.Publish(Heartbeat, "", map[string]string{"status": "alive"})
}

func (m *RealtimeMonitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := m.stats
	if m.running {
		stats.Uptime = time.Since(stats.StartTime)
	}
	stats.ConnectedClients = m.hub.ClientCount()
	return stats
}

func (m *RealtimeMonitor) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	m.hub.HandleWebSocket(w, r)
}
