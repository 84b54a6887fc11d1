package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

// WebSocketServer streams feed snapshots to connected clients after every
// update cycle.
type WebSocketServer struct {
	addr     string
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	updates chan []pricefeed.Snapshot

	ctx    context.Context
	cancel context.CancelFunc
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn            *websocket.Conn
	send            chan []byte
	server          *WebSocketServer
	subscribedAll   bool
	subscribedFeeds map[string]bool
	mu              sync.RWMutex
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type  string   `json:"type"`  // "subscribe", "unsubscribe", "ping"
	Feeds []string `json:"feeds"` // feed names, "*" for all
}

// FeedUpdateMessage is sent to clients.
type FeedUpdateMessage struct {
	Type      string               `json:"type"`      // "feed_update"
	Timestamp string               `json:"timestamp"` // ISO 8601 timestamp
	Feeds     []pricefeed.Snapshot `json:"feeds"`
}

// NewWebSocketServer creates a new WebSocket server.
func NewWebSocketServer(addr string, logger *logging.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketServer{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*WebSocketClient]bool),
		updates: make(chan []pricefeed.Snapshot, 100),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the WebSocket route.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start starts the WebSocket server and blocks until ctx is done or Stop is
// called.
func (s *WebSocketServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.broadcastUpdates()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server error", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.cancel()
	case <-s.ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the WebSocket server.
func (s *WebSocketServer) Stop() {
	s.cancel()
}

// Publish queues snapshots for delivery to subscribed clients.
func (s *WebSocketServer) Publish(snapshots []pricefeed.Snapshot) {
	select {
	case s.updates <- snapshots:
	case <-time.After(100 * time.Millisecond):
		s.logger.Warn("Update channel full, dropping feed update")
	}
}

// handleWebSocket handles new WebSocket connections.
func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &WebSocketClient{
		conn:            conn,
		send:            make(chan []byte, 256),
		server:          s,
		subscribedAll:   true,
		subscribedFeeds: make(map[string]bool),
	}

	s.registerClient(client)

	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr().String())
}

func (s *WebSocketServer) registerClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *WebSocketServer) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *WebSocketServer) broadcastUpdates() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case snapshots := <-s.updates:
			s.broadcast(snapshots)
		}
	}
}

// broadcast sends each client the snapshots it subscribed to.
func (s *WebSocketServer) broadcast(snapshots []pricefeed.Snapshot) {
	if len(snapshots) == 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		selected := client.filter(snapshots)
		if len(selected) == 0 {
			continue
		}

		data, err := json.Marshal(FeedUpdateMessage{
			Type:      "feed_update",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Feeds:     selected,
		})
		if err != nil {
			s.logger.Error("Failed to marshal feed update", "error", err)
			continue
		}

		select {
		case client.send <- data:
		default:
			s.logger.Warn("Client send buffer full, skipping update")
		}
	}
}

// writePump sends messages to the WebSocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// handleMessage processes client messages.
func (c *WebSocketClient) handleMessage(data []byte) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Feeds)
	case "unsubscribe":
		c.unsubscribe(msg.Feeds)
	case "ping":
		c.sendPong()
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

func (c *WebSocketClient) subscribe(feeds []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(feeds) == 0 || (len(feeds) == 1 && feeds[0] == "*") {
		c.subscribedAll = true
		c.subscribedFeeds = make(map[string]bool)
	} else {
		c.subscribedAll = false
		for _, feed := range feeds {
			c.subscribedFeeds[feed] = true
		}
	}

	c.server.logger.Debug("Client subscribed", "feeds", feeds)
	c.sendAck("subscribed")
}

func (c *WebSocketClient) unsubscribe(feeds []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(feeds) == 0 || (len(feeds) == 1 && feeds[0] == "*") {
		c.subscribedAll = false
		c.subscribedFeeds = make(map[string]bool)
	} else {
		for _, feed := range feeds {
			delete(c.subscribedFeeds, feed)
		}
	}

	c.server.logger.Debug("Client unsubscribed", "feeds", feeds)
	c.sendAck("unsubscribed")
}

// filter returns the snapshots this client subscribed to.
func (c *WebSocketClient) filter(snapshots []pricefeed.Snapshot) []pricefeed.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscribedAll {
		return snapshots
	}

	selected := make([]pricefeed.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if c.subscribedFeeds[snap.Name] {
			selected = append(selected, snap)
		}
	}
	return selected
}

func (c *WebSocketClient) sendPong() {
	c.sendAck("pong")
}

func (c *WebSocketClient) sendAck(msgType string) {
	data, _ := json.Marshal(map[string]string{"type": msgType})
	select {
	case c.send <- data:
	default:
	}
}
