package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"laptop-checkpoint/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	EventID   string      `json:"eventId,omitempty"`
}

// feedClient is a single live-feed subscriber
type feedClient struct {
	id         string
	conn       *websocket.Conn
	send       chan WebSocketMessage
	remoteAddr string
	userID     string
}

// Hub fans created log entries out to websocket subscribers. Subscribers only
// receive; anything they send is discarded.
type Hub struct {
	clients    map[string]*feedClient
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *logrus.Entry
	broadcast  chan WebSocketMessage
	register   chan *feedClient
	unregister chan *feedClient
	done       chan struct{}
	stopOnce   sync.Once
	sequence   uint64

	pingInterval   time.Duration
	pongTimeout    time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	maxClients     int
}

// NewHub creates a live feed hub. Call Start before serving connections.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:         logging.NewServiceLogger(logger, "live-feed"),
		broadcast:      make(chan WebSocketMessage, 256),
		register:       make(chan *feedClient),
		unregister:     make(chan *feedClient),
		done:           make(chan struct{}),
		pingInterval:   30 * time.Second,
		pongTimeout:    60 * time.Second,
		writeTimeout:   10 * time.Second,
		maxMessageSize: 512,
		maxClients:     100,
	}
}

// Start runs the hub loop until the context ends or Stop is called
func (hub *Hub) Start(ctx context.Context) {
	hub.logger.Info("Starting live log feed")
	go hub.run(ctx)
}

// Stop closes every subscriber and ends the hub loop. Safe to call twice.
func (hub *Hub) Stop() {
	hub.stopOnce.Do(func() {
		hub.logger.Info("Stopping live log feed")
		close(hub.done)
	})
}

func (hub *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(hub.pingInterval)
	defer ticker.Stop()
	defer hub.closeAll()

	for {
		select {
		case <-ctx.Done():
			hub.Stop()
			return
		case <-hub.done:
			return
		case client := <-hub.register:
			hub.registerClient(client)
		case client := <-hub.unregister:
			hub.unregisterClient(client)
		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		case <-ticker.C:
			hub.pingClients()
		}
	}
}

func (hub *Hub) registerClient(client *feedClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if len(hub.clients) >= hub.maxClients {
		hub.logger.WithField("connectionId", client.id).Warn("Maximum WebSocket connections reached")
		close(client.send)
		return
	}

	hub.clients[client.id] = client
	hub.logger.WithFields(logrus.Fields{
		"connectionId": client.id,
		"remoteAddr":   client.remoteAddr,
		"userId":       client.userID,
		"totalConns":   len(hub.clients),
	}).Info("WebSocket connection registered")

	welcome := WebSocketMessage{
		Type:      "welcome",
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"connectionId": client.id,
			"serverTime":   time.Now().UTC(),
		},
	}

	select {
	case client.send <- welcome:
	default:
		hub.logger.WithField("connectionId", client.id).Warn("Failed to send welcome message")
	}
}

func (hub *Hub) unregisterClient(client *feedClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if _, exists := hub.clients[client.id]; exists {
		delete(hub.clients, client.id)
		close(client.send)

		hub.logger.WithFields(logrus.Fields{
			"connectionId": client.id,
			"totalConns":   len(hub.clients),
		}).Info("WebSocket connection unregistered")
	}
}

func (hub *Hub) closeAll() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for id, client := range hub.clients {
		delete(hub.clients, id)
		close(client.send)
	}
}

func (hub *Hub) broadcastMessage(message WebSocketMessage) {
	hub.mutex.RLock()
	var stalled []*feedClient
	for _, client := range hub.clients {
		select {
		case client.send <- message:
		default:
			stalled = append(stalled, client)
		}
	}
	total := len(hub.clients)
	hub.mutex.RUnlock()

	// A subscriber that cannot keep up is dropped
	for _, client := range stalled {
		hub.logger.WithField("connectionId", client.id).Warn("Connection buffer full, closing")
		hub.unregisterClient(client)
	}

	hub.logger.WithFields(logrus.Fields{
		"messageType": message.Type,
		"sentCount":   total - len(stalled),
	}).Debug("Message broadcasted to WebSocket connections")
}

func (hub *Hub) pingClients() {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	for _, client := range hub.clients {
		client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(hub.writeTimeout))
	}
}

// BroadcastEvent queues an event for every subscriber. A full queue drops the event.
func (hub *Hub) BroadcastEvent(eventType string, data interface{}) {
	message := WebSocketMessage{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
		EventID:   fmt.Sprintf("evt_%d", atomic.AddUint64(&hub.sequence, 1)),
	}

	select {
	case hub.broadcast <- message:
	default:
		hub.logger.WithField("eventType", eventType).Warn("Broadcast channel full, dropping message")
	}
}

// ConnectionCount returns the current number of subscribers
func (hub *Hub) ConnectionCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

// ServeWS upgrades the request and subscribes the connection to the feed
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &feedClient{
		id:         fmt.Sprintf("conn_%d", time.Now().UnixNano()),
		conn:       conn,
		send:       make(chan WebSocketMessage, 64),
		remoteAddr: getClientIP(r),
		userID:     userID,
	}

	conn.SetReadLimit(hub.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(hub.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(hub.pongTimeout))
		return nil
	})

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return fmt.Errorf("live feed is stopped")
	}

	go hub.writePump(client)
	go hub.readPump(client)
	return nil
}

func (hub *Hub) writePump(client *feedClient) {
	defer client.conn.Close()

	for message := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(hub.writeTimeout))
		if err := client.conn.WriteJSON(message); err != nil {
			hub.logger.WithError(err).WithField("connectionId", client.id).Warn("Failed to write WebSocket message")
			hub.drop(client)
			return
		}
	}

	// send was closed by the hub
	client.conn.SetWriteDeadline(time.Now().Add(hub.writeTimeout))
	client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (hub *Hub) readPump(client *feedClient) {
	defer hub.drop(client)

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.WithError(err).WithField("connectionId", client.id).Debug("WebSocket connection closed")
			}
			return
		}
	}
}

func (hub *Hub) drop(client *feedClient) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

// LogFeed handles GET /logs/ws
func (h *Handlers) LogFeed(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		userID = claims.Subject
	}

	if err := h.hub.ServeWS(w, r, userID); err != nil {
		h.log.WithError(err).Warn("Failed to open live feed")
	}
}
