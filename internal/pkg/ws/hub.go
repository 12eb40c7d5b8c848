package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
)

// Hub tracks the open event streams of signed-in users. A user may hold
// several connections at once (tabs, devices).
type Hub struct {
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
	log     *zap.Logger
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	mu     sync.Mutex
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	h.log.Debug("ws connected",
		zap.Int64("user_id", client.UserID),
		zap.Int("user_conns", len(h.clients[client.UserID])),
	)
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.log.Debug("ws disconnected", zap.Int64("user_id", client.UserID))
}

const writeTimeout = 10 * time.Second

// Write sends one frame, serialized with other writers on the same connection.
func (c *Client) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// SendToUser writes msg to every connection of the user. Offline users are
// not an error; a connection that fails the write is dropped.
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.Write(data); err != nil {
			h.log.Warn("ws write failed, dropping connection", zap.Int64("user_id", userID), zap.Error(err))
			h.Unregister(c)
			c.Conn.Close()
		}
	}
	return nil
}

// Dispatch forwards a user event from pub/sub to the user's connections.
func (h *Hub) Dispatch(ev *pubsub.UserEvent) {
	if ev == nil || ev.UserID == 0 {
		return
	}
	_ = h.SendToUser(ev.UserID, &Message{Type: ev.Type, Data: ev})
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[userID]
	return ok && len(conns) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

// CloseAll sends a going-away frame to every connection and forgets them.
// Hijacked connections are not closed by http.Server.Shutdown.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	var clients []*Client
	for _, conns := range h.clients {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.clients = make(map[int64]map[*Client]struct{})
	h.mu.Unlock()

	frame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		c.mu.Lock()
		_ = c.Conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(time.Second))
		c.mu.Unlock()
		c.Conn.Close()
	}
	return len(clients)
}
