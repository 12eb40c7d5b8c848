package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/pkg/ws"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Origins are enforced by the CORS middleware and the token, not here.
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub        *ws.Hub
	jwtSecret  string
	revoked    middleware.RevocationChecker
	pingPeriod time.Duration
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string, revoked middleware.RevocationChecker) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		jwtSecret:  jwtSecret,
		revoked:    revoked,
		pingPeriod: pingPeriod,
	}
}

// Handle attaches a signed-in user's connection to the event hub. Events
// (signed_in, signed_out, site_activated) are pushed by the hub.
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := middleware.Authenticate(c.Request.Context(), token, h.jwtSecret, h.revoked)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	client := &ws.Client{UserID: claims.UserID, Conn: conn}
	h.hub.Register(client)

	done := make(chan struct{})
	go h.keepAlive(conn, done)
	go func() {
		defer func() {
			close(done)
			h.hub.Unregister(client)
			conn.Close()
		}()
		h.drain(conn)
	}()
}

// drain discards client frames until the peer goes away or stops
// answering pings.
func (h *WebSocketHandler) drain(conn *websocket.Conn) {
	wait := h.pingPeriod * 10 / 9
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
