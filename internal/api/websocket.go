package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trade-journal/internal/events"
	"trade-journal/internal/logging"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsSendBufferSize = 64
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	hub    *WSHub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// WSHub fans events out to connected clients. Events carrying a user ID go
// only to that user's connections; the rest are broadcast.
type WSHub struct {
	mu          sync.RWMutex
	clients     map[*wsClient]bool
	userClients map[string]map[*wsClient]bool

	register   chan *wsClient
	unregister chan *wsClient
	logger     *logging.Logger
}

// NewWSHub creates a websocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:     make(map[*wsClient]bool),
		userClients: make(map[string]map[*wsClient]bool),
		register:    make(chan *wsClient),
		unregister:  make(chan *wsClient),
		logger:      logging.WithComponent("websocket"),
	}
}

// Run processes client registration until the process exits
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.userClients[client.userID] == nil {
				h.userClients[client.userID] = make(map[*wsClient]bool)
			}
			h.userClients[client.userID][client] = true
			h.mu.Unlock()
			h.logger.Debug("Websocket client connected", "user_id", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				delete(h.userClients[client.userID], client)
				if len(h.userClients[client.userID]) == 0 {
					delete(h.userClients, client.userID)
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Websocket client disconnected", "user_id", client.userID)
		}
	}
}

// AttachBus routes every bus event into the hub
func (h *WSHub) AttachBus(bus *events.EventBus) {
	bus.SubscribeAll(func(event events.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		if event.UserID == "" {
			h.broadcast(payload)
			return
		}
		h.sendToUser(event.UserID, payload)
	})
}

func (h *WSHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// slow consumer, drop the frame
		}
	}
}

func (h *WSHub) sendToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.userClients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// handleWebSocket upgrades a connection. The JWT comes in as a query
// parameter because browsers cannot set headers on websocket dials.
func (s *Server) handleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "token query parameter is required"})
		return
	}
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "invalid token"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.hub.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		hub:    s.hub,
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan []byte, wsSendBufferSize),
	}
	s.hub.register <- client

	go client.writeLoop()
	go client.readLoop()
}

// readLoop drains inbound frames so pongs are processed; clients have
// nothing to say to us
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
