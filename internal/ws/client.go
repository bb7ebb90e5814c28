package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sketchroom/backend/internal/canvas"
	"github.com/sketchroom/backend/internal/protocol"
	"github.com/sketchroom/backend/internal/ratelimit"
	"github.com/sketchroom/backend/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
	sendBufferSize = 512

	messagesPerSecond = 200
	messageBurst      = 400
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client binds one WebSocket connection to its session identity. roomID is
// only touched by the hub's event loop after registration.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	id          string
	user        *canvas.User
	roomID      string
	rateLimiter *ratelimit.Limiter

	sendMu     sync.Mutex
	sendClosed bool
}

// trySend queues a frame without blocking. Returns false if the client has
// been closed or its buffer is full. Events for a dropped client can still
// arrive from its read pump until the connection unwinds, so sending must
// stay safe after closeSend.
func (c *Client) trySend(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ServeWs upgrades an HTTP request and hands the connection to the hub.
// The optional username query parameter seeds the display name.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "error", err)
		return
	}

	sessionID := uuid.NewString()
	user := &canvas.User{
		ID:     sessionID,
		Name:   displayName(r.URL.Query().Get("username")),
		Color:  nextColor(),
		RoomID: room.DefaultRoom,
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          sessionID,
		user:        user,
		roomID:      room.DefaultRoom,
		rateLimiter: ratelimit.NewLimiter(messagesPerSecond, messageBurst),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	rateLimitWarnings := 0

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read", "client", c.id, "error", err)
			}
			break
		}

		if !c.rateLimiter.Allow() {
			rateLimitWarnings++
			if rateLimitWarnings%100 == 1 {
				slog.Warn("rate limit exceeded", "client", c.id, "warnings", rateLimitWarnings)
			}
			if rateLimitWarnings > 1000 {
				slog.Warn("disconnecting client for excessive rate limit violations", "client", c.id)
				return
			}
			continue
		}

		// Malformed frames are dropped without a reply; a hostile client
		// gets no probe surface out of them.
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			continue
		}

		c.hub.inbound <- inboundEvent{client: c, env: env}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
