// Package realtime pushes change notifications to connected websocket
// clients.  Clients treat every message as a signal to re-fetch the
// range they are displaying.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iliyamo/team-presence/internal/queue"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message is the frame sent to clients.
type Message struct {
	Type   string `json:"type"`
	Table  string `json:"table,omitempty"`
	Op     string `json:"op,omitempty"`
	UserID uint64 `json:"user_id,omitempty"`
	Date   string `json:"date,omitempty"`
}

// InvalidateMessage converts a change event into the client frame.
func InvalidateMessage(ev queue.ChangeEvent) Message {
	return Message{Type: "invalidate", Table: ev.Table, Op: ev.Op, UserID: ev.UserID, Date: ev.Date}
}

type client struct {
	id     string
	userID uint64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks connected clients.  Registration, removal and broadcast
// all go through the Run goroutine, so the client set needs no lock.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	clients    map[*client]struct{}
	count      atomic.Int64
}

// NewHub returns a Hub.  Call Run before serving connections.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients authenticate with a bearer token, not cookies.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					log.Printf("realtime: dropping slow client %s (user %d)", c.id, c.userID)
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Broadcast queues an invalidation for every connected client.
func (h *Hub) Broadcast(ev queue.ChangeEvent) {
	payload, err := json.Marshal(InvalidateMessage(ev))
	if err != nil {
		log.Printf("realtime: marshal message failed: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// Serve upgrades the request and blocks until the client disconnects
// or the hub stops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{id: uuid.NewString(), userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go c.writePump()
	c.readPump()

	select {
	case h.unregister <- c:
	case <-h.done:
	}
	return nil
}

// readPump discards client frames; it exists to process control
// frames and notice disconnects.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: client %s read failed: %v", c.id, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
