package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coinboard/internal/infra"
	"coinboard/internal/present"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one websocket subscriber of the dashboard feed.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans dashboard frames out to websocket clients.
// New clients immediately receive the latest frame. Frames older than the
// latest (lower Seq) are ignored, and pending frames coalesce so the newest
// one is always delivered.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	wake       chan struct{}
	done       chan struct{}
	mu         sync.RWMutex
	latest     []byte
	latestSeq  uint64
	dirty      bool
	metrics    *infra.Metrics
	logger     *slog.Logger
}

// NewHub creates an idle hub; call Run to start it.
func NewHub(metrics *infra.Metrics) *Hub {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     slog.Default().With("module", "hub"),
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				h.metrics.DecrementClients()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.latest != nil {
				client.send <- h.latest
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.IncrementClients()
			h.logger.Info("Client connected", slog.String("client", client.id), slog.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.DecrementClients()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client disconnected", slog.String("client", client.id), slog.Int("total", total))

		case <-h.wake:
			h.mu.Lock()
			if !h.dirty {
				h.mu.Unlock()
				continue
			}
			data := h.latest
			h.dirty = false
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("Client too slow, dropping", slog.String("client", client.id))
					delete(h.clients, client)
					close(client.send)
					h.metrics.DecrementClients()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast publishes table as the latest frame unless a newer one was
// already published. Frames published before Run sends them are coalesced.
func (h *Hub) Broadcast(table present.Table) {
	data, err := json.Marshal(present.FeedMessage{Type: present.FeedTypeView, View: table})
	if err != nil {
		h.logger.Error("Failed to encode frame", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	if table.Seq != 0 && table.Seq < h.latestSeq {
		h.mu.Unlock()
		h.logger.Debug("Ignoring stale frame",
			slog.Uint64("seq", table.Seq),
			slog.Uint64("latest", h.latestSeq),
		)
		return
	}
	h.latest = data
	h.latestSeq = table.Seq
	h.dirty = true
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Latest returns the sequence number and encoded frame last published.
func (h *Hub) Latest() (uint64, []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latestSeq, h.latest
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump only drains control frames; the feed is server-push.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Websocket read error", slog.String("client", c.id), slog.Any("error", err))
			}
			return
		}
	}
}
