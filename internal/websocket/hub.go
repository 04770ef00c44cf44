// Package websocket pushes sync notifications to connected clients, such as
// a documentation dev server that reloads pages as docsync rewrites them.
//
// Clients only listen. Every message is a JSON encoded Message sent as a
// text frame. A client that cannot keep up is disconnected rather than
// allowed to stall the others.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/docsync/internal/logging"
)

const (
	writeTimeout    = 10 * time.Second
	sendBufferSize  = 64
	broadcastBuffer = 256
)

// ErrClosed is returned by Broadcast after Shutdown.
var ErrClosed = errors.New("websocket hub is shut down")

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// Hub tracks connected clients and fans messages out to them. The clients
// map is only mutated by the hub goroutine.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	originPatterns []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewHub starts a hub. originPatterns lists the hosts allowed to connect
// from another origin, in the syntax of path.Match; same-origin clients are
// always accepted.
func NewHub(logger logging.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:        make(map[*client]struct{}),
		broadcast:      make(chan []byte, broadcastBuffer),
		register:       make(chan *client, 32),
		unregister:     make(chan *client, 32),
		originPatterns: originPatterns,
		logger:         logger.WithComponent("websocket"),
		ctx:            ctx,
		cancel:         cancel,
	}
	go h.run()
	return h
}

// ServeHTTP upgrades the request and streams messages to the client until
// it disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		remote: r.RemoteAddr,
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	// CloseRead answers pings and cancels ctx once the client goes away.
	ctx := conn.CloseRead(h.ctx)
	h.writePump(ctx, c)
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	defer h.drop(c)

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "Dropping client after failed write", "remote", c.remote, "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug(h.ctx, "Client connected", "remote", c.remote, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug(h.ctx, "Client disconnected", "remote", c.remote, "clients", n)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn(h.ctx, nil, "Disconnecting slow client", "remote", c.remote)
					h.remove(c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
				_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg Message) error {
	if h.ctx.Err() != nil {
		return ErrClosed
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client. It is safe to call more than once.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(h.cancel)
}
