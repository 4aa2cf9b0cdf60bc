// Package live pushes committed feed changes to websocket clients.
package live

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"feed/internal/post"
)

const (
	PostCreated    = "post_created"
	PostUpdated    = "post_updated"
	PostDeleted    = "post_deleted"
	CommentCreated = "comment_created"
	CommentUpdated = "comment_updated"
	CommentDeleted = "comment_deleted"
	PostLiked      = "post_liked"
	PostUnliked    = "post_unliked"

	connected = "connected"
)

// Event describes one committed change.
type Event struct {
	Action    string        `json:"action"`
	PostID    int64         `json:"postId,omitempty"`
	CommentID int64         `json:"commentId,omitempty"`
	UserName  string        `json:"userName,omitempty"`
	Post      *post.Post    `json:"post,omitempty"`
	Comment   *post.Comment `json:"comment,omitempty"`
	Like      *post.Like    `json:"like,omitempty"`
}

// WSConnection serializes writes to one client; gorilla connections allow a
// single concurrent writer.
type WSConnection struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *WSConnection) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteJSON(v)
}

type Hub struct {
	cl       sync.Map // *WSConnection -> remote address
	events   chan Event
	done     chan struct{}
	once     sync.Once
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub starts the broadcast loop. Close stops it and disconnects clients.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
	go h.listenToEvents()
	return h
}

// Publish queues e for every connected client. It never blocks the caller:
// when the queue is full the event is dropped and logged.
func (h *Hub) Publish(e Event) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.events <- e:
	default:
		h.logger.Warn("live event dropped, queue full", "action", e.Action, "post_id", e.PostID)
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", "error", err)
		return
	}

	// Drop deadlines inherited from the HTTP server's timeouts.
	_ = ws.UnderlyingConn().SetDeadline(time.Time{})

	conn := &WSConnection{Conn: ws}
	h.cl.Store(conn, r.RemoteAddr)
	if err := conn.send(Event{Action: connected}); err != nil {
		h.drop(conn)
		return
	}
	h.logger.Info("live client connected", "remote", r.RemoteAddr)
	go h.listenToWs(conn)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	n := 0
	h.cl.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.cl.Range(func(key, _ any) bool {
			h.drop(key.(*WSConnection))
			return true
		})
	})
}

// listenToWs drains client frames until the connection fails; clients only
// receive.
func (h *Hub) listenToWs(conn *WSConnection) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) listenToEvents() {
	for {
		select {
		case <-h.done:
			return
		case e := <-h.events:
			h.broadcastToAll(e)
		}
	}
}

func (h *Hub) broadcastToAll(e Event) {
	h.cl.Range(func(key, _ any) bool {
		conn := key.(*WSConnection)
		if err := conn.send(e); err != nil {
			h.logger.Warn("websocket write failed", "error", err)
			h.drop(conn)
		}
		return true
	})
}

func (h *Hub) drop(conn *WSConnection) {
	if _, loaded := h.cl.LoadAndDelete(conn); loaded {
		_ = conn.Close()
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
