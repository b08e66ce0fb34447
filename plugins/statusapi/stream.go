package statusapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// stream upgrades to a WebSocket that receives the current state, then every
// change. Clients never send anything but control frames.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", log.Err(err))
		return
	}

	c := h.hub.register(conn, h.controller.State)
	if c == nil {
		_ = conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// hub fans view states out to stream clients.
type hub struct {
	buffer int
	logger geophoto.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(buffer int, logger geophoto.Logger) *hub {
	return &hub{buffer: buffer, logger: logger, clients: make(map[*client]struct{})}
}

// register adds a client and queues the state returned by current as its
// first message. Holding mu while reading the state keeps broadcasts from
// overtaking it. Returns nil once the hub is closed.
func (h *hub) register(conn *websocket.Conn, current func() geophoto.ViewState) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, h.buffer)}
	h.clients[c] = struct{}{}
	c.offer(current())
	h.logger.Debug("stream client connected",
		log.String("client", c.id), log.Int("clients", len(h.clients)))
	return c
}

func (h *hub) broadcast(state geophoto.ViewState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.offer(state) {
			h.logger.Warn("stream client too slow, disconnecting", log.String("client", c.id))
			h.removeLocked(c)
		}
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug("stream client removed", log.String("client", c.id))
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

type client struct {
	id   string
	hub  *hub
	conn *websocket.Conn
	send chan []byte

	// last and hasLast are guarded by hub.mu.
	last    geophoto.ViewState
	hasLast bool
}

// offer queues state unless it repeats the previous message. It returns
// false when the client's buffer is full. The caller holds hub.mu.
func (c *client) offer(state geophoto.ViewState) bool {
	if c.hasLast && c.last.Equal(state) {
		return true
	}
	data, err := json.Marshal(state)
	if err != nil {
		return true
	}
	select {
	case c.send <- data:
		c.last, c.hasLast = state.Clone(), true
		return true
	default:
		return false
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
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
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

// readPump drains control frames until the peer goes away.
func (c *client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
