package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CravePulse/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 32
)

// Hub fans prediction results out to live WebSocket subscribers grouped by
// subject. Publishing is best-effort: a slow or dead client is dropped, a
// subject with no subscribers is a no-op.
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	groups   map[string]map[*client]struct{}
}

// send is never closed; remove signals teardown by closing done exactly
// once, so a publish racing a disconnect cannot hit a closed channel.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewHub creates a hub.
func NewHub(lgr *logger.Logger) *Hub {
	return &Hub{
		logger: lgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		groups: make(map[string]map[*client]struct{}),
	}
}

// Subscribe upgrades the HTTP request and attaches the connection to the
// subject's group until the peer disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, subjectID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.add(subjectID, c)
	h.logger.Debug("realtime subscriber attached", logger.String("subject", subjectID))

	go h.writePump(subjectID, c)
	go h.readPump(subjectID, c)
	return nil
}

// PublishResult sends a payload to every subscriber of the subject.
func (h *Hub) PublishResult(subjectID string, payload interface{}) {
	h.mu.RLock()
	group := h.groups[subjectID]
	if len(group) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]*client, 0, len(group))
	for c := range group {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("realtime payload marshal", logger.Error(err))
		return
	}

	for _, c := range targets {
		select {
		case <-c.done:
		case c.send <- b:
		default:
			// slow consumer, drop it
			h.remove(subjectID, c)
		}
	}
}

// Subscribers returns the live subscriber count for a subject.
func (h *Hub) Subscribers(subjectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[subjectID])
}

// Close tears down every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subjectID, group := range h.groups {
		for c := range group {
			close(c.done)
			_ = c.conn.Close()
		}
		delete(h.groups, subjectID)
	}
}

func (h *Hub) add(subjectID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[subjectID] == nil {
		h.groups[subjectID] = make(map[*client]struct{})
	}
	h.groups[subjectID][c] = struct{}{}
}

func (h *Hub) remove(subjectID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[subjectID]
	if group == nil {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, subjectID)
	}
	close(c.done)
	_ = c.conn.Close()
}

func (h *Hub) writePump(subjectID string, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.remove(subjectID, c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(subjectID, c)
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to notice disconnects.
func (h *Hub) readPump(subjectID string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(subjectID, c)
			return
		}
	}
}
