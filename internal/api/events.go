package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/MJE43/dnd-master-desktop/internal/appstore"
)

const (
	writeWait      = 5 * time.Second
	clientBacklog  = 64
	maxClientFrame = 512
)

// A client that answers no ping within pongWait is disconnected. Tests
// shorten these.
var (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	// Loopback only; the token check already ran.
	CheckOrigin: func(*http.Request) bool { return true },
}

type feedClient struct {
	conn *websocket.Conn
	send chan appstore.Change
}

// eventHub fans store changes out to websocket clients. A client that falls
// more than clientBacklog changes behind is dropped.
type eventHub struct {
	log     logrus.FieldLogger
	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

func newEventHub(log logrus.FieldLogger) *eventHub {
	return &eventHub{log: log, clients: make(map[*feedClient]struct{})}
}

func (h *eventHub) add(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// remove closes c.send once; it is safe to call repeatedly.
func (h *eventHub) remove(c *feedClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *eventHub) broadcast(ch appstore.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ch:
		default:
			h.log.Warn("event client too slow; dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// GET /api/v1/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	c := &feedClient{conn: conn, send: make(chan appstore.Change, clientBacklog)}
	s.hub.add(c)

	// Reader: we ignore client messages but must read to see close frames
	// and pongs.
	wait, period := pongWait, pingPeriod
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(period)
	defer func() {
		ticker.Stop()
		s.hub.remove(c)
		_ = conn.Close()
	}()

	for {
		select {
		case ch, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(ch); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
