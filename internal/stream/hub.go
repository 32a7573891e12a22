package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

const replayDepth = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans engine events out to WebSocket clients. It implements the
// EventPublisher interface, so it receives the same events the Kafka
// producer does. New clients get a replay of the most recent events
// before live traffic.
type Hub struct {
	log     *applogger.Logger
	metrics drepo.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	closed  bool

	// replay ring, oldest first
	replay [][]byte
}

func NewHub(log *applogger.Logger, metrics drepo.Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		clients: make(map[*Client]bool),
	}
}

// PublishEvent broadcasts one event to every connected client. Slow
// clients are skipped, never waited on.
func (h *Hub) PublishEvent(ctx context.Context, ev models.EngineEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.replay = append(h.replay, msg)
	if len(h.replay) > replayDepth {
		h.replay = h.replay[len(h.replay)-replayDepth:]
	}
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			h.metrics.RecordError("ws_drop")
		}
	}
	h.mu.Unlock()
	return nil
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[client] = true
	count := len(h.clients)
	backlog := make([][]byte, len(h.replay))
	copy(backlog, h.replay)
	h.mu.Unlock()

	h.metrics.RecordWSClients(count)
	h.log.Debug("ws client connected", applogger.Int("clients", count))

	// queue the replay before the pumps start delivering live events
	for _, msg := range backlog {
		select {
		case client.send <- msg:
		default:
		}
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	h.metrics.RecordWSClients(count)
	h.log.Debug("ws client disconnected", applogger.Int("clients", count))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	return nil
}

var _ drepo.EventPublisher = (*Hub)(nil)
