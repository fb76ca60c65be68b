package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// consoleEvent is one bridge message as shown in the console stream.
type consoleEvent struct {
	Direction string    `json:"direction"`
	Tab       string    `json:"tab"`
	Payload   string    `json:"payload"`
	At        time.Time `json:"at"`
}

// Hub fans bridge traffic out to connected console clients. It
// implements shell.Tap; with no clients connected every event is
// dropped on the floor.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// BridgeMessage implements shell.Tap.
func (h *Hub) BridgeMessage(direction string, tab string, payload string) {
	data, err := json.Marshal(consoleEvent{
		Direction: direction,
		Tab:       tab,
		Payload:   payload,
		At:        time.Now(),
	})
	if err != nil {
		return
	}
	h.broadcast(data)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.logger.Debug("console client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug("console client disconnected", "clients", len(h.clients))
}

func (h *Hub) broadcast(data []byte) {
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("console client lagging, dropping event")
		}
	}
}
