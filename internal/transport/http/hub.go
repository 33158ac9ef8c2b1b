package http

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
)

const defaultSendBuffer = 64

// Hub owns the outbound queue of every live websocket connection and
// implements app.Broadcaster. Slow clients lose events rather than stall the game.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan app.Event
	buffer  int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Hub{
		clients: make(map[string]chan app.Event),
		buffer:  buffer,
	}
}

// Register allocates a connection id and its outbound queue.
func (h *Hub) Register() (string, <-chan app.Event) {
	id := uuid.NewString()
	ch := make(chan app.Event, h.buffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unregister closes the connection's queue. Later sends to id are dropped.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) Send(id string, event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- event:
	default:
		log.Warn().Str("conn", id).Str("event", event.Type).Msg("send buffer full, dropping event")
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
