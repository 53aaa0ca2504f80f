package realtime

import (
	"encoding/json"
	"sync"

	"anitrack-api/internal/cache"

	"github.com/rs/zerolog"
)

// DefaultQueueSize is how many undelivered messages a subscriber may lag
// behind before new messages are dropped for it.
const DefaultQueueSize = 64

// Client represents a single websocket client connection.
// The network conn itself is managed in the events handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// subscriber owns the queue drained by one client's writer goroutine.
type subscriber struct {
	queue chan []byte
	done  chan struct{}
}

// Hub tracks connected event subscribers and fans messages out to them.
// Broadcast only enqueues; each client is written to by its own goroutine.
type Hub struct {
	mu        sync.RWMutex
	clients   map[Client]*subscriber
	queueSize int
	log       zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return NewHubWithQueueSize(logger, DefaultQueueSize)
}

func NewHubWithQueueSize(logger zerolog.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		clients:   make(map[Client]*subscriber),
		queueSize: queueSize,
		log:       logger,
	}
}

// Register adds a client and starts its writer. Registering twice is a no-op.
func (h *Hub) Register(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		return
	}
	sub := &subscriber{
		queue: make(chan []byte, h.queueSize),
		done:  make(chan struct{}),
	}
	h.clients[client] = sub
	go h.writeLoop(client, sub)
}

// Unregister removes a client and stops its writer. Queued messages that
// were not yet written are discarded.
func (h *Hub) Unregister(client Client) {
	h.mu.Lock()
	sub, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(sub.done)
	}
	h.mu.Unlock()
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client without waiting on any of
// them. A client whose queue is full misses the message.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.clients {
		select {
		case sub.queue <- message:
		default:
			h.log.Debug().Msg("event dropped for slow subscriber")
		}
	}
}

func (h *Hub) writeLoop(client Client, sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.queue:
			if ok := client.Send(msg); !ok {
				// Left for the owning handler to clean up when its read loop errors.
				h.log.Debug().Msg("event send failed")
			}
		}
	}
}

// PublishCacheEvent is a cache.Config.OnEvent hook. It never blocks on
// subscriber I/O, so it is safe to call from cache mutations.
func (h *Hub) PublishCacheEvent(ev cache.Event) {
	if h.Len() == 0 {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(ev.Type)).Msg("marshal cache event")
		return
	}
	h.Broadcast(msg)
}
