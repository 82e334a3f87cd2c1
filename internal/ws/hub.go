package ws

import (
	"context"
	"sync"

	"matchmap/internal/observability"
	"matchmap/internal/pkg/logger"

	"github.com/google/uuid"
)

type message struct {
	topic uuid.UUID
	data  []byte
}

// Hub fans events out to the clients subscribed to a tenant topic.
type Hub struct {
	topics     map[uuid.UUID]map[*Client]struct{}
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	// regMu guards stopped and is held by Register across its send, never
	// by Run while it serves.
	regMu      sync.RWMutex
	stopped    bool
	mutex      sync.RWMutex
	logger     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		topics:     make(map[uuid.UUID]map[*Client]struct{}),
		broadcast:  make(chan message, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		done:       make(chan struct{}),
		logger:     logger.OrNop(log).WithFields(map[string]interface{}{"component": "ws_hub"}),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client. Calls made after Run returns do not block.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.shutdown()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			set, ok := h.topics[client.topic]
			if !ok {
				set = make(map[*Client]struct{})
				h.topics[client.topic] = set
			}
			set[client] = struct{}{}
			total := h.countLocked()
			h.mutex.Unlock()
			observability.WSClients.Inc()
			h.logger.Debug("ws connected", map[string]interface{}{"tenant_id": client.topic.String(), "total_clients": total})

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			if h.remove(client) {
				h.logger.Debug("ws disconnected", map[string]interface{}{"tenant_id": client.topic.String(), "total_clients": h.ClientCount()})
			}

		case msg := <-h.broadcast:
			h.mutex.RLock()
			snapshot := make([]*Client, 0, len(h.topics[msg.topic]))
			for c := range h.topics[msg.topic] {
				snapshot = append(snapshot, c)
			}
			h.mutex.RUnlock()

			for _, client := range snapshot {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer; drop it rather than block the fan-out.
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.topics[client.topic]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.topics, client.topic)
	}
	close(client.send)
	observability.WSClients.Dec()
	return true
}

func (h *Hub) shutdown() {
	h.regMu.Lock()
	defer h.regMu.Unlock()
	h.stopped = true

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for topic, set := range h.topics {
		for c := range set {
			close(c.send)
			observability.WSClients.Dec()
		}
		delete(h.topics, topic)
	}
	// Queued registrations never joined a topic.
	for {
		select {
		case c := <-h.register:
			if c != nil {
				close(c.send)
			}
		default:
			return
		}
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.topics {
		n += len(set)
	}
	return n
}

// Register queues client for its topic. Once the hub has stopped the
// client's send channel is closed instead, which ends its WritePump.
func (h *Hub) Register(client *Client) {
	if h == nil || client == nil {
		return
	}
	h.regMu.RLock()
	defer h.regMu.RUnlock()
	if h.stopped {
		close(client.send)
		return
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues data for every client of topic. It never blocks.
func (h *Hub) Broadcast(topic uuid.UUID, data []byte) {
	if h == nil {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- message{topic: topic, data: data}:
	default:
		h.logger.Warn("ws broadcast dropped", map[string]interface{}{"reason": "buffer_full", "tenant_id": topic.String()})
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.countLocked()
}

func (h *Hub) TopicCount(topic uuid.UUID) int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}
