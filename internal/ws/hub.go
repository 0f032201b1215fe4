package ws

import (
	"sync"

	"go.uber.org/zap"
)

type delivery struct {
	subscriber string
	message    []byte
}

// Hub tracks websocket clients per subscriber id. A subscriber may hold
// several connections; each gets every message addressed to it.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	send       chan delivery
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		send:       make(chan delivery, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		log:        log,
	}
}

// Run serves hub events until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			h.closeAll()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			set, ok := h.clients[client.subscriber]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.subscriber] = set
			}
			set[client] = struct{}{}
			total := h.countLocked()
			h.mutex.Unlock()
			h.log.Debug("[WS] connected", zap.String("subscriber", client.subscriber), zap.Int("total_clients", total))

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			h.dropLocked(client)
			total := h.countLocked()
			h.mutex.Unlock()
			h.log.Debug("[WS] disconnected", zap.String("subscriber", client.subscriber), zap.Int("total_clients", total))

		case d := <-h.send:
			h.mutex.RLock()
			targets := make([]*Client, 0, len(h.clients[d.subscriber]))
			for c := range h.clients[d.subscriber] {
				targets = append(targets, c)
			}
			h.mutex.RUnlock()

			var slow []*Client
			for _, client := range targets {
				select {
				case client.send <- d.message:
				default:
					slow = append(slow, client)
				}
			}
			if len(slow) > 0 {
				h.mutex.Lock()
				for _, c := range slow {
					h.dropLocked(c)
				}
				h.mutex.Unlock()
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	h.unregister <- client
}

// SendTo queues message for every connection of subscriber and reports
// whether it was queued. A full buffer drops the message.
func (h *Hub) SendTo(subscriber string, message []byte) bool {
	if h == nil || subscriber == "" {
		return false
	}
	select {
	case h.send <- delivery{subscriber: subscriber, message: message}:
		return true
	default:
		h.log.Warn("[WS] message dropped", zap.String("subscriber", subscriber), zap.String("reason", "buffer_full"))
		return false
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

func (h *Hub) SubscriberConnections(subscriber string) int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[subscriber])
}

func (h *Hub) dropLocked(c *Client) {
	set, ok := h.clients[c.subscriber]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.subscriber)
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.dropLocked(c)
		}
	}
}
