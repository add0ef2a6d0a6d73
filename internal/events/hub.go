package events

import (
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"moviedb/pkg/logging"
)

const (
	writeTimeout = 2 * time.Second
	queueSize    = 64
)

// Hub fans events out to every connected TCP and websocket subscriber as
// newline-terminated JSON. Each subscriber has its own queue and writer
// goroutine, so publishing never waits on the network. Subscribers that
// fail a write or let their queue fill up are dropped.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]*subscriber
	wsClients map[*websocket.Conn]*subscriber
}

type subscriber struct {
	out    chan []byte
	write  func([]byte) error
	close  func() error
	remove func()
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]*subscriber),
		wsClients: make(map[*websocket.Conn]*subscriber),
	}
}

func (h *Hub) Add(conn net.Conn) {
	sub := &subscriber{
		out: make(chan []byte, queueSize),
		write: func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(b)
			return err
		},
		close:  conn.Close,
		remove: func() { delete(h.clients, conn) },
	}
	h.mu.Lock()
	h.clients[conn] = sub
	h.mu.Unlock()
	go h.pump(sub)
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	sub, ok := h.clients[conn]
	if ok {
		h.dropLocked(sub)
	}
	h.mu.Unlock()
	if !ok {
		_ = conn.Close()
	}
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	sub := &subscriber{
		out: make(chan []byte, queueSize),
		write: func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		close:  ws.Close,
		remove: func() { delete(h.wsClients, ws) },
	}
	h.mu.Lock()
	h.wsClients[ws] = sub
	h.mu.Unlock()
	go h.pump(sub)
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	sub, ok := h.wsClients[ws]
	if ok {
		h.dropLocked(sub)
	}
	h.mu.Unlock()
	if !ok {
		_ = ws.Close()
	}
}

// Publish stamps e (if needed) and broadcasts it.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.BroadcastJSON(e)
}

// BroadcastJSON queues v on every subscriber and returns without waiting
// for delivery.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Msg("event encode failed")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.clients {
		h.enqueueLocked(sub, b)
	}
	for _, sub := range h.wsClients {
		h.enqueueLocked(sub, b)
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) enqueueLocked(sub *subscriber, b []byte) {
	select {
	case sub.out <- b:
	default:
		logging.Warn().Msg("event subscriber too slow, dropping")
		h.dropLocked(sub)
	}
}

// dropLocked must only be called for a subscriber still registered.
func (h *Hub) dropLocked(sub *subscriber) {
	sub.remove()
	close(sub.out)
	_ = sub.close()
}

func (h *Hub) pump(sub *subscriber) {
	for b := range sub.out {
		if err := sub.write(b); err != nil {
			h.mu.Lock()
			if h.owns(sub) {
				h.dropLocked(sub)
			}
			h.mu.Unlock()
			// drain so the channel can be collected
			for range sub.out {
			}
			return
		}
	}
}

func (h *Hub) owns(sub *subscriber) bool {
	for _, s := range h.clients {
		if s == sub {
			return true
		}
	}
	for _, s := range h.wsClients {
		if s == sub {
			return true
		}
	}
	return false
}
