package sync

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"cinehub/internal/logging"
	"cinehub/internal/metrics"
)

// Hub fans feed events out to TCP and WebSocket subscribers. Slow or broken
// clients are dropped on the first failed write.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues("tcp").Set(float64(n))
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues("tcp").Set(float64(n))
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.wsClients[ws] = struct{}{}
	n := len(h.wsClients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues("ws").Set(float64(n))
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	n := len(h.wsClients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues("ws").Set(float64(n))
	_ = ws.Close()
}

// BroadcastJSON encodes v once and writes it as a single line to every
// subscriber.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Warn().Err(err).Msg("feed: marshal event")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}

	metrics.FeedClients.WithLabelValues("tcp").Set(float64(len(h.clients)))
	metrics.FeedClients.WithLabelValues("ws").Set(float64(len(h.wsClients)))
}

// Publish is BroadcastJSON without blocking the caller.
func (h *Hub) Publish(v any) {
	go h.BroadcastJSON(v)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	b, _ := json.Marshal(map[string]any{
		"type":    "welcome",
		"message": "connected",
		"clients": h.Stats().TCPClients,
	})
	_, _ = conn.Write(append(b, '\n'))
}
