// Package stream pushes simulation frames to websocket clients, for an
// external renderer to draw.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Frame is one JSON message. Hello frames carry Topology, step frames carry
// Positions: one flat xyz array per object.
type Frame struct {
	Type      string      `json:"type"`
	Time      float64     `json:"time"`
	Positions [][]float32 `json:"positions,omitempty"`
	Topology  [][][3]int  `json:"topology,omitempty"`
}

// Hub fans frames out to every connected client. A client that fails a
// write is dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[*websocket.Conn]*sync.Mutex
	topology [][][3]int

	every int
	steps int
}

// NewHub sends one frame every `every` steps.
func NewHub(every int) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		every:   max(every, 1),
	}
}

// SetTopology records the triangle lists that new clients get in their
// hello frame. Particle scenes have none.
func (h *Hub) SetTopology(t [][][3]int) {
	h.mu.Lock()
	h.topology = t
	h.mu.Unlock()
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slogger().Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = connMu
	hello := Frame{Type: "hello", Topology: h.topology}
	h.mu.Unlock()
	defer h.remove(conn)
	slogger().Info("client connected", "remote", r.RemoteAddr)

	if err := h.write(conn, connMu, hello); err != nil {
		return
	}

	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slogger().Debug("client disconnected", "remote", r.RemoteAddr, "err", err)
			return
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, mu *sync.Mutex, f Frame) error {
	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes f to every client and returns how many received it.
func (h *Hub) Broadcast(f Frame) int {
	h.mu.RLock()
	var failed []*websocket.Conn
	sent := 0
	for conn, mu := range h.clients {
		if err := h.write(conn, mu, f); err != nil {
			slogger().Debug("dropping client", "remote", conn.RemoteAddr().String(), "err", err)
			failed = append(failed, conn)
			continue
		}
		sent++
	}
	h.mu.RUnlock()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
			conn.Close()
		}
		h.mu.Unlock()
	}
	return sent
}

// OnStep makes a Hub usable as a run observer.
func (h *Hub) OnStep(t float64, positions [][]float32) {
	h.steps++
	if h.steps%h.every != 0 {
		return
	}
	if h.Clients() == 0 {
		return
	}
	h.Broadcast(Frame{Type: "frame", Time: t, Positions: positions})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
