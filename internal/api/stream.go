package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxStreamConns  = 16
	streamQueueSize = 64
)

// StreamMessage is sent to websocket subscribers.
type StreamMessage struct {
	Type   string `json:"type"` // "hello", "refresh" or "map"
	Tick   uint64 `json:"tick"`
	Chunks []int  `json:"chunks,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Hub fans messages out to stream subscribers. Slow subscribers miss
// messages rather than blocking the sender.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, streamQueueSize)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast sends msg to every subscriber.
func (h *Hub) Broadcast(msg StreamMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("stream encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- b:
		default:
			slog.Warn("stream subscriber lagging, message dropped", "sub_id", id)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and pushes chunk refresh
// notifications until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	defer atomic.AddInt32(&s.streamConns, -1)
	if current > maxStreamConns {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(subID)
	slog.Info("stream client connected", "sub_id", subID)

	st := s.Session.Status()
	hello, _ := json.Marshal(StreamMessage{Type: "hello", Tick: s.tick(), Width: st.Width, Height: st.Height})
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer goroutine with heartbeat pings.
	writeErr := make(chan error, 1)
	go func() {
		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()
		for {
			select {
			case <-heartbeat.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					writeErr <- err
					return
				}
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b, ok := <-ch:
				if !ok {
					writeErr <- nil
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop: the client sends nothing useful, but reading notices
	// when it closes. Pongs keep the deadline moving.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
	slog.Info("stream client disconnected", "sub_id", subID)
}
