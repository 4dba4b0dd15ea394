// Package hub fans events out to Server-Sent Events clients.
//
// Every frame carries a sequential id. A reconnecting client that sends
// Last-Event-ID is first replayed the recent frames it missed.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// KeepAliveInterval is how often idle streams get a comment line
	KeepAliveInterval = 30 * time.Second
	// HistorySize is the number of frames kept for replay
	HistorySize = 32

	clientBuffer = 64
)

// Named events are sent with an SSE "event:" line
type Named interface {
	EventName() string
}

type frame struct {
	id   uint64
	data []byte
}

type subscriber struct {
	id       uint64
	lastSeen uint64
	frames   chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*subscriber
	history []frame
	seq     uint64
	nextSub uint64

	join      chan *subscriber
	leave     chan *subscriber
	broadcast chan interface{}
	done      chan struct{}

	keepAlive time.Duration
	logger    *slog.Logger
}

// New creates a new Hub. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:   make(map[uint64]*subscriber),
		join:      make(chan *subscriber),
		leave:     make(chan *subscriber),
		broadcast: make(chan interface{}, 256),
		done:      make(chan struct{}),
		keepAlive: KeepAliveInterval,
		logger:    logger.With("component", "hub"),
	}
}

// Run owns the client set until ctx is cancelled, then closes every stream
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, sub := range h.clients {
				delete(h.clients, id)
				close(sub.frames)
			}
			h.mu.Unlock()
			return

		case sub := <-h.join:
			h.mu.Lock()
			h.replayLocked(sub)
			h.clients[sub.id] = sub
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client connected", "client", sub.id, "total", n)

		case sub := <-h.leave:
			h.mu.Lock()
			if _, ok := h.clients[sub.id]; ok {
				delete(h.clients, sub.id)
				close(sub.frames)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("SSE client disconnected", "client", sub.id, "total", n)

		case event := <-h.broadcast:
			h.publish(event)
		}
	}
}

func (h *Hub) publish(event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	f := frame{id: h.seq, data: encodeFrame(h.seq, event, payload)}
	h.history = append(h.history, f)
	if len(h.history) > HistorySize {
		h.history = h.history[len(h.history)-HistorySize:]
	}

	for _, sub := range h.clients {
		select {
		case sub.frames <- f.data:
		default:
			h.logger.Warn("SSE client is slow, dropping frame", "client", sub.id, "frame", f.id)
		}
	}
}

// replayLocked queues the frames sub missed since its Last-Event-ID
func (h *Hub) replayLocked(sub *subscriber) {
	if sub.lastSeen == 0 {
		return
	}
	for _, f := range h.history {
		if f.id <= sub.lastSeen {
			continue
		}
		select {
		case sub.frames <- f.data:
		default:
			return
		}
	}
}

func encodeFrame(id uint64, event interface{}, payload []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "id: %d\n", id)
	if n, ok := event.(Named); ok && n.EventName() != "" {
		fmt.Fprintf(&b, "event: %s\n", n.EventName())
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	return b.Bytes()
}

// Broadcast queues an event for every connected client
func (h *Hub) Broadcast(event interface{}) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event")
	}
}

// Forward broadcasts everything received on events until it is closed or
// ctx is cancelled
func Forward[T any](ctx context.Context, h *Hub, events <-chan T) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events to one client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.nextSub++
	sub := &subscriber{id: h.nextSub, frames: make(chan []byte, clientBuffer)}
	h.mu.Unlock()
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		sub.lastSeen, _ = strconv.ParseUint(last, 10, 64)
	}

	select {
	case h.join <- sub:
	case <-h.done:
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leave <- sub:
		case <-h.done:
		}
	}()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.frames:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
