package events

import (
	"sync"

	"github.com/kailas-cloud/portalsearch/internal/usecase/aggregate"
)

const defaultBufferSize = 32

// Hub fans session events out to in-process listeners such as websocket
// connections. A listener whose buffer is full misses the event; delivery
// never blocks the session.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[string]map[uint64]chan aggregate.Event
	nextID    uint64
	bufSize   int
	onDropped func(sessionID string)
}

// NewHub creates a hub with the given per-listener buffer (default 32).
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Hub{sessions: make(map[string]map[uint64]chan aggregate.Event), bufSize: bufSize}
}

// OnDropped sets a callback invoked whenever an event is dropped for a slow listener.
func (h *Hub) OnDropped(fn func(sessionID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDropped = fn
}

// Subscribe registers a listener for one session. Callers must Unsubscribe.
func (h *Hub) Subscribe(sessionID string) (uint64, <-chan aggregate.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan aggregate.Event, h.bufSize)
	ls, ok := h.sessions[sessionID]
	if !ok {
		ls = make(map[uint64]chan aggregate.Event)
		h.sessions[sessionID] = ls
	}
	ls[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(sessionID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls := h.sessions[sessionID]
	if ch, ok := ls[id]; ok {
		delete(ls, id)
		close(ch)
	}
	if len(ls) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Publish delivers e to every listener of the session.
func (h *Hub) Publish(sessionID string, e aggregate.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.sessions[sessionID] {
		select {
		case ch <- e:
		default:
			if h.onDropped != nil {
				h.onDropped(sessionID)
			}
		}
	}
}

// Forget closes every listener of a session.
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.sessions[sessionID] {
		close(ch)
	}
	delete(h.sessions, sessionID)
}

// Listeners returns the number of listeners of a session.
func (h *Hub) Listeners(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
