package simimu

import "sync"

type requestState int

const (
	requestPending requestState = iota
	requestResolved
)

// handshake tracks the requests sent to the world by ID. Each pending request resolves at most
// once; responses for unknown or resolved IDs are ignored.
type handshake struct {
	mu       sync.Mutex
	requests map[string]requestState
}

func newHandshake() *handshake {
	return &handshake{requests: make(map[string]requestState)}
}

func (h *handshake) begin(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests[id] = requestPending
}

// resolve reports whether id was pending, marking it resolved.
func (h *handshake) resolve(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.requests[id]; !ok || state != requestPending {
		return false
	}
	h.requests[id] = requestResolved
	return true
}

func (h *handshake) pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, state := range h.requests {
		if state == requestPending {
			n++
		}
	}
	return n
}
