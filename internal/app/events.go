package app

import "sync"

// SessionEvent is the wire shape pushed to websocket subscribers of a
// session's live feed.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Author    string `json:"author,omitempty"`
	Text      string `json:"text,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Moderator bool   `json:"moderator,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
}

const (
	eventTypeMessage = "message"
	eventTypeNotice  = "notice"
	eventTypeSummary = "summary"
	eventTypeError   = "error"
	eventTypeEnded   = "ended"
)

// eventHub fans one session's event stream out to any number of
// websocket subscribers. Slow subscribers drop events rather than
// stalling ingestion.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan SessionEvent]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan SessionEvent]struct{})}
}

func (h *eventHub) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 64)
	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *eventHub) Broadcast(ev SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends every subscriber's stream. Broadcast after Close is a
// no-op.
func (h *eventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
