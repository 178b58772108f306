package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event kinds published by the daemon.
const (
	KindConnOpened = "conn.opened"
	KindConnClosed = "conn.closed"
	KindDispatched = "command.dispatched"
	KindNoMatch    = "command.no_match"
	KindHandlerErr = "command.handler_error"
	KindShutdown   = "daemon.shutdown"
)

// Event is one daemon occurrence. Conn carries the connection id when the
// event is tied to a client; Data is an optional JSON payload.
type Event struct {
	Seq  int64     `json:"seq"`
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
	Conn string    `json:"conn,omitempty"`
	Data []byte    `json:"data,omitempty"`
}

// Hub is an in-memory pub/sub with a ring buffer so late subscribers can
// catch up on recent history.
type Hub struct {
	seq atomic.Int64

	mu     sync.Mutex
	buf    []Event
	head   int
	filled int

	subs    map[int]chan Event
	nextSub int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	return &Hub{
		buf:  make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Publish records an event and fans it out. Slow subscribers drop events
// rather than blocking the daemon's accept loop.
func (h *Hub) Publish(kind, connID string, data any) Event {
	var payload []byte
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	ev := Event{
		Seq:  h.seq.Add(1),
		Kind: kind,
		At:   time.Now().UTC(),
		Conn: connID,
		Data: payload,
	}

	h.mu.Lock()
	h.store(ev)
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
	return ev
}

// Subscribe returns a channel of future events and a cancel func. Cancel
// closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Since returns buffered events with Seq > after, oldest first. after == 0
// returns everything still buffered.
func (h *Hub) Since(after int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.filled)
	for i := 0; i < h.filled; i++ {
		ev := h.buf[(h.head+i)%len(h.buf)]
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) store(ev Event) {
	n := len(h.buf)
	if n == 0 {
		return
	}
	if h.filled < n {
		h.buf[(h.head+h.filled)%n] = ev
		h.filled++
		return
	}
	h.buf[h.head] = ev
	h.head = (h.head + 1) % n
}
