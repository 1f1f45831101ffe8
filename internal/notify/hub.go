package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/logger"
)

const DefaultBuffer = 32

type subscription struct {
	ch   chan Event
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is the in-process fan-out. A subscriber whose buffer is full misses the
// event instead of slowing the publisher down.
type Hub struct {
	mu      sync.RWMutex
	topics  map[uuid.UUID]map[*subscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Int64
	log     *log.Logger
}

// NewHub creates a hub whose subscriber channels hold buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[uuid.UUID]map[*subscription]struct{}),
		buffer: buffer,
		log:    logger.Notify("memory"),
	}
}

func (h *Hub) Name() string {
	return "memory"
}

// Publish delivers the event to local subscribers
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Broadcast(e)
	return nil
}

// Broadcast delivers to subscribers of the event's election and to global subscribers
func (h *Hub) Broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	h.deliver(h.topics[e.ElectionID], e)
	if e.ElectionID != uuid.Nil {
		h.deliver(h.topics[uuid.Nil], e)
	}
}

func (h *Hub) deliver(subs map[*subscription]struct{}, e Event) {
	for sub := range subs {
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
			h.log.Debug("Dropping event for slow subscriber", "election_id", e.ElectionID, "kind", e.Kind)
		}
	}
}

func (h *Hub) Subscribe(electionID uuid.UUID) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	if h.topics[electionID] == nil {
		h.topics[electionID] = make(map[*subscription]struct{})
	}
	h.topics[electionID][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[electionID]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.topics, electionID)
			}
		}
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Subscribers counts live subscriptions for an election
func (h *Hub) Subscribers(electionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[electionID])
}

// Dropped reports how many deliveries were skipped because a buffer was full
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every subscription
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.topics {
		for sub := range subs {
			sub.close()
		}
	}
	h.topics = make(map[uuid.UUID]map[*subscription]struct{})
	return nil
}
