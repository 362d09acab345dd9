// Package broadcast is the in-process pub-sub layer behind live tally and
// closure pushes. Rooms are topics keyed by poll id (and short id alias).
// Delivery is at-most-once with no replay: a slow subscriber drops events
// rather than blocking a publisher, and clients are expected to stay
// correct through direct reads.
package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

const defaultBuffer = 16

type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription is one client's ephemeral attachment to the hub. Room
// membership lives only here and dies with the connection.
type Subscription struct {
	hub    *Hub
	ch     chan domain.Event
	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

func (h *Hub) Subscribe(rooms ...string) *Subscription {
	sub := &Subscription{
		hub:   h,
		ch:    make(chan domain.Event, h.buffer),
		rooms: make(map[string]struct{}, len(rooms)),
	}
	for _, room := range rooms {
		if room != "" {
			sub.rooms[room] = struct{}{}
		}
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Events is the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

func (s *Subscription) Join(room string) {
	if room == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.rooms[room] = struct{}{}
}

func (s *Subscription) Leave(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	delete(s.hub.subs, s)
	s.hub.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription) inRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_, ok := s.rooms[room]
	return ok
}

// deliver pushes without blocking; a full subscriber buffer means the event
// is dropped for that subscriber.
func (s *Subscription) deliver(ev domain.Event, logger *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		logger.Debug("subscriber lagging, event dropped", zap.String("event", ev.Name))
	}
}

func (h *Hub) Publish(room string, ev domain.Event) {
	if room == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.inRoom(room) {
			sub.deliver(ev, h.logger)
		}
	}
}

// PublishGlobal reaches every subscriber regardless of room membership.
func (h *Hub) PublishGlobal(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		sub.deliver(ev, h.logger)
	}
}

var _ ports.Broadcaster = (*Hub)(nil)
