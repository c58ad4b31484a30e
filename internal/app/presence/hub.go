// Package presence fans live room changes out to feed subscribers.
package presence

import (
	"sync"

	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/rs/zerolog/log"
)

type EventKind string

const (
	RoomOpened  EventKind = "room-opened"
	RoomUpdated EventKind = "room-updated"
	RoomClosed  EventKind = "room-closed"
)

type Event struct {
	Kind EventKind     `json:"-"`
	Room rooms.Summary `json:"room"`
}

// Hub delivers events to subscribers without ever blocking the publisher;
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[uint64]chan Event), buffer: buffer}
}

// Subscribe returns the event channel and a func that releases it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("module", "presence").Uint64("sub", id).Str("event", string(ev.Kind)).Msg("subscriber too slow, event dropped")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
