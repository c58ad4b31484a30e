package chat

import (
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// TypingEvent is emitted whenever a user's typing flag flips.
type TypingEvent struct {
	Room     domain.RoomID
	User     domain.UserID
	Conn     domain.ConnID
	IsTyping bool
}

type typingKey struct {
	room domain.RoomID
	user domain.UserID
}

type typingEntry struct {
	conn  domain.ConnID
	timer *time.Timer
	gen   uint64
}

// Typing tracks who is typing where. Every flag auto-clears after timeout
// unless stopped first.
type Typing struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[typingKey]*typingEntry
	gen     uint64
	emit    func(TypingEvent)
}

func NewTyping(timeout time.Duration, emit func(TypingEvent)) *Typing {
	return &Typing{
		timeout: timeout,
		entries: make(map[typingKey]*typingEntry),
		emit:    emit,
	}
}

// Start marks user as typing in room. It is a no-op while already marked.
func (t *Typing) Start(room domain.RoomID, user domain.UserID, conn domain.ConnID) bool {
	k := typingKey{room: room, user: user}

	t.mu.Lock()
	if _, ok := t.entries[k]; ok {
		t.mu.Unlock()
		return false
	}
	t.gen++
	gen := t.gen
	e := &typingEntry{conn: conn, gen: gen}
	e.timer = time.AfterFunc(t.timeout, func() { t.expire(k, gen) })
	t.entries[k] = e
	t.mu.Unlock()

	t.emit(TypingEvent{Room: room, User: user, Conn: conn, IsTyping: true})
	return true
}

// Stop clears the flag. It is a no-op when user is not typing.
func (t *Typing) Stop(room domain.RoomID, user domain.UserID) bool {
	k := typingKey{room: room, user: user}

	t.mu.Lock()
	e, ok := t.entries[k]
	if ok {
		e.timer.Stop()
		delete(t.entries, k)
	}
	t.mu.Unlock()

	if ok {
		t.emit(TypingEvent{Room: room, User: user, Conn: e.conn, IsTyping: false})
	}
	return ok
}

// ClearConn drops every flag owned by conn, in every room.
func (t *Typing) ClearConn(conn domain.ConnID) int {
	var cleared []TypingEvent

	t.mu.Lock()
	for k, e := range t.entries {
		if e.conn != conn {
			continue
		}
		e.timer.Stop()
		delete(t.entries, k)
		cleared = append(cleared, TypingEvent{Room: k.room, User: k.user, Conn: conn, IsTyping: false})
	}
	t.mu.Unlock()

	for _, ev := range cleared {
		t.emit(ev)
	}
	return len(cleared)
}

func (t *Typing) IsTyping(room domain.RoomID, user domain.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{room: room, user: user}]
	return ok
}

func (t *Typing) expire(k typingKey, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, k)
	t.mu.Unlock()

	log.Debug().Str("module", "chat.typing").Str("room", string(k.room)).Str("user", string(k.user)).Msg("typing expired")
	t.emit(TypingEvent{Room: k.room, User: k.user, Conn: e.conn, IsTyping: false})
}
