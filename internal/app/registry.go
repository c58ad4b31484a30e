package app

import (
	"context"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Room    domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry tracks live connections: who they belong to, which room they are
// admitted into and how to tear them down.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnID]*sessionEntry),
	}
}

func (r *Registry) Bind(sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.Conn()] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(sess.Conn())).Str("user", string(sess.User().ID)).Msg("bound session")
}

// Unbind forgets conn and returns its user, with last set when no other
// connection of that user remains.
func (r *Registry) Unbind(conn domain.ConnID) (user domain.UserID, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return "", false
	}
	delete(r.sessions, conn)
	user = e.Session.User().ID
	last = true
	for _, other := range r.sessions {
		if other.Session.User().ID == user {
			last = false
			break
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Bool("last", last).Msg("unbind session")
	return user, last
}

func (r *Registry) Session(conn domain.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[conn]; ok {
		return e.Session, true
	}
	return nil, false
}

// RoomOf returns the room the connection is currently admitted into.
func (r *Registry) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[conn]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) SetRoom(conn domain.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return false
	}
	e.Room = room
	log.Debug().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Msg("updated room")
	return true
}

// ClearRoom drops the room association only if it still points at room.
func (r *Registry) ClearRoom(conn domain.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok && e.Room == room {
		e.Room = ""
	}
}

// Cancel stops the connection's pumps; the read loop then runs the normal
// disconnect path.
func (r *Registry) Cancel(conn domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.sessions[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("canceled session")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
