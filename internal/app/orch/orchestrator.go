package orch

import (
	"errors"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/chat"
	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Orchestrator applies client intents to the room registry and fans the
// resulting events out to connections.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *rooms.Registry
	Policy   app.Policy
	Chat     *chat.Relay
	Typing   *chat.Typing
	Cleanup  *lifecycle.Scheduler
	Presence *presence.Hub
	// Limiter throttles join-room and chat:send per user. Nil disables it.
	Limiter *app.RateLimiter
}

// Connect registers a freshly upgraded connection.
func (o *Orchestrator) Connect(sess core.MemberSession, cancel func()) {
	o.Registry.Bind(sess, cancel)
}

// Disconnect runs when a connection's read loop ends, for any reason.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	if o.Typing != nil {
		o.Typing.ClearConn(conn)
	}
	if room, ok := o.Registry.RoomOf(conn); ok {
		o.leave(conn, room)
	}
	if user, last := o.Registry.Unbind(conn); last {
		o.Limiter.Forget(user)
	}
}

// KickBySID tears a connection down; its read loop then disconnects it.
func (o *Orchestrator) KickBySID(conn domain.ConnID) {
	if !o.Registry.Cancel(conn) {
		o.Disconnect(conn)
	}
}

// send delivers msg to one connection and applies the backpressure policy.
func (o *Orchestrator) send(conn domain.ConnID, msg protocol.Outbound) {
	sess, ok := o.Registry.Session(conn)
	if !ok {
		return
	}
	err := sess.Signal().Send(msg)
	if err == nil {
		return
	}
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Err(err).Msg("send failed")
		return
	}
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(sess) {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("conn", string(conn)).Str("kind", string(msg.Kind())).Msg("slow connection kicked")
		o.Registry.Cancel(conn)
	case app.NoAction:
	}
}

// broadcast sends msg to every peer except the one with conn == except.
func (o *Orchestrator) broadcast(peers []domain.Peer, except domain.ConnID, msg protocol.Outbound) {
	for _, p := range peers {
		if p.ConnID == except {
			continue
		}
		o.send(p.ConnID, msg)
	}
}

func (o *Orchestrator) publish(kind presence.EventKind, room domain.RoomID) {
	if o.Presence == nil {
		return
	}
	summary, ok := o.Rooms.Get(room)
	if !ok {
		summary = rooms.Summary{RoomID: room}
	}
	o.Presence.Publish(presence.Event{Kind: kind, Room: summary})
}
