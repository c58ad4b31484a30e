package orch

import (
	"context"

	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Join admits conn into roomID. Admission errors are returned for the
// caller to report; on success the newcomer receives existing-peers and the
// others user-joined.
func (o *Orchestrator) Join(ctx context.Context, conn domain.ConnID, roomID domain.RoomID) error {
	sess, ok := o.Registry.Session(conn)
	if !ok {
		return domain.ErrUnauthorized
	}
	user := sess.User().ID
	if err := roomID.Validate(); err != nil {
		return domain.ErrNotFound
	}
	if !o.Limiter.Allow(user) {
		return domain.ErrRateLimited
	}

	// A rejected switch keeps conn in its current room.
	res, err := o.Rooms.Join(ctx, conn, roomID, user)
	if err != nil {
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("room", string(roomID)).Err(err).Msg("join rejected")
		return err
	}

	current, inRoom := o.Registry.RoomOf(conn)
	if inRoom && current != roomID {
		o.leave(conn, current)
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("from_room", string(current)).Msg("switched rooms")
	}
	if o.Cleanup != nil {
		o.Cleanup.Cancel(roomID)
	}
	o.Registry.SetRoom(conn, roomID)

	if res.Replaced != nil {
		stale := res.Replaced.ConnID
		o.Registry.ClearRoom(stale, roomID)
		if o.Typing != nil {
			o.Typing.ClearConn(stale)
		}
		o.send(stale, &protocol.Left{})
		o.broadcast(res.Peers, conn, &protocol.UserLeft{Peer: *res.Replaced})
		log.Info().Str("module", "orch").Str("conn", string(stale)).Str("room", string(roomID)).Msg("replaced stale connection")
	}

	o.send(conn, &protocol.ExistingPeers{Peers: res.Peers})
	if !(inRoom && current == roomID) {
		o.broadcast(res.Peers, conn, &protocol.UserJoined{Peer: domain.Peer{ConnID: conn, UserID: user}})
	}

	if res.Created {
		o.publish(presence.RoomOpened, roomID)
	} else {
		o.publish(presence.RoomUpdated, roomID)
	}
	return nil
}

// Leave takes conn out of its room on request.
func (o *Orchestrator) Leave(conn domain.ConnID) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	if o.Typing != nil {
		o.Typing.ClearConn(conn)
	}
	o.leave(conn, room)
	o.send(conn, &protocol.Left{})
}

func (o *Orchestrator) leave(conn domain.ConnID, room domain.RoomID) {
	o.Registry.ClearRoom(conn, room)
	res, ok := o.Rooms.Leave(conn, room)
	if !ok {
		return
	}

	o.broadcast(res.Remaining, conn, &protocol.UserLeft{Peer: res.Peer})
	if res.NewHost != nil {
		o.broadcast(res.Remaining, conn, &protocol.HostChanged{RoomID: room, HostID: *res.NewHost})
	}

	if res.Closed {
		if o.Cleanup != nil {
			o.Cleanup.Schedule(room)
		}
		o.publish(presence.RoomClosed, room)
		return
	}
	o.publish(presence.RoomUpdated, room)
}

// EvictRoom removes everyone from a live room, telling them why.
func (o *Orchestrator) EvictRoom(room domain.RoomID, reason error) {
	for _, p := range o.Rooms.Members(room) {
		if reason != nil {
			o.send(p.ConnID, protocol.NewError(reason))
		}
		if o.Typing != nil {
			o.Typing.ClearConn(p.ConnID)
		}
		o.leave(p.ConnID, room)
		o.send(p.ConnID, &protocol.Left{})
	}
}
