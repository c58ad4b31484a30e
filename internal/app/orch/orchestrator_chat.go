package orch

import (
	"context"

	"github.com/dkeye/Meet/internal/app/chat"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

// memberOf returns the user behind conn if conn is admitted into room.
func (o *Orchestrator) memberOf(conn domain.ConnID, room domain.RoomID) (domain.UserID, error) {
	sess, ok := o.Registry.Session(conn)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	if current, ok := o.Registry.RoomOf(conn); !ok || current != room {
		return "", domain.ErrNotInRoom
	}
	return sess.User().ID, nil
}

// SendChat stores (or just relays) a message and delivers it to the whole
// room, sender included.
func (o *Orchestrator) SendChat(ctx context.Context, conn domain.ConnID, m *protocol.ChatSend) error {
	user, err := o.memberOf(conn, m.RoomID)
	if err != nil {
		return err
	}
	if !o.Limiter.Allow(user) {
		return domain.ErrRateLimited
	}
	msg, err := o.Chat.Prepare(ctx, m.RoomID, user, m.Message, m.Attachment)
	if err != nil {
		return err
	}
	o.broadcast(o.Rooms.Members(m.RoomID), "", &protocol.ChatNew{Message: *msg})
	return nil
}

func (o *Orchestrator) StartTyping(conn domain.ConnID, room domain.RoomID) error {
	user, err := o.memberOf(conn, room)
	if err != nil {
		return err
	}
	o.Typing.Start(room, user, conn)
	return nil
}

func (o *Orchestrator) StopTyping(conn domain.ConnID, room domain.RoomID) error {
	user, err := o.memberOf(conn, room)
	if err != nil {
		return err
	}
	o.Typing.Stop(room, user)
	return nil
}

// OnTyping broadcasts a typing flag change to the rest of the room.
func (o *Orchestrator) OnTyping(ev chat.TypingEvent) {
	o.broadcast(o.Rooms.Members(ev.Room), ev.Conn, &protocol.ChatTyping{
		RoomID:   ev.Room,
		UserID:   ev.User,
		IsTyping: ev.IsTyping,
	})
}
