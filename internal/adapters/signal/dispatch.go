package signal

import (
	"context"
	"errors"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handleSignal is the single decode and dispatch point of a connection.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sess core.MemberSession, c *WsSignalConn, data []byte) {
	conn := sess.Conn()
	msg, err := protocol.DecodeInbound(c.codec, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("bad frame")
		ctl.reply(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleLimit)
	defer cancel()

	switch m := msg.(type) {
	case *protocol.JoinRoom:
		log.Info().Str("module", "signal").Str("conn", string(conn)).Str("room", string(m.RoomID)).Msg("join")
		err = ctl.Orch.Join(ctx, conn, m.RoomID)
	case *protocol.LeaveRoom:
		log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("leave")
		ctl.Orch.Leave(conn)
	case *protocol.Offer:
		err = ctl.Orch.RelayOffer(conn, m)
	case *protocol.Answer:
		err = ctl.Orch.RelayAnswer(conn, m)
	case *protocol.Candidate:
		err = ctl.Orch.RelayCandidate(conn, m)
	case *protocol.ChatSend:
		err = ctl.Orch.SendChat(ctx, conn, m)
	case *protocol.TypingStart:
		err = ctl.Orch.StartTyping(conn, m.RoomID)
	case *protocol.TypingStop:
		err = ctl.Orch.StopTyping(conn, m.RoomID)
	case *protocol.Ping:
		_ = c.Send(&protocol.Pong{})
	default:
		log.Error().Str("module", "signal").Str("kind", string(msg.Kind())).Msg("unhandled kind")
	}

	if err != nil {
		ctl.reply(c, err)
	}
}

// reply reports err to the client unless it is a routine relay race.
func (ctl *SignalWSController) reply(c *WsSignalConn, err error) {
	if errors.Is(err, domain.ErrInvalidTarget) {
		return
	}
	if errors.Is(err, protocol.ErrBadFrame) {
		err = protocol.ErrBadFrame
	}
	_ = c.Send(protocol.NewError(err))
}
