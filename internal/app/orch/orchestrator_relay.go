package orch

import (
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog/log"
)

// route checks that from and to share a room. Failures are routine races
// and only logged.
func (o *Orchestrator) route(from, to domain.ConnID, kind protocol.Kind) bool {
	room, ok := o.Registry.RoomOf(from)
	if ok && o.Rooms.IsValidPeer(room, from, to) {
		return true
	}
	log.Debug().
		Str("module", "orch.relay").
		Str("conn", string(from)).
		Str("to", string(to)).
		Str("kind", string(kind)).
		Err(domain.ErrInvalidTarget).
		Msg("dropped")
	return false
}

func (o *Orchestrator) RelayOffer(from domain.ConnID, m *protocol.Offer) error {
	if !o.route(from, m.To, m.Kind()) {
		return domain.ErrInvalidTarget
	}
	o.send(m.To, &protocol.RelayedOffer{From: from, Offer: m.Offer})
	return nil
}

func (o *Orchestrator) RelayAnswer(from domain.ConnID, m *protocol.Answer) error {
	if !o.route(from, m.To, m.Kind()) {
		return domain.ErrInvalidTarget
	}
	o.send(m.To, &protocol.RelayedAnswer{From: from, Answer: m.Answer})
	return nil
}

func (o *Orchestrator) RelayCandidate(from domain.ConnID, m *protocol.Candidate) error {
	if !o.route(from, m.To, m.Kind()) {
		return domain.ErrInvalidTarget
	}
	o.send(m.To, &protocol.RelayedCandidate{From: from, Candidate: m.Candidate})
	return nil
}
