// Package client drives WebRTC negotiation with every peer of a room over
// the signaling websocket.
package client

import (
	"context"
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Signaler delivers client messages to the server.
type Signaler interface {
	Send(msg protocol.Inbound) error
}

// Hooks surface non-negotiation events. Every field is optional.
type Hooks struct {
	OnState       func(remote domain.ConnID, from, to SignalingState)
	OnPeerJoined  func(domain.Peer)
	OnPeerLeft    func(domain.Peer)
	OnHostChanged func(host domain.UserID)
	OnChat        func(domain.ChatMessage)
	OnTyping      func(*protocol.ChatTyping)
	OnError       func(reason string)
	OnLeft        func()
}

type Controller struct {
	mu      sync.Mutex
	peers   map[domain.ConnID]*peer
	newPeer PeerFactory
	signal  Signaler
	hooks   Hooks
	logger  zerolog.Logger
}

func NewController(signal Signaler, factory PeerFactory, hooks Hooks) *Controller {
	return &Controller{
		peers:   make(map[domain.ConnID]*peer),
		newPeer: factory,
		signal:  signal,
		hooks:   hooks,
		logger:  log.With().Str("module", "client").Logger(),
	}
}

// Run dispatches server messages until the channel closes or ctx ends,
// then closes every peer.
func (c *Controller) Run(ctx context.Context, incoming <-chan protocol.Outbound) {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			c.Dispatch(msg)
		}
	}
}

// Dispatch applies one server message. Negotiation races are logged and
// never escalate.
func (c *Controller) Dispatch(msg protocol.Outbound) {
	var err error
	switch m := msg.(type) {
	case *protocol.ExistingPeers:
		c.HandleExistingPeers(m.Peers)
	case *protocol.UserJoined:
		err = c.HandleUserJoined(m.Peer)
	case *protocol.UserLeft:
		c.HandleUserLeft(m.Peer)
	case *protocol.HostChanged:
		if c.hooks.OnHostChanged != nil {
			c.hooks.OnHostChanged(m.HostID)
		}
	case *protocol.RelayedOffer:
		err = c.HandleOffer(m.From, m.Offer)
	case *protocol.RelayedAnswer:
		err = c.HandleAnswer(m.From, m.Answer)
	case *protocol.RelayedCandidate:
		err = c.HandleCandidate(m.From, m.Candidate)
	case *protocol.ChatNew:
		if c.hooks.OnChat != nil {
			c.hooks.OnChat(m.Message)
		}
	case *protocol.ChatTyping:
		if c.hooks.OnTyping != nil {
			c.hooks.OnTyping(m)
		}
	case *protocol.Error:
		c.logger.Warn().Str("reason", m.Reason).Msg("server error")
		if c.hooks.OnError != nil {
			c.hooks.OnError(m.Reason)
		}
	case *protocol.Left:
		c.Close()
		if c.hooks.OnLeft != nil {
			c.hooks.OnLeft()
		}
	case *protocol.Pong:
	default:
		c.logger.Error().Str("kind", string(msg.Kind())).Msg("unhandled kind")
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("kind", string(msg.Kind())).Msg("ignored")
	}
}

// HandleExistingPeers registers the peers already in the room. The newcomer
// waits for their offers.
func (c *Controller) HandleExistingPeers(peers []domain.Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range peers {
		if _, err := c.ensure(p.ConnID, p.UserID); err != nil {
			c.logger.Error().Err(err).Str("peer", string(p.ConnID)).Msg("open peer")
		}
	}
}

// HandleUserJoined opens a connection towards the newcomer and offers.
func (c *Controller) HandleUserJoined(p domain.Peer) error {
	if c.hooks.OnPeerJoined != nil {
		c.hooks.OnPeerJoined(p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.ensure(p.ConnID, p.UserID); err != nil {
		return err
	}
	return c.offer(p.ConnID)
}

// HandleUserLeft closes and forgets the peer together with queued candidates.
func (c *Controller) HandleUserLeft(p domain.Peer) {
	c.mu.Lock()
	pr, ok := c.peers[p.ConnID]
	if ok {
		delete(c.peers, p.ConnID)
		c.closePeer(pr)
	}
	c.mu.Unlock()
	if ok && c.hooks.OnPeerLeft != nil {
		c.hooks.OnPeerLeft(p)
	}
}

// Offer starts a negotiation towards remote.
func (c *Controller) Offer(remote domain.ConnID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offer(remote)
}

func (c *Controller) offer(remote domain.ConnID) error {
	p, ok := c.peers[remote]
	if !ok {
		return newError("offer", remote, ErrUnknownPeer)
	}
	if p.state != StateStable {
		return newError("offer", remote, domain.ErrSignalingCollision)
	}
	sdp, err := p.pc.CreateOffer()
	if err != nil {
		return newError("create offer", remote, err)
	}
	if err := p.pc.SetLocalDescription(sdp); err != nil {
		return newError("set local description", remote, err)
	}
	c.transition(p, StateHaveLocalOffer)
	if err := c.signal.Send(&protocol.Offer{To: remote, Offer: sdp}); err != nil {
		return newError("send offer", remote, err)
	}
	return nil
}

// HandleOffer answers an offer when stable; otherwise it is a collision and
// is dropped.
func (c *Controller) HandleOffer(from domain.ConnID, sdp protocol.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.ensure(from, "")
	if err != nil {
		return err
	}
	if p.state != StateStable {
		c.logger.Warn().Str("peer", string(from)).Str("state", p.state.String()).Msg("offer collision")
		return newError("handle offer", from, domain.ErrSignalingCollision)
	}
	if err := p.pc.SetRemoteDescription(sdp); err != nil {
		return newError("set remote description", from, err)
	}
	c.transition(p, StateHaveRemoteOffer)
	c.remoteCommitted(p)

	answer, err := p.pc.CreateAnswer()
	if err != nil {
		return newError("create answer", from, err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return newError("set local description", from, err)
	}
	c.transition(p, StateStable)
	if err := c.signal.Send(&protocol.Answer{To: from, Answer: answer}); err != nil {
		return newError("send answer", from, err)
	}
	return nil
}

// HandleAnswer completes a local offer. Answers without one are stale.
func (c *Controller) HandleAnswer(from domain.ConnID, sdp protocol.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.peers[from]
	if !ok {
		return newError("handle answer", from, ErrUnknownPeer)
	}
	if p.state != StateHaveLocalOffer {
		return newError("handle answer", from, ErrNoOutstandingOffer)
	}
	if err := p.pc.SetRemoteDescription(sdp); err != nil {
		return newError("set remote description", from, err)
	}
	c.transition(p, StateStable)
	c.remoteCommitted(p)
	return nil
}

// HandleCandidate applies a remote candidate, or queues it until the remote
// description is committed.
func (c *Controller) HandleCandidate(from domain.ConnID, cand protocol.ICECandidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.peers[from]
	if !ok {
		return newError("handle candidate", from, ErrUnknownPeer)
	}
	if !p.remoteSet {
		p.pending = append(p.pending, cand)
		return nil
	}
	if err := p.pc.AddICECandidate(cand); err != nil {
		return newError("add candidate", from, err)
	}
	return nil
}

// Pending reports how many candidates are queued for remote.
func (c *Controller) Pending(remote domain.ConnID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[remote]; ok {
		return len(p.pending)
	}
	return 0
}

func (c *Controller) State(remote domain.ConnID) (SignalingState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[remote]; ok {
		return p.state, true
	}
	return StateClosed, false
}

// Peers lists the remote connections currently tracked.
func (c *Controller) Peers() []domain.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Peer, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, domain.Peer{ConnID: p.id, UserID: p.user})
	}
	return out
}

// Close tears down every peer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.peers {
		delete(c.peers, id)
		c.closePeer(p)
	}
}

// ensure returns the peer for remote, opening it on first use.
func (c *Controller) ensure(remote domain.ConnID, user domain.UserID) (*peer, error) {
	if p, ok := c.peers[remote]; ok {
		if p.user == "" {
			p.user = user
		}
		return p, nil
	}
	pc, err := c.newPeer(remote)
	if err != nil {
		return nil, newError("open peer", remote, err)
	}
	p := &peer{id: remote, user: user, pc: pc, state: StateStable}
	pc.OnICECandidate(func(cand protocol.ICECandidate) {
		if err := c.signal.Send(&protocol.Candidate{To: remote, Candidate: cand}); err != nil {
			c.logger.Debug().Err(err).Str("peer", string(remote)).Msg("send candidate")
		}
	})
	c.peers[remote] = p
	return p, nil
}

// remoteCommitted drains queued candidates in arrival order, exactly once.
func (c *Controller) remoteCommitted(p *peer) {
	p.remoteSet = true
	queued := p.pending
	p.pending = nil
	for _, cand := range queued {
		if err := p.pc.AddICECandidate(cand); err != nil {
			c.logger.Warn().Err(err).Str("peer", string(p.id)).Msg("queued candidate rejected")
		}
	}
}

func (c *Controller) transition(p *peer, to SignalingState) {
	from := p.state
	p.state = to
	c.logger.Debug().Str("peer", string(p.id)).Str("from", from.String()).Str("to", to.String()).Msg("signaling state")
	if c.hooks.OnState != nil {
		c.hooks.OnState(p.id, from, to)
	}
}

func (c *Controller) closePeer(p *peer) {
	p.pending = nil
	p.pc.OnICECandidate(func(protocol.ICECandidate) {})
	c.transition(p, StateClosed)
	if err := p.pc.Close(); err != nil {
		c.logger.Debug().Err(err).Str("peer", string(p.id)).Msg("close")
	}
}
