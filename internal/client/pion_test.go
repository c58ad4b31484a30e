package client

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback stands in for the server between two controllers: it turns a
// client message to conn "to" into the relayed form the other side sees.
type loopback struct {
	from domain.ConnID
	out  chan protocol.Outbound
}

func (l *loopback) Send(msg protocol.Inbound) error {
	switch m := msg.(type) {
	case *protocol.Offer:
		l.out <- &protocol.RelayedOffer{From: l.from, Offer: m.Offer}
	case *protocol.Answer:
		l.out <- &protocol.RelayedAnswer{From: l.from, Answer: m.Answer}
	case *protocol.Candidate:
		l.out <- &protocol.RelayedCandidate{From: l.from, Candidate: m.Candidate}
	}
	return nil
}

type pionRecorder struct {
	mu    sync.Mutex
	peers map[domain.ConnID]*PionPeer
}

func (r *pionRecorder) factory(t *testing.T) PeerFactory {
	return func(remote domain.ConnID) (PeerConnection, error) {
		p, err := NewPionPeer(webrtc.Configuration{}, remote, PionOptions{})
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.peers[remote] = p
		r.mu.Unlock()
		t.Cleanup(func() { _ = p.Close() })
		return p, nil
	}
}

func (r *pionRecorder) get(remote domain.ConnID) *PionPeer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers[remote]
}

// negotiated reports whether pion saw a full offer/answer exchange.
func (r *pionRecorder) negotiated(remote domain.ConnID) bool {
	p := r.get(remote)
	return p != nil && p.SignalingState() == webrtc.SignalingStateStable && p.pc.CurrentRemoteDescription() != nil
}

func TestPionNegotiationReachesStable(t *testing.T) {
	toX := make(chan protocol.Outbound, 64)
	toY := make(chan protocol.Outbound, 64)
	xPeers := &pionRecorder{peers: map[domain.ConnID]*PionPeer{}}
	yPeers := &pionRecorder{peers: map[domain.ConnID]*PionPeer{}}

	x := NewController(&loopback{from: "cx", out: toY}, xPeers.factory(t), Hooks{})
	y := NewController(&loopback{from: "cy", out: toX}, yPeers.factory(t), Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go x.Run(ctx, toX)
	go y.Run(ctx, toY)

	y.Dispatch(&protocol.ExistingPeers{Peers: []domain.Peer{{ConnID: "cx", UserID: "x"}}})
	toX <- &protocol.UserJoined{Peer: domain.Peer{ConnID: "cy", UserID: "y"}}

	require.Eventually(t, func() bool {
		xs, okx := x.State("cy")
		ys, oky := y.State("cx")
		return okx && oky && xs == StateStable && ys == StateStable &&
			xPeers.negotiated("cy") && yPeers.negotiated("cx")
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, webrtc.SDPTypeAnswer, xPeers.get("cy").pc.CurrentRemoteDescription().Type)
	assert.Equal(t, webrtc.SDPTypeOffer, yPeers.get("cx").pc.CurrentRemoteDescription().Type)
	assert.Zero(t, x.Pending("cy"))
	assert.Zero(t, y.Pending("cx"))
}

func TestPionOfferCarriesMedia(t *testing.T) {
	p, err := NewPionPeer(WebRTCConfig(config.ICEConfig{}), "remote", PionOptions{})
	require.NoError(t, err)
	defer p.Close()

	offer, err := p.CreateOffer()
	require.NoError(t, err)
	assert.Equal(t, "offer", offer.Type)
	assert.True(t, strings.Contains(offer.SDP, "m=audio"))
	assert.True(t, strings.Contains(offer.SDP, "m=video"))

	require.NoError(t, p.SetLocalDescription(offer))
	assert.Equal(t, webrtc.SignalingStateHaveLocalOffer, p.SignalingState())
}

func TestWebRTCConfig(t *testing.T) {
	cfg := WebRTCConfig(config.ICEConfig{
		STUN:     []string{"stun:stun.example:3478"},
		TURN:     []string{"turn:turn.example:3478"},
		TURNUser: "u",
		TURNPass: "p",
	})
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.example:3478"}, cfg.ICEServers[0].URLs)
	assert.Equal(t, "u", cfg.ICEServers[1].Username)
	assert.Equal(t, "p", cfg.ICEServers[1].Credential)

	assert.Empty(t, WebRTCConfig(config.ICEConfig{}).ICEServers)
}
