package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/chat"
	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/app/meeting"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/dkeye/Meet/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t        *testing.T
	srv      *httptest.Server
	verifier *auth.Verifier
	orch     *orch.Orchestrator
}

func startServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Mode: "test", ReadLimit: 1 << 20, PingPeriod: time.Minute, Secret: "cookie-secret"}

	repo := memory.NewRepository()
	meetings := meeting.NewService(repo, time.Minute)
	verifier, err := auth.NewVerifier("jwt-secret", "meet")
	require.NoError(t, err)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms.NewRegistry(meetings),
		Policy:   app.SimplePolicy{},
		Chat:     chat.NewRelay(repo, 100),
		Cleanup:  lifecycle.NewScheduler(60*time.Second, repo, nil),
		Presence: presence.NewHub(16),
	}
	o.Typing = chat.NewTyping(5*time.Second, o.OnTyping)
	t.Cleanup(o.Cleanup.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, &router.Services{
		Orch:     o,
		Meetings: meetings,
		Verifier: verifier,
	}))
	t.Cleanup(srv.Close)
	return &server{t: t, srv: srv, verifier: verifier, orch: o}
}

func (s *server) api(user domain.UserID) *API {
	tok, err := s.verifier.Issue(user, time.Hour)
	require.NoError(s.t, err)
	return NewAPI(s.srv.URL, tok)
}

// participant is one headless client: REST API, signaling socket and a
// controller over fake peer connections.
type participant struct {
	t      *testing.T
	api    *API
	sig    *SignalClient
	ctl    *Controller
	cancel context.CancelFunc

	mu          sync.Mutex
	received    []protocol.Outbound
	transitions map[domain.ConnID][]string
	pcs         map[domain.ConnID]*fakePC
}

func (s *server) participant(user domain.UserID, subprotocol string) *participant {
	p := &participant{
		t:           s.t,
		api:         s.api(user),
		transitions: map[domain.ConnID][]string{},
		pcs:         map[domain.ConnID]*fakePC{},
	}
	p.connect(subprotocol)
	return p
}

func (p *participant) connect(subprotocol string) {
	ctx, cancel := context.WithCancel(context.Background())
	sig, err := Dial(ctx, p.api.SignalURL(), p.api.Token, subprotocol)
	require.NoError(p.t, err)
	p.sig = sig
	p.cancel = cancel
	p.ctl = NewController(sig, func(remote domain.ConnID) (PeerConnection, error) {
		pc := &fakePC{}
		p.mu.Lock()
		p.pcs[remote] = pc
		p.mu.Unlock()
		return pc, nil
	}, Hooks{
		OnState: func(remote domain.ConnID, from, to SignalingState) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.transitions[remote] = append(p.transitions[remote], from.String()+">"+to.String())
		},
	})

	tap := make(chan protocol.Outbound, 32)
	go func() {
		defer close(tap)
		for m := range sig.Incoming() {
			p.mu.Lock()
			p.received = append(p.received, m)
			p.mu.Unlock()
			tap <- m
		}
	}()
	go p.ctl.Run(ctx, tap)
	p.t.Cleanup(p.disconnect)
}

func (p *participant) disconnect() {
	p.sig.Close()
	p.cancel()
}

func (p *participant) waitFor(kind protocol.Kind) protocol.Outbound {
	p.t.Helper()
	var found protocol.Outbound
	require.Eventually(p.t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, m := range p.received {
			if m.Kind() == kind {
				found = m
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "no %s", kind)
	return found
}

func (p *participant) transitionsFor(remote domain.ConnID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.transitions[remote]...)
}

func TestRoomAdmissionScenario(t *testing.T) {
	s := startServer(t)
	ctx := context.Background()

	room, err := s.api("x").CreateMeeting(ctx, domain.RoomTypeP2P, "")
	require.NoError(t, err)
	_, err = s.api("x").JoinMeeting(ctx, room)
	require.NoError(t, err)
	_, err = s.api("y").JoinMeeting(ctx, room)
	require.NoError(t, err)
	_, err = s.api("z").JoinMeeting(ctx, room)
	require.NoError(t, err)

	x := s.participant("x", "")
	require.NoError(t, x.sig.Send(&protocol.JoinRoom{RoomID: room}))
	assert.Empty(t, x.waitFor(protocol.KindExistingPeers).(*protocol.ExistingPeers).Peers)

	y := s.participant("y", protocol.SubprotocolMsgpack)
	require.NoError(t, y.sig.Send(&protocol.JoinRoom{RoomID: room}))
	peers := y.waitFor(protocol.KindExistingPeers).(*protocol.ExistingPeers).Peers
	require.Len(t, peers, 1)
	assert.Equal(t, domain.UserID("x"), peers[0].UserID)

	joined := x.waitFor(protocol.KindUserJoined).(*protocol.UserJoined)
	assert.Equal(t, domain.UserID("y"), joined.UserID)

	z := s.participant("z", "")
	require.NoError(t, z.sig.Send(&protocol.JoinRoom{RoomID: room}))
	assert.Equal(t, domain.ErrRoomFull.Error(), z.waitFor(protocol.KindError).(*protocol.Error).Reason)

	list, err := s.api("z").Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Peers)
}

func TestJoinBeforeRESTJoinScenario(t *testing.T) {
	s := startServer(t)
	room, err := s.api("x").CreateMeeting(context.Background(), "", "")
	require.NoError(t, err)

	y := s.participant("y", "")
	require.NoError(t, y.sig.Send(&protocol.JoinRoom{RoomID: room}))
	assert.Equal(t, domain.ErrForbidden.Error(), y.waitFor(protocol.KindError).(*protocol.Error).Reason)
}

func TestNegotiationScenario(t *testing.T) {
	s := startServer(t)
	ctx := context.Background()
	room, err := s.api("x").CreateMeeting(ctx, domain.RoomTypeP2P, "")
	require.NoError(t, err)
	_, err = s.api("y").JoinMeeting(ctx, room)
	require.NoError(t, err)

	x := s.participant("x", "")
	require.NoError(t, x.sig.Send(&protocol.JoinRoom{RoomID: room}))
	x.waitFor(protocol.KindExistingPeers)

	y := s.participant("y", "")
	require.NoError(t, y.sig.Send(&protocol.JoinRoom{RoomID: room}))
	xConn := y.waitFor(protocol.KindExistingPeers).(*protocol.ExistingPeers).Peers[0].ConnID
	yConn := x.waitFor(protocol.KindUserJoined).(*protocol.UserJoined).ConnID

	// x offers to the newcomer; y answers.
	offer := y.waitFor(protocol.KindOffer).(*protocol.RelayedOffer)
	assert.Equal(t, xConn, offer.From)
	assert.Equal(t, protocol.SessionDescription{Type: "offer", SDP: "local-offer"}, offer.Offer)

	answer := x.waitFor(protocol.KindAnswer).(*protocol.RelayedAnswer)
	assert.Equal(t, yConn, answer.From)
	assert.Equal(t, "local-answer", answer.Answer.SDP)

	require.Eventually(t, func() bool { return len(x.transitionsFor(yConn)) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"stable>have-local-offer", "have-local-offer>stable"}, x.transitionsFor(yConn))
	assert.Equal(t, []string{"stable>have-remote-offer", "have-remote-offer>stable"}, y.transitionsFor(xConn))

	// Candidates travel once both sides are stable.
	y.mu.Lock()
	ypc := y.pcs[xConn]
	y.mu.Unlock()
	ypc.gather("candidate:1")
	got := x.waitFor(protocol.KindICECandidate).(*protocol.RelayedCandidate)
	assert.Equal(t, yConn, got.From)
	assert.Equal(t, "candidate:1", got.Candidate.Candidate)

	// Peer-left closes the connection on the other side.
	y.disconnect()
	x.waitFor(protocol.KindUserLeft)
	require.Eventually(t, func() bool {
		_, ok := x.ctl.State(yConn)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRejoinWithinGraceScenario(t *testing.T) {
	s := startServer(t)
	ctx := context.Background()
	room, err := s.api("x").CreateMeeting(ctx, domain.RoomTypeP2P, "")
	require.NoError(t, err)

	x := s.participant("x", "")
	require.NoError(t, x.sig.Send(&protocol.JoinRoom{RoomID: room}))
	x.waitFor(protocol.KindExistingPeers)
	require.NoError(t, x.sig.Send(&protocol.ChatSend{RoomID: room, Message: "before the blip"}))
	x.waitFor(protocol.KindChatNew)

	x.disconnect()
	require.Eventually(t, func() bool { return s.orch.Cleanup.Pending(room) }, 2*time.Second, 10*time.Millisecond)
	_, live := s.orch.Rooms.Get(room)
	assert.False(t, live)

	x2 := s.participant("x", "")
	require.NoError(t, x2.sig.Send(&protocol.JoinRoom{RoomID: room}))
	x2.waitFor(protocol.KindExistingPeers)
	assert.False(t, s.orch.Cleanup.Pending(room))

	msgs, err := x2.api.Messages(ctx, room, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "before the blip", msgs[0].Body)
}
