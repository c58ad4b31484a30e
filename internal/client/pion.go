package client

import (
	"sync"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCConfig builds the pion configuration from the ICE settings.
func WebRTCConfig(cfg config.ICEConfig) webrtc.Configuration {
	var servers []webrtc.ICEServer
	if len(cfg.STUN) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: cfg.STUN})
	}
	if len(cfg.TURN) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       cfg.TURN,
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
	}
	return webrtc.Configuration{ICEServers: servers}
}

// PionOptions tune the connections a pion factory opens.
type PionOptions struct {
	// LocalTracks are attached to every connection.
	LocalTracks []webrtc.TrackLocal
	OnTrack     func(remote domain.ConnID, track *webrtc.TrackRemote)
	OnState     func(remote domain.ConnID, state webrtc.PeerConnectionState)
}

// NewPionFactory opens real WebRTC connections. Each one receives audio and
// video, and sends opts.LocalTracks.
func NewPionFactory(cfg webrtc.Configuration, opts PionOptions) PeerFactory {
	return func(remote domain.ConnID) (PeerConnection, error) {
		return NewPionPeer(cfg, remote, opts)
	}
}

// PionPeer adapts *webrtc.PeerConnection to PeerConnection.
type PionPeer struct {
	pc     *webrtc.PeerConnection
	remote domain.ConnID

	mu    sync.RWMutex
	onICE func(protocol.ICECandidate)
}

func NewPionPeer(cfg webrtc.Configuration, remote domain.ConnID, opts PionOptions) (*PionPeer, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	p := &PionPeer{pc: pc, remote: remote}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}
	for _, track := range opts.LocalTracks {
		if _, err := pc.AddTrack(track); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		p.mu.RLock()
		fn := p.onICE
		p.mu.RUnlock()
		if fn != nil {
			fn(fromPionCandidate(cand.ToJSON()))
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("peer", string(remote)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if opts.OnState != nil {
			opts.OnState(remote, s)
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("peer", string(remote)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if opts.OnTrack != nil {
			opts.OnTrack(remote, track)
		}
	})

	return p, nil
}

func (p *PionPeer) CreateOffer() (protocol.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	return fromPionSDP(offer), nil
}

func (p *PionPeer) CreateAnswer() (protocol.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	return fromPionSDP(answer), nil
}

func (p *PionPeer) SetLocalDescription(d protocol.SessionDescription) error {
	return p.pc.SetLocalDescription(toPionSDP(d))
}

func (p *PionPeer) SetRemoteDescription(d protocol.SessionDescription) error {
	return p.pc.SetRemoteDescription(toPionSDP(d))
}

func (p *PionPeer) AddICECandidate(c protocol.ICECandidate) error {
	return p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	})
}

func (p *PionPeer) OnICECandidate(fn func(protocol.ICECandidate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onICE = fn
}

// SignalingState exposes pion's own view, which should track the controller's.
func (p *PionPeer) SignalingState() webrtc.SignalingState {
	return p.pc.SignalingState()
}

func (p *PionPeer) Close() error {
	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("peer", string(p.remote)).Msg("close error")
		return err
	}
	log.Info().Str("module", "webrtc").Str("peer", string(p.remote)).Msg("closed")
	return nil
}

func fromPionSDP(d webrtc.SessionDescription) protocol.SessionDescription {
	return protocol.SessionDescription{Type: d.Type.String(), SDP: d.SDP}
}

func toPionSDP(d protocol.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}
}

func fromPionCandidate(c webrtc.ICECandidateInit) protocol.ICECandidate {
	return protocol.ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
