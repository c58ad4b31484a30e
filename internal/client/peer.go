package client

import (
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
)

// PeerConnection is the slice of a WebRTC peer connection the controller
// drives. Create* only produce descriptions; committing them is a separate
// step.
type PeerConnection interface {
	CreateOffer() (protocol.SessionDescription, error)
	CreateAnswer() (protocol.SessionDescription, error)
	SetLocalDescription(protocol.SessionDescription) error
	SetRemoteDescription(protocol.SessionDescription) error
	AddICECandidate(protocol.ICECandidate) error
	// OnICECandidate registers the handler for locally gathered candidates.
	OnICECandidate(func(protocol.ICECandidate))
	Close() error
}

// PeerFactory opens a connection towards one remote peer.
type PeerFactory func(remote domain.ConnID) (PeerConnection, error)

// SignalingState mirrors the offer/answer states of a peer connection.
type SignalingState int

const (
	StateStable SignalingState = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
	StateClosed
)

func (s SignalingState) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteOffer:
		return "have-remote-offer"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type peer struct {
	id        domain.ConnID
	user      domain.UserID
	pc        PeerConnection
	state     SignalingState
	remoteSet bool
	// pending holds candidates that arrived before the remote description.
	pending []protocol.ICECandidate
}
