package protocol

import (
	"fmt"

	"github.com/dkeye/Meet/internal/domain"
)

// Outbound is a message sent by the server. The set is closed.
type Outbound interface {
	Kind() Kind
	payload() any
	outbound()
}

// ExistingPeers is sent to a newly admitted connection.
type ExistingPeers struct {
	Peers []domain.Peer
}

type UserJoined struct {
	domain.Peer
}

type UserLeft struct {
	domain.Peer
}

type HostChanged struct {
	RoomID domain.RoomID `json:"roomId"`
	HostID domain.UserID `json:"hostId"`
}

type RelayedOffer struct {
	From  domain.ConnID      `json:"from"`
	Offer SessionDescription `json:"offer"`
}

type RelayedAnswer struct {
	From   domain.ConnID      `json:"from"`
	Answer SessionDescription `json:"answer"`
}

type RelayedCandidate struct {
	From      domain.ConnID `json:"from"`
	Candidate ICECandidate  `json:"candidate"`
}

type ChatNew struct {
	Message domain.ChatMessage
}

type ChatTyping struct {
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	IsTyping bool          `json:"isTyping"`
}

// Error carries a human-readable reason as its whole payload.
type Error struct {
	Reason string
}

type Pong struct{}

type Left struct{}

func NewError(err error) *Error { return &Error{Reason: err.Error()} }

func (*ExistingPeers) Kind() Kind    { return KindExistingPeers }
func (*UserJoined) Kind() Kind       { return KindUserJoined }
func (*UserLeft) Kind() Kind         { return KindUserLeft }
func (*HostChanged) Kind() Kind      { return KindHostChanged }
func (*RelayedOffer) Kind() Kind     { return KindOffer }
func (*RelayedAnswer) Kind() Kind    { return KindAnswer }
func (*RelayedCandidate) Kind() Kind { return KindICECandidate }
func (*ChatNew) Kind() Kind          { return KindChatNew }
func (*ChatTyping) Kind() Kind       { return KindChatTyping }
func (*Error) Kind() Kind            { return KindError }
func (*Pong) Kind() Kind             { return KindPong }
func (*Left) Kind() Kind             { return KindLeft }

func (m *ExistingPeers) payload() any    { return &m.Peers }
func (m *UserJoined) payload() any       { return &m.Peer }
func (m *UserLeft) payload() any         { return &m.Peer }
func (m *HostChanged) payload() any      { return m }
func (m *RelayedOffer) payload() any     { return m }
func (m *RelayedAnswer) payload() any    { return m }
func (m *RelayedCandidate) payload() any { return m }
func (m *ChatNew) payload() any          { return &m.Message }
func (m *ChatTyping) payload() any       { return m }
func (m *Error) payload() any            { return &m.Reason }
func (*Pong) payload() any               { return nil }
func (*Left) payload() any               { return nil }

func (*ExistingPeers) outbound()    {}
func (*UserJoined) outbound()       {}
func (*UserLeft) outbound()         {}
func (*HostChanged) outbound()      {}
func (*RelayedOffer) outbound()     {}
func (*RelayedAnswer) outbound()    {}
func (*RelayedCandidate) outbound() {}
func (*ChatNew) outbound()          {}
func (*ChatTyping) outbound()       {}
func (*Error) outbound()            {}
func (*Pong) outbound()             {}
func (*Left) outbound()             {}

func newOutbound(k Kind) (Outbound, error) {
	switch k {
	case KindExistingPeers:
		return &ExistingPeers{}, nil
	case KindUserJoined:
		return &UserJoined{}, nil
	case KindUserLeft:
		return &UserLeft{}, nil
	case KindHostChanged:
		return &HostChanged{}, nil
	case KindOffer:
		return &RelayedOffer{}, nil
	case KindAnswer:
		return &RelayedAnswer{}, nil
	case KindICECandidate:
		return &RelayedCandidate{}, nil
	case KindChatNew:
		return &ChatNew{}, nil
	case KindChatTyping:
		return &ChatTyping{}, nil
	case KindError:
		return &Error{}, nil
	case KindPong:
		return &Pong{}, nil
	case KindLeft:
		return &Left{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}
