package protocol

import (
	"fmt"

	"github.com/dkeye/Meet/internal/domain"
)

// Inbound is a message sent by a client. The set is closed.
type Inbound interface {
	Kind() Kind
	payload() any
	inbound()
}

type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

type LeaveRoom struct{}

type Offer struct {
	To    domain.ConnID      `json:"to"`
	Offer SessionDescription `json:"offer"`
}

type Answer struct {
	To     domain.ConnID      `json:"to"`
	Answer SessionDescription `json:"answer"`
}

type Candidate struct {
	To        domain.ConnID `json:"to"`
	Candidate ICECandidate  `json:"candidate"`
}

type ChatSend struct {
	RoomID     domain.RoomID      `json:"roomId"`
	Message    string             `json:"message,omitempty"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type TypingStart struct {
	RoomID domain.RoomID `json:"roomId"`
}

type TypingStop struct {
	RoomID domain.RoomID `json:"roomId"`
}

type Ping struct{}

func (*JoinRoom) Kind() Kind    { return KindJoinRoom }
func (*LeaveRoom) Kind() Kind   { return KindLeaveRoom }
func (*Offer) Kind() Kind       { return KindOffer }
func (*Answer) Kind() Kind      { return KindAnswer }
func (*Candidate) Kind() Kind   { return KindICECandidate }
func (*ChatSend) Kind() Kind    { return KindChatSend }
func (*TypingStart) Kind() Kind { return KindTypingStart }
func (*TypingStop) Kind() Kind  { return KindTypingStop }
func (*Ping) Kind() Kind        { return KindPing }

func (m *JoinRoom) payload() any    { return m }
func (*LeaveRoom) payload() any     { return nil }
func (m *Offer) payload() any       { return m }
func (m *Answer) payload() any      { return m }
func (m *Candidate) payload() any   { return m }
func (m *ChatSend) payload() any    { return m }
func (m *TypingStart) payload() any { return m }
func (m *TypingStop) payload() any  { return m }
func (*Ping) payload() any          { return nil }

func (*JoinRoom) inbound()    {}
func (*LeaveRoom) inbound()   {}
func (*Offer) inbound()       {}
func (*Answer) inbound()      {}
func (*Candidate) inbound()   {}
func (*ChatSend) inbound()    {}
func (*TypingStart) inbound() {}
func (*TypingStop) inbound()  {}
func (*Ping) inbound()        {}

func newInbound(k Kind) (Inbound, error) {
	switch k {
	case KindJoinRoom:
		return &JoinRoom{}, nil
	case KindLeaveRoom:
		return &LeaveRoom{}, nil
	case KindOffer:
		return &Offer{}, nil
	case KindAnswer:
		return &Answer{}, nil
	case KindICECandidate:
		return &Candidate{}, nil
	case KindChatSend:
		return &ChatSend{}, nil
	case KindTypingStart:
		return &TypingStart{}, nil
	case KindTypingStop:
		return &TypingStop{}, nil
	case KindPing:
		return &Ping{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}
