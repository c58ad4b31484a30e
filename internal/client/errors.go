package client

import (
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrNoOutstandingOffer = errors.New("answer without outstanding offer")
	ErrUnknownPeer        = errors.New("unknown peer")
	ErrNotConnected       = errors.New("signal client not connected")
)

var admissionErrors = []error{
	domain.ErrUnauthorized,
	domain.ErrNotFound,
	domain.ErrForbidden,
	domain.ErrRoomFull,
	domain.ErrMeetingEnded,
}

// IsAdmissionError reports whether an error reason from the server means
// the room cannot be entered or stayed in.
func IsAdmissionError(reason string) bool {
	for _, err := range admissionErrors {
		if reason == err.Error() {
			return true
		}
	}
	return false
}

// NegotiationError is returned by controller operations on one peer.
type NegotiationError struct {
	Op   string
	Peer domain.ConnID
	Err  error
}

func (e *NegotiationError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

func newError(op string, peer domain.ConnID, err error) *NegotiationError {
	return &NegotiationError{Op: op, Peer: peer, Err: err}
}
