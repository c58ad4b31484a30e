package core

import (
	"errors"

	"github.com/dkeye/Meet/internal/protocol"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// Send encodes msg with the connection's codec and queues it without
	// blocking. ErrBackpressure is returned when the queue is full.
	Send(msg protocol.Outbound) error
	Close()
}
