package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// SignalClient is the client end of the signaling websocket.
type SignalClient struct {
	conn     *websocket.Conn
	codec    protocol.Codec
	incoming chan protocol.Outbound
	outgoing chan []byte
	done     chan struct{}
	once     sync.Once
}

// Dial connects to url authenticating with token. subprotocol selects the
// codec; empty means JSON.
func Dial(ctx context.Context, url, token, subprotocol string) (*SignalClient, error) {
	dialer := *websocket.DefaultDialer
	if subprotocol != "" {
		dialer.Subprotocols = []string{subprotocol}
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &SignalClient{
		conn:     conn,
		codec:    protocol.CodecFor(conn.Subprotocol()),
		incoming: make(chan protocol.Outbound, 32),
		outgoing: make(chan []byte, 32),
		done:     make(chan struct{}),
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *SignalClient) Codec() protocol.Codec { return c.codec }

// Incoming yields decoded server messages; it is closed when the
// connection ends.
func (c *SignalClient) Incoming() <-chan protocol.Outbound { return c.incoming }

// Send queues a message for the server.
func (c *SignalClient) Send(msg protocol.Inbound) error {
	data, err := protocol.EncodeInbound(c.codec, msg)
	if err != nil {
		return err
	}
	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return ErrNotConnected
	}
}

// Close ends the connection with a normal closure.
func (c *SignalClient) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *SignalClient) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		close(c.incoming)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "client.signal").Msg("read")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		msg, err := protocol.DecodeOutbound(c.codec, data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client.signal").Msg("bad frame")
			continue
		}
		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *SignalClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}

	for {
		select {
		case data := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(mt, data); err != nil {
				log.Warn().Err(err).Str("module", "client.signal").Msg("write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
