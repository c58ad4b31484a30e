package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait   = 5 * time.Second
	sendBuffer  = 64
	handleLimit = 10 * time.Second
)

type SignalWSController struct {
	Orch       *orch.Orchestrator
	ReadLimit  int64
	PingPeriod time.Duration
	upgrader   websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	ctl := &SignalWSController{
		Orch:       o,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
	if ctl.PingPeriod <= 0 {
		ctl.PingPeriod = 54 * time.Second
	}
	ctl.upgrader = websocket.Upgrader{
		Subprotocols: protocol.Subprotocols(),
		CheckOrigin:  func(r *http.Request) bool { return true },
	}
	return ctl
}

// pongWait is how long a connection may stay silent before it is dropped.
func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.PingPeriod * 10 / 9
}

// WsSignalConn implements core.SignalConnection over a websocket.
type WsSignalConn struct {
	conn  *websocket.Conn
	codec protocol.Codec
	send  chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, codec protocol.Codec, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, codec: codec, send: make(chan []byte, buffer)}
}

func (c *WsSignalConn) Send(msg protocol.Outbound) error {
	data, err := protocol.EncodeOutbound(c.codec, msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(msg.Kind())).Msg("encode")
		return err
	}
	return c.TrySend(data)
}

func (c *WsSignalConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- data:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *WsSignalConn) messageType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// HandleSignal upgrades the request and runs the connection until it closes.
// user must already be authenticated.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, user *domain.User) {
	connID := domain.NewConnID()

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	codec := protocol.CodecFor(ws.Subprotocol())
	log.Info().
		Str("module", "signal").
		Str("conn", string(connID)).
		Str("user", string(user.ID)).
		Str("codec", codec.Name()).
		Msg("new WS connection")

	conn := newWsSignalConn(ws, codec, sendBuffer)
	sess := core.NewMemberSession(connID, user, conn)

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
