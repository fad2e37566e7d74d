package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/config"
	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

// WSController is the room-event protocol adapter: one WebSocket per
// client, many logical rooms per connection, typed events both ways.
type WSController struct {
	Orch       *orch.Orchestrator
	Tokens     *auth.TokenVerifier
	ReadLimit  int64
	PingPeriod time.Duration

	upgrader websocket.Upgrader
}

func NewWSController(o *orch.Orchestrator, tokens *auth.TokenVerifier, cfg *config.Config) *WSController {
	return &WSController{
		Orch:       o,
		Tokens:     tokens,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		upgrader:   websocket.Upgrader{CheckOrigin: OriginChecker(cfg.AllowOrigin)},
	}
}

// OriginChecker builds the upgrade origin check from the configured
// allowed origin. "*" or empty disables the check.
func OriginChecker(allow string) func(*http.Request) bool {
	if allow == "" || allow == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return r.Header.Get("Origin") == allow
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) trySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) close() {
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

// wsSession binds the authenticated user to its socket; this is what the
// registry stores and the router emits to.
type wsSession struct {
	user *domain.User
	conn *wsConn
}

func (s *wsSession) User() *domain.User { return s.user }

func (s *wsSession) Emit(ev protocol.ServerEvent) error {
	b, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return s.conn.trySend(b)
}

func (s *wsSession) Close() { s.conn.close() }

var _ core.MemberSession = (*wsSession)(nil)

// connState tracks one socket through its lifecycle. Events arrive and
// are handled strictly in order on the read pump goroutine.
type connState struct {
	id      core.ConnID
	conn    *wsConn
	session *wsSession // nil until the auth handshake completes
}

// Handle upgrades the request and services the connection. A session
// token may arrive as a query parameter or later via an auth event; no
// room event is processed before one verifies.
func (ctl *WSController) Handle(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	st := &connState{
		id:   core.ConnID(uuid.NewString()),
		conn: &wsConn{conn: ws, send: make(chan []byte, 32)},
	}
	log.Info().Str("module", "adapters.signal").Str("cid", string(st.id)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)

	if token := c.Query("token"); token != "" {
		if err := ctl.authenticate(ctx, st, cancel, token, c.Query("currentRoomId")); err != nil {
			log.Warn().Err(err).Str("module", "adapters.signal").Str("cid", string(st.id)).Msg("connect auth failed")
			ctl.sendError(st.conn, err)
		}
	}

	go ctl.writePump(ctx, st.conn)
	go ctl.readPump(ctx, cancel, st)
}

func (ctl *WSController) authenticate(ctx context.Context, st *connState, cancel context.CancelFunc, token, currentRoom string) error {
	if st.session != nil {
		return nil
	}
	user, err := ctl.Tokens.Verify(token)
	if err != nil {
		return domain.ErrAuthenticationRequired
	}
	sess := &wsSession{user: user, conn: st.conn}
	if err := ctl.Orch.Connect(ctx, st.id, sess, cancel, domain.RoomID(currentRoom)); err != nil {
		return err
	}
	st.session = sess
	return nil
}
