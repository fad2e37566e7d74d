// Package classroom is the room-scoped chat/emoji adapter used by the
// in-class UI. It speaks a different wire protocol than the signaling
// socket but runs on the same router and presence state: one connection,
// one class room, joined on connect and left on disconnect.
package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/adapters/signal"
	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/config"
	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

const maxChatLen = 500

// Raised hand, thumbs up, clap, smile. Anything else is dropped.
var allowedEmojis = map[string]struct{}{
	"\U0001F64B": {},
	"\U0001F44D": {},
	"\U0001F44F": {},
	"\U0001F60A": {},
}

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
		upgrader:   websocket.Upgrader{CheckOrigin: signal.OriginChecker(cfg.AllowOrigin)},
	}
}

// relayed is the shape chat and signaling bodies travel in through the
// router's message relay.
type relayed struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	IsEmoji bool            `json:"is_emoji,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type classConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *classConn) trySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return errors.New("backpressure")
	}
	return nil
}

func (c *classConn) close() {
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

type classSession struct {
	user *domain.User
	conn *classConn
}

func (s *classSession) User() *domain.User { return s.user }
func (s *classSession) Close()             { s.conn.close() }

// Emit maps router events onto this protocol's wire shapes. Join and
// leave become system chat notices; events with no chat-side meaning are
// dropped.
func (s *classSession) Emit(ev protocol.ServerEvent) error {
	switch e := ev.(type) {
	case protocol.MessageReceived:
		var body relayed
		if err := json.Unmarshal(e.Data, &body); err != nil {
			return err
		}
		switch body.Kind {
		case "chat":
			return s.send(map[string]any{
				"type":     "chat",
				"message":  body.Message,
				"sender":   body.Sender,
				"is_emoji": body.IsEmoji,
			})
		case "signaling":
			return s.send(map[string]any{
				"type":   "signaling",
				"data":   body.Data,
				"sender": body.Sender,
			})
		}
		return nil
	case protocol.EstablishPeerConnection:
		return s.send(map[string]any{
			"type":    "chat",
			"message": e.UserName + " joined the class",
			"sender":  "system",
		})
	case protocol.TerminatePeerConnection:
		return s.send(map[string]any{
			"type":    "chat",
			"message": string(e.UserID) + " left the class",
			"sender":  "system",
		})
	case protocol.SessionEnded:
		return s.send(map[string]any{"type": "session-ended"})
	case protocol.RoomConnectionTerminated:
		return s.send(map[string]any{"type": "room_connection_terminated", "roomId": e.RoomID})
	case protocol.ErrorReply:
		return s.send(map[string]any{"type": "error", "error": e.Name, "message": e.Message})
	default:
		return nil
	}
}

func (s *classSession) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.trySend(b)
}

var _ core.MemberSession = (*classSession)(nil)

// Handle authenticates, joins the class room and services the socket
// until it closes.
func (ctl *WSController) Handle(ctx context.Context, c *gin.Context) {
	classID := domain.RoomID(c.Param("id"))
	user, err := ctl.Tokens.Verify(c.Query("token"))
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.classroom").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	cid := core.ConnID(uuid.NewString())
	conn := &classConn{conn: ws, send: make(chan []byte, 32)}
	sess := &classSession{user: user, conn: conn}
	ctx, cancel := context.WithCancel(ctx)

	if err := ctl.Orch.Connect(ctx, cid, sess, cancel, ""); err != nil {
		log.Error().Err(err).Str("module", "adapters.classroom").Str("user", string(user.ID)).Msg("connect")
		cancel()
		conn.close()
		return
	}
	if _, err := ctl.Orch.JoinRoom(ctx, cid, user.Username, classID); err != nil {
		log.Warn().Err(err).Str("module", "adapters.classroom").Str("class", string(classID)).Str("user", string(user.ID)).Msg("join rejected")
		// The write pump is not running yet, so the error frame has to go
		// out synchronously before the close handshake.
		if frame, mErr := json.Marshal(map[string]any{
			"type":    "error",
			"error":   domain.ErrorName(err),
			"message": "access denied",
		}); mErr == nil {
			_ = ws.WriteMessage(websocket.TextMessage, frame)
		}
		ctl.Orch.Disconnect(context.WithoutCancel(ctx), cid)
		cancel()
		conn.close()
		return
	}
	log.Info().Str("module", "adapters.classroom").Str("class", string(classID)).Str("user", string(user.ID)).Msg("connected to class")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cid, classID, sess)
}

func (ctl *WSController) writePump(ctx context.Context, c *classConn) {
	pingPeriod := ctl.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "adapters.classroom").Msg("write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, cancel context.CancelFunc, cid core.ConnID, classID domain.RoomID, sess *classSession) {
	defer func() {
		ctl.Orch.Disconnect(context.WithoutCancel(ctx), cid)
		cancel()
		sess.conn.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := sess.conn.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleMessage(ctx, cid, classID, sess, data)
		}
	}
}

func (ctl *WSController) handleMessage(ctx context.Context, cid core.ConnID, classID domain.RoomID, sess *classSession, data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Emoji   string          `json:"emoji"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "adapters.classroom").Msg("bad json")
		return
	}

	sender := string(sess.user.ID)
	switch msg.Type {
	case "chat":
		text := msg.Message
		// Over-long messages are dropped silently, never truncated.
		if text == "" || utf8.RuneCountInString(text) > maxChatLen {
			return
		}
		ctl.relay(ctx, cid, classID, sess, relayed{Kind: "chat", Message: text, Sender: sender})
	case "emoji":
		if _, ok := allowedEmojis[msg.Emoji]; !ok {
			log.Warn().Str("module", "adapters.classroom").Str("emoji", msg.Emoji).Msg("emoji not allowed")
			return
		}
		ctl.relay(ctx, cid, classID, sess, relayed{Kind: "chat", Message: msg.Emoji, Sender: sender, IsEmoji: true})
	case "signaling":
		if len(msg.Data) == 0 {
			return
		}
		ctl.relay(ctx, cid, classID, sess, relayed{Kind: "signaling", Data: msg.Data, Sender: sender})
	default:
		log.Warn().Str("module", "adapters.classroom").Str("type", msg.Type).Msg("unknown message type")
	}
}

// relay fans the body out through the router and echoes it back to the
// sender, which expects to see its own chat lines.
func (ctl *WSController) relay(ctx context.Context, cid core.ConnID, classID domain.RoomID, sess *classSession, body relayed) {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.classroom").Msg("marshal relay body")
		return
	}
	if err := ctl.Orch.SendMessage(ctx, cid, classID, raw); err != nil {
		log.Warn().Err(err).Str("module", "adapters.classroom").Msg("relay failed")
		return
	}
	_ = sess.Emit(protocol.MessageReceived{From: sess.user.ID, Data: raw})
}
