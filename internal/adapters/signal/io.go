package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

var validate = validator.New()

func (ctl *WSController) writePump(ctx context.Context, c *wsConn) {
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
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "adapters.signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, cancel context.CancelFunc, st *connState) {
	defer func() {
		log.Info().Str("module", "adapters.signal").Str("cid", string(st.id)).Msg("readPump closing")
		ctl.Orch.Disconnect(context.WithoutCancel(ctx), st.id)
		cancel()
		st.conn.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := st.conn.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "adapters.signal").Str("cid", string(st.id)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, cancel, st, data)
		}
	}
}

// handleEvent dispatches one inbound event. A failure is reported back to
// this connection only and never breaks the loop: one malformed event
// must not take down other rooms' traffic.
func (ctl *WSController) handleEvent(ctx context.Context, cancel context.CancelFunc, st *connState, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(st.conn, fmt.Errorf("%w: not json", domain.ErrMalformedEvent))
		return
	}

	if env.Type == "auth" {
		ctl.handleAuth(ctx, cancel, st, data)
		return
	}
	if env.Type == "ping" {
		_ = st.conn.trySend([]byte(`{"type":"pong"}`))
		return
	}
	if st.session == nil {
		ctl.sendError(st.conn, domain.ErrAuthenticationRequired)
		return
	}

	var err error
	switch env.Type {
	case "create_room":
		err = ctl.handleCreateRoom(ctx, st, data)
	case "join_room":
		err = ctl.handleJoinRoom(ctx, st, data)
	case "leave_room":
		err = ctl.handleLeaveRoom(ctx, st, data)
	case "send_message":
		err = ctl.handleSendMessage(ctx, st, data)
	case protocol.KindOffer, protocol.KindAnswer, protocol.KindICECandidate:
		err = ctl.handleRelay(ctx, st, env.Type, data)
	case "end-session":
		err = ctl.handleEndSession(ctx, st, data)
	default:
		err = fmt.Errorf("%w: unknown event %q", domain.ErrMalformedEvent, env.Type)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Str("cid", string(st.id)).Str("event", env.Type).Msg("event failed")
		ctl.sendError(st.conn, err)
	}
}

func (ctl *WSController) sendError(c *wsConn, err error) {
	name := domain.ErrorName(err)
	msg := err.Error()
	if name == "internal_error" {
		msg = "something went wrong"
	}
	b, mErr := encodeEvent(protocol.ErrorReply{Name: name, Message: msg})
	if mErr != nil {
		log.Error().Err(mErr).Str("module", "adapters.signal").Msg("encode error reply")
		return
	}
	_ = c.trySend(b)
}

// encodeEvent flattens a server event into this protocol's wire shape:
// the event name under "type" next to the event's own fields. Relay
// events carry their body under the conventional key for their kind.
func encodeEvent(ev protocol.ServerEvent) ([]byte, error) {
	if relay, ok := ev.(protocol.SignalRelay); ok {
		return encodeRelay(relay)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["type"] = ev.EventName()
	return json.Marshal(m)
}

func encodeRelay(relay protocol.SignalRelay) ([]byte, error) {
	key := relay.Kind
	if relay.Kind == protocol.KindICECandidate {
		key = "candidate"
	}
	m := map[string]any{
		"type":      relay.Kind,
		"sender_id": relay.SenderID,
		"roomId":    relay.RoomID,
		key:         relay.Payload,
	}
	return json.Marshal(m)
}
