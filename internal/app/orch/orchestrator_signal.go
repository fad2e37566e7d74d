package orch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

// SendMessage relays opaque data to every other room member,
// point-to-point so each recipient gets its own liveness check. Dead
// recipients are evicted on the way and the relay continues.
func (o *Orchestrator) SendMessage(ctx context.Context, cid core.ConnID, roomID domain.RoomID, data json.RawMessage) error {
	user, err := o.sessionUser(cid)
	if err != nil {
		return err
	}

	members, err := o.Store.Members(ctx, roomID)
	if err != nil {
		return err
	}
	ev := protocol.MessageReceived{From: user.ID, Data: data}
	for _, to := range members {
		if to == user.ID {
			continue
		}
		live, err := o.Registry.IsConnected(ctx, to)
		if err != nil {
			return err
		}
		if !live {
			o.kickOut(ctx, to, roomID)
			continue
		}
		if err := o.emitToUser(ctx, to, ev); err != nil {
			o.onSendFailure(ctx, roomID, to, err)
		}
	}
	log.Debug().Str("module", "orch").Str("room", string(roomID)).Str("from", string(user.ID)).Msg("message relayed")
	return nil
}

// Relay forwards WebRTC negotiation metadata. With a target it is a
// unicast (answers always are, they respond to one offer); without one
// it fans out to every other member, as offers and candidates do during
// multi-party setup.
func (o *Orchestrator) Relay(ctx context.Context, cid core.ConnID, kind string, roomID domain.RoomID, target domain.UserID, payload json.RawMessage) error {
	user, err := o.sessionUser(cid)
	if err != nil {
		return err
	}

	ev := protocol.SignalRelay{
		Kind:     kind,
		SenderID: user.ID,
		RoomID:   roomID,
		Payload:  payload,
	}
	if target != "" {
		ok, err := o.Store.IsMember(ctx, roomID, target)
		if err != nil {
			return err
		}
		if !ok {
			log.Debug().Str("module", "orch").Str("room", string(roomID)).Str("target", string(target)).Msg("relay target not in room, dropped")
			return nil
		}
		if err := o.emitToUser(ctx, target, ev); err != nil {
			o.onSendFailure(ctx, roomID, target, err)
		}
		return nil
	}
	o.broadcastRoom(ctx, roomID, ev, user.ID)
	return nil
}
