// Package orch routes signaling events: it is the one place that decides
// who hears about joins, leaves, messages and WebRTC negotiation, and the
// one writer of presence state on behalf of connections.
package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/app"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Store    presence.Store
	Gate     auth.Gate
	Policy   app.Policy
	// Bridge is nil on single-instance deployments; unicast to a user
	// without a local socket is then dropped instead of forwarded.
	Bridge *presence.Bridge
}

// emitToUser delivers an event to one logical user: locally when this
// instance owns the socket, through the bridge otherwise. Best-effort,
// at-most-once.
func (o *Orchestrator) emitToUser(ctx context.Context, uid domain.UserID, ev protocol.ServerEvent) error {
	if sess, ok := o.Registry.SessionOfUser(uid); ok {
		return sess.Emit(ev)
	}
	if o.Bridge != nil {
		return o.Bridge.Publish(ctx, uid, ev)
	}
	log.Debug().Str("module", "orch").Str("user", string(uid)).Str("event", ev.EventName()).Msg("no route to user, dropped")
	return nil
}

// broadcastRoom fans an event out to every current room member except
// skip. Send failures hit only the affected member.
func (o *Orchestrator) broadcastRoom(ctx context.Context, roomID domain.RoomID, ev protocol.ServerEvent, skip domain.UserID) {
	members, err := o.Store.Members(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("broadcast: members lookup")
		return
	}
	for _, m := range members {
		if m == skip {
			continue
		}
		if err := o.emitToUser(ctx, m, ev); err != nil {
			o.onSendFailure(ctx, roomID, m, err)
		}
	}
}

func (o *Orchestrator) onSendFailure(ctx context.Context, roomID domain.RoomID, uid domain.UserID, err error) {
	log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Str("user", string(uid)).Msg("send failed")
	if o.Policy == nil {
		return
	}
	if o.Policy.OnBackpressure(roomID, uid) == app.EvictMember {
		o.kickOut(ctx, uid, roomID)
		// An evicted member loses its socket too; the close routes the
		// rest of the cleanup through the adapter's disconnect path.
		o.Registry.CancelUser(uid)
	}
}

// sessionUser resolves the caller or fails with the authentication error;
// every room event goes through this first.
func (o *Orchestrator) sessionUser(cid core.ConnID) (*domain.User, error) {
	user, ok := o.Registry.User(cid)
	if !ok {
		return nil, domain.ErrAuthenticationRequired
	}
	return user, nil
}
