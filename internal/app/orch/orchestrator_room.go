package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/app"
	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

// Connect registers an authenticated connection. When the client reports
// a room it was in before a page navigation, the subscription is restored
// if presence still agrees, otherwise the client is told the attachment
// is gone.
func (o *Orchestrator) Connect(ctx context.Context, cid core.ConnID, sess core.MemberSession, cancel context.CancelFunc, currentRoom domain.RoomID) error {
	if err := o.Registry.Register(ctx, cid, sess, cancel); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	uid := sess.User().ID

	if o.Bridge != nil {
		if err := o.Bridge.Watch(ctx, uid, func(ev protocol.ServerEvent) {
			if err := sess.Emit(ev); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("bridged emit failed")
			}
		}); err != nil {
			log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("bridge watch")
		}
	}

	if currentRoom != "" {
		ok, err := o.Store.IsMember(ctx, currentRoom, uid)
		if err != nil {
			return fmt.Errorf("restore room %s: %w", currentRoom, err)
		}
		if ok {
			o.Registry.Subscribe(cid, currentRoom)
			log.Info().Str("module", "orch").Str("user", string(uid)).Str("room", string(currentRoom)).Msg("restored room subscription")
		} else {
			_ = sess.Emit(protocol.RoomConnectionTerminated{RoomID: currentRoom})
		}
	}
	return nil
}

// Disconnect runs the eviction routine once per room the connection had
// joined, then removes the registry mapping last.
func (o *Orchestrator) Disconnect(ctx context.Context, cid core.ConnID) {
	user, ok := o.Registry.User(cid)
	if !ok {
		// Never finished the auth handshake; nothing to clean up.
		return
	}
	for _, roomID := range o.Registry.RoomsOf(cid) {
		o.Registry.Unsubscribe(cid, roomID)
		o.kickOut(ctx, user.ID, roomID)
	}
	if o.Bridge != nil {
		o.Bridge.Unwatch(ctx, user.ID)
	}
	o.Registry.Unregister(ctx, cid)
}

type CreateRoomRequest struct {
	ID      string
	Name    string
	Options domain.RoomOptions
}

// CreateRoom creates a room with the caller as first member. Membership
// is written last: any failure before it leaves no visible room, and the
// metadata write is rolled back if the membership write fails.
func (o *Orchestrator) CreateRoom(ctx context.Context, cid core.ConnID, req CreateRoomRequest) (*domain.Room, error) {
	user, err := o.sessionUser(cid)
	if err != nil {
		return nil, err
	}

	id, err := app.DeriveRoomID(req.ID)
	if err != nil {
		return nil, err
	}

	existing, err := o.Store.GetRoom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}

	room, err := o.Rooms.Create(ctx, &domain.Room{
		ID:        id,
		Name:      req.Name,
		CreatedBy: user.ID,
		Options:   req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	o.Registry.Subscribe(cid, room.ID)
	if err := o.Store.AddMember(ctx, room.ID, user.ID); err != nil {
		o.Registry.Unsubscribe(cid, room.ID)
		// Roll back the metadata write only if this call created the
		// room; an id that already existed may be occupied, so restore
		// its prior metadata instead.
		if existing == nil {
			_ = o.Store.DeleteRoom(ctx, room.ID)
		} else {
			_ = o.Store.CreateRoom(ctx, existing)
		}
		return nil, fmt.Errorf("add creator to room: %w", err)
	}

	_ = o.emitToUser(ctx, user.ID, protocol.RoomConnectionEstablished{Room: room})
	log.Info().Str("module", "orch").Str("room", string(room.ID)).Str("user", string(user.ID)).Msg("room created")
	return room, nil
}

// JoinRoom admits a connection to a room. Ordering matters: stale members
// are evicted first, then current members learn about the newcomer so
// they can start negotiating before the newcomer is counted as present.
func (o *Orchestrator) JoinRoom(ctx context.Context, cid core.ConnID, userName string, roomID domain.RoomID) (*domain.Room, error) {
	user, err := o.sessionUser(cid)
	if err != nil {
		return nil, err
	}
	if userName != "" {
		if err := user.SetUsername(userName); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
		}
	}

	allowed, err := o.Gate.CanJoin(ctx, user, roomID)
	if err != nil {
		return nil, fmt.Errorf("authorization gate: %w", err)
	}
	if !allowed {
		return nil, domain.ErrAuthorizationDenied
	}

	room, err := o.Rooms.Ensure(ctx, roomID, "", user.ID)
	if err != nil {
		return nil, fmt.Errorf("ensure room: %w", err)
	}

	if err := o.reconcileStale(ctx, roomID); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("stale reconciliation")
	}

	fits, err := o.Rooms.HasCapacity(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("capacity check: %w", err)
	}
	if !fits {
		return nil, domain.ErrRoomFull
	}

	o.broadcastRoom(ctx, roomID, protocol.EstablishPeerConnection{UserID: user.ID, UserName: user.Username}, user.ID)
	o.Registry.Subscribe(cid, roomID)
	_ = o.emitToUser(ctx, user.ID, protocol.RoomConnectionEstablished{Room: room})
	if err := o.Store.AddMember(ctx, roomID, user.ID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	log.Info().Str("module", "orch").Str("room", string(roomID)).Str("user", string(user.ID)).Msg("joined room")
	return room, nil
}

// reconcileStale evicts presence members whose owning connection no
// longer exists anywhere. O(room size), runs before each admission.
func (o *Orchestrator) reconcileStale(ctx context.Context, roomID domain.RoomID) error {
	members, err := o.Store.Members(ctx, roomID)
	if err != nil {
		return err
	}
	for _, m := range members {
		live, err := o.Registry.IsConnected(ctx, m)
		if err != nil {
			return err
		}
		if !live {
			log.Info().Str("module", "orch").Str("room", string(roomID)).Str("user", string(m)).Msg("evicting stale member")
			o.kickOut(ctx, m, roomID)
		}
	}
	return nil
}

// LeaveRoom detaches a connection from one room without closing it.
func (o *Orchestrator) LeaveRoom(ctx context.Context, cid core.ConnID, roomID domain.RoomID) error {
	user, err := o.sessionUser(cid)
	if err != nil {
		return err
	}
	o.Registry.Unsubscribe(cid, roomID)
	o.kickOut(ctx, user.ID, roomID)
	return nil
}

// kickOut is the shared eviction routine: peers tear down their WebRTC
// objects for this user, the user itself learns the attachment is gone,
// presence is updated, and an emptied room is reaped. Safe to call for a
// user that already left.
func (o *Orchestrator) kickOut(ctx context.Context, uid domain.UserID, roomID domain.RoomID) {
	isMember, err := o.Store.IsMember(ctx, roomID, uid)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Str("user", string(uid)).Msg("membership check")
		return
	}
	if !isMember {
		// Already evicted; just reconfirm to the departer.
		_ = o.emitToUser(ctx, uid, protocol.RoomConnectionTerminated{RoomID: roomID})
		return
	}
	o.broadcastRoom(ctx, roomID, protocol.TerminatePeerConnection{UserID: uid}, uid)
	_ = o.emitToUser(ctx, uid, protocol.RoomConnectionTerminated{RoomID: roomID})
	if err := o.Store.RemoveMember(ctx, roomID, uid); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Str("user", string(uid)).Msg("remove member")
		return
	}
	if err := o.Rooms.ReapIfEmpty(ctx, roomID); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("reap")
	}
}

// EndSession broadcasts the advisory termination notice. It does not
// force anyone out; cleanup still goes through leave and disconnect.
func (o *Orchestrator) EndSession(ctx context.Context, cid core.ConnID, roomID domain.RoomID) error {
	user, err := o.sessionUser(cid)
	if err != nil {
		return err
	}
	room, err := o.Store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if !user.CanEndSession(room) {
		return domain.ErrAuthorizationDenied
	}
	o.broadcastRoom(ctx, roomID, protocol.SessionEnded{RoomID: roomID}, "")
	log.Info().Str("module", "orch").Str("room", string(roomID)).Str("user", string(user.ID)).Msg("session ended")
	return nil
}
