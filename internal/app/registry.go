package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
)

type sessionEntry struct {
	user    *domain.User
	session core.MemberSession
	rooms   map[domain.RoomID]struct{}
	cancel  context.CancelFunc
}

// Registry owns the connection-to-user mapping and tracks which rooms a
// connection has subscribed to. It is the only writer of that mapping.
// Liveness is delegated to the shared store so stale members left behind
// by a crashed instance are still detectable.
type Registry struct {
	store presence.Store

	mu     sync.RWMutex
	conns  map[core.ConnID]*sessionEntry
	byUser map[domain.UserID]core.ConnID
}

func NewRegistry(store presence.Store) *Registry {
	return &Registry{
		store:  store,
		conns:  make(map[core.ConnID]*sessionEntry),
		byUser: make(map[domain.UserID]core.ConnID),
	}
}

// Register binds a connection after its auth handshake succeeded.
func (r *Registry) Register(ctx context.Context, cid core.ConnID, sess core.MemberSession, cancel context.CancelFunc) error {
	user := sess.User()
	r.mu.Lock()
	r.conns[cid] = &sessionEntry{
		user:    user,
		session: sess,
		rooms:   make(map[domain.RoomID]struct{}),
		cancel:  cancel,
	}
	r.byUser[user.ID] = cid
	r.mu.Unlock()

	if err := r.store.MarkConnected(ctx, user.ID); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(user.ID)).Msg("registered session")
	return nil
}

// Unregister removes the mapping on disconnect and returns the user that
// was bound, or ok=false when the connection never completed its
// handshake. Callers treat that as "already disconnected".
func (r *Registry) Unregister(ctx context.Context, cid core.ConnID) (domain.UserID, bool) {
	r.mu.Lock()
	entry, ok := r.conns[cid]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	delete(r.conns, cid)
	uid := entry.user.ID
	if r.byUser[uid] == cid {
		delete(r.byUser, uid)
	}
	r.mu.Unlock()

	if err := r.store.MarkDisconnected(ctx, uid); err != nil {
		log.Error().Err(err).Str("module", "app.registry").Str("user", string(uid)).Msg("mark disconnected")
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(uid)).Msg("unregistered session")
	return uid, true
}

func (r *Registry) User(cid core.ConnID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.user, true
	}
	return nil, false
}

// SessionOfUser resolves a logical id to its local session, used for
// unicast delivery. Misses mean the socket lives on another instance or
// is gone.
func (r *Registry) SessionOfUser(uid domain.UserID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.byUser[uid]
	if !ok {
		return nil, false
	}
	e, ok := r.conns[cid]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Subscribe marks a connection as a transport-level subscriber of a room.
func (r *Registry) Subscribe(cid core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		e.rooms[room] = struct{}{}
	}
}

func (r *Registry) Unsubscribe(cid core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok {
		delete(e.rooms, room)
	}
}

func (r *Registry) RoomsOf(cid core.ConnID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.rooms))
	for id := range e.rooms {
		out = append(out, id)
	}
	return out
}

// IsConnected reports liveness of a logical id across all instances.
func (r *Registry) IsConnected(ctx context.Context, uid domain.UserID) (bool, error) {
	return r.store.IsConnected(ctx, uid)
}

// CancelUser tears down the local connection owning a logical id: the
// stored cancel stops its pumps and closing the session closes the
// socket, which routes the cleanup through the normal disconnect path.
func (r *Registry) CancelUser(uid domain.UserID) bool {
	r.mu.RLock()
	var e *sessionEntry
	cid, ok := r.byUser[uid]
	if ok {
		e, ok = r.conns[cid]
	}
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.session.Close()
	return true
}
