package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

type stubSession struct {
	user   *domain.User
	closed bool
}

func (s *stubSession) User() *domain.User              { return s.user }
func (s *stubSession) Emit(protocol.ServerEvent) error { return nil }
func (s *stubSession) Close()                          { s.closed = true }

func newStub(uid domain.UserID) *stubSession {
	return &stubSession{user: &domain.User{ID: uid, Username: "u-" + string(uid)}}
}

func TestRegistryRegisterUnregister(t *testing.T) {
	ctx := context.Background()
	store := presence.NewMemoryStore()
	r := NewRegistry(store)

	sess := newStub("alice")
	require.NoError(t, r.Register(ctx, "c1", sess, func() {}))

	user, ok := r.User("c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("alice"), user.ID)

	live, err := r.IsConnected(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, live, "registering must mark the user connected in the shared store")

	uid, ok := r.Unregister(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("alice"), uid)

	live, err = r.IsConnected(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestRegistryUnknownConnection(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(presence.NewMemoryStore())

	// Lookups for unknown connections report not found, never panic.
	_, ok := r.User("ghost")
	assert.False(t, ok)

	_, ok = r.Unregister(ctx, "ghost")
	assert.False(t, ok, "unregister before registration means already disconnected")

	assert.Nil(t, r.RoomsOf("ghost"))
	assert.False(t, r.CancelUser("nobody"))
}

func TestRegistryRoomSubscriptions(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(presence.NewMemoryStore())

	a := newStub("a")
	b := newStub("b")
	require.NoError(t, r.Register(ctx, "ca", a, func() {}))
	require.NoError(t, r.Register(ctx, "cb", b, func() {}))

	r.Subscribe("ca", "math101")
	r.Subscribe("ca", "own-room")
	r.Subscribe("cb", "math101")

	assert.ElementsMatch(t, []domain.RoomID{"math101", "own-room"}, r.RoomsOf("ca"))
	assert.ElementsMatch(t, []domain.RoomID{"math101"}, r.RoomsOf("cb"))

	r.Unsubscribe("ca", "math101")
	assert.ElementsMatch(t, []domain.RoomID{"own-room"}, r.RoomsOf("ca"))

	// Subscriptions on unknown connections are ignored.
	r.Subscribe("ghost", "math101")
	assert.Nil(t, r.RoomsOf("ghost"))
}

func TestRegistryUserResolution(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(presence.NewMemoryStore())

	sess := newStub("bob")
	require.NoError(t, r.Register(ctx, "c2", sess, func() {}))

	got, ok := r.SessionOfUser("bob")
	require.True(t, ok)
	assert.Same(t, core.MemberSession(sess), got)

	_, ok = r.SessionOfUser("nobody")
	assert.False(t, ok)
}

func TestRegistryCancelUser(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(presence.NewMemoryStore())

	sess := newStub("alice")
	canceled := false
	require.NoError(t, r.Register(ctx, "c1", sess, func() { canceled = true }))

	require.True(t, r.CancelUser("alice"))
	assert.True(t, canceled, "stored cancel func must fire")
	assert.True(t, sess.closed, "session must be closed so the socket goes down")
}
