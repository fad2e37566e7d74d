package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
)

func TestDeriveRoomID(t *testing.T) {
	id, err := DeriveRoomID("abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("abc123"), id, "alphanumeric client ids pass through")

	id, err = DeriveRoomID("not valid!")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, domain.RoomID("not valid!"), id)

	id, err = DeriveRoomID("")
	require.NoError(t, err)
	assert.NotEmpty(t, id, "empty request gets a generated id")
}

func TestRoomManagerEnsure(t *testing.T) {
	ctx := context.Background()
	store := presence.NewMemoryStore()
	m := NewRoomManager(store)

	t.Run("LazyCreate", func(t *testing.T) {
		room, err := m.Ensure(ctx, "sched42", "", "teacher1")
		require.NoError(t, err)
		assert.Equal(t, domain.RoomID("sched42"), room.ID)
		assert.Equal(t, "Room sched42", room.Name)
		assert.Equal(t, domain.UserID("teacher1"), room.CreatedBy)
	})

	t.Run("ExistingWins", func(t *testing.T) {
		room, err := m.Ensure(ctx, "sched42", "other name", "someone-else")
		require.NoError(t, err)
		assert.Equal(t, "Room sched42", room.Name)
		assert.Equal(t, domain.UserID("teacher1"), room.CreatedBy)
	})
}

func TestRoomManagerCapacity(t *testing.T) {
	ctx := context.Background()
	store := presence.NewMemoryStore()
	m := NewRoomManager(store)

	room, err := m.Create(ctx, &domain.Room{
		ID: "tiny", CreatedBy: "host",
		Options: domain.RoomOptions{Capacity: 2},
	})
	require.NoError(t, err)

	fits, err := m.HasCapacity(ctx, room)
	require.NoError(t, err)
	assert.True(t, fits)

	require.NoError(t, store.AddMember(ctx, "tiny", "a"))
	require.NoError(t, store.AddMember(ctx, "tiny", "b"))

	fits, err = m.HasCapacity(ctx, room)
	require.NoError(t, err)
	assert.False(t, fits)

	unlimited, err := m.Create(ctx, &domain.Room{ID: "big", CreatedBy: "host"})
	require.NoError(t, err)
	fits, err = m.HasCapacity(ctx, unlimited)
	require.NoError(t, err)
	assert.True(t, fits, "capacity 0 means unlimited")
}

func TestRoomManagerReap(t *testing.T) {
	ctx := context.Background()
	store := presence.NewMemoryStore()
	m := NewRoomManager(store)

	_, err := m.Create(ctx, &domain.Room{ID: "r", CreatedBy: "host"})
	require.NoError(t, err)
	require.NoError(t, store.AddMember(ctx, "r", "a"))

	// Occupied rooms are never reaped.
	require.NoError(t, m.ReapIfEmpty(ctx, "r"))
	room, err := store.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.NotNil(t, room)

	require.NoError(t, store.RemoveMember(ctx, "r", "a"))
	require.NoError(t, m.ReapIfEmpty(ctx, "r"))
	room, err = store.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, room)

	// Reaping an absent room is safe.
	require.NoError(t, m.ReapIfEmpty(ctx, "r"))
}

func TestRoomManagerCreateDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewRoomManager(presence.NewMemoryStore())

	room, err := m.Create(ctx, &domain.Room{ID: "x1", CreatedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Room by alice", room.Name)

	long := make([]byte, domain.MaxRoomNameLen+10)
	for i := range long {
		long[i] = 'a'
	}
	room, err = m.Create(ctx, &domain.Room{ID: "x2", Name: string(long), CreatedBy: "alice"})
	require.NoError(t, err)
	assert.Len(t, room.Name, domain.MaxRoomNameLen)
}
