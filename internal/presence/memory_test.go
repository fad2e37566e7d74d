package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

func TestMemoryStoreRooms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	t.Run("GetRoomAbsent", func(t *testing.T) {
		room, err := s.GetRoom(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, room)
	})

	t.Run("CreateIsIdempotent", func(t *testing.T) {
		room := &domain.Room{ID: "r1", Name: "Maths", CreatedBy: "alice"}
		require.NoError(t, s.CreateRoom(ctx, room))
		require.NoError(t, s.CreateRoom(ctx, room))

		got, err := s.GetRoom(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Maths", got.Name)
		assert.Equal(t, domain.UserID("alice"), got.CreatedBy)
	})

	t.Run("CreateDoesNotAddMembers", func(t *testing.T) {
		size, err := s.RoomSize(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 0, size)
	})

	t.Run("ListRooms", func(t *testing.T) {
		require.NoError(t, s.CreateRoom(ctx, &domain.Room{ID: "r2", Name: "Physics", CreatedBy: "bob"}))
		rooms, err := s.ListRooms(ctx)
		require.NoError(t, err)
		ids := make([]domain.RoomID, 0, len(rooms))
		for _, r := range rooms {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []domain.RoomID{"r1", "r2"}, ids)
		require.NoError(t, s.DeleteRoom(ctx, "r2"))
	})

	t.Run("DeleteAbsentIsNoop", func(t *testing.T) {
		require.NoError(t, s.DeleteRoom(ctx, "ghost"))
	})

	t.Run("DeleteRemovesMetadataAndMembers", func(t *testing.T) {
		require.NoError(t, s.AddMember(ctx, "r1", "alice"))
		require.NoError(t, s.DeleteRoom(ctx, "r1"))

		room, err := s.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Nil(t, room)
		size, err := s.RoomSize(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 0, size)
	})
}

func TestMemoryStoreMembership(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	const room = domain.RoomID("r2")

	require.NoError(t, s.AddMember(ctx, room, "a"))
	require.NoError(t, s.AddMember(ctx, room, "b"))
	// Adding an already-present member is a no-op.
	require.NoError(t, s.AddMember(ctx, room, "a"))

	size, err := s.RoomSize(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	members, err := s.Members(ctx, room)
	require.NoError(t, err)
	assert.Len(t, members, size, "size and member set must not diverge")
	assert.ElementsMatch(t, []domain.UserID{"a", "b"}, members)

	ok, err := s.IsMember(ctx, room, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	// Removing an absent member is a no-op, not an error.
	require.NoError(t, s.RemoveMember(ctx, room, "ghost"))
	size, err = s.RoomSize(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	require.NoError(t, s.RemoveMember(ctx, room, "a"))
	ok, err = s.IsMember(ctx, room, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	size, err = s.RoomSize(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestMemoryStoreConnectedSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.IsConnected(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkConnected(ctx, "u1"))
	ok, err = s.IsConnected(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.MarkDisconnected(ctx, "u1"))
	ok, err = s.IsConnected(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Disconnecting an unknown session is a no-op.
	require.NoError(t, s.MarkDisconnected(ctx, "ghost"))
}
