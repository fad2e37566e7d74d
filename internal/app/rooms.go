package app

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
)

// RoomManager creates, fetches and reaps rooms on top of the shared
// store. Rooms are deleted only when their membership reaches zero; there
// is no timer-based sweep.
type RoomManager struct {
	store presence.Store
}

func NewRoomManager(store presence.Store) *RoomManager {
	return &RoomManager{store: store}
}

// DeriveRoomID keeps a client-supplied alphanumeric id (externally
// provisioned class ids pass through untouched) and generates an opaque
// one otherwise.
func DeriveRoomID(requested string) (domain.RoomID, error) {
	if domain.IsValidRoomID(requested) {
		return domain.RoomID(requested), nil
	}
	id, err := gonanoid.Nanoid()
	if err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	return domain.RoomID(id), nil
}

// Create idempotently writes room metadata. It does not add any member;
// the router adds the creator last so a failure here leaves no visible
// room.
func (m *RoomManager) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	if room.Name == "" {
		room.Name = fmt.Sprintf("Room by %s", room.CreatedBy)
	}
	if len(room.Name) > domain.MaxRoomNameLen {
		room.Name = room.Name[:domain.MaxRoomNameLen]
	}
	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(room.ID)).Msg("room created")
	return room, nil
}

// Ensure fetches a room or lazily creates it with the supplied fallbacks.
// This covers joining a class id that was provisioned externally but
// never created through this subsystem.
func (m *RoomManager) Ensure(ctx context.Context, id domain.RoomID, fallbackName string, creator domain.UserID) (*domain.Room, error) {
	room, err := m.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}
	if fallbackName == "" {
		fallbackName = fmt.Sprintf("Room %s", id)
	}
	return m.Create(ctx, &domain.Room{ID: id, Name: fallbackName, CreatedBy: creator})
}

// HasCapacity reports whether one more member fits. Capacity 0 means
// unlimited.
func (m *RoomManager) HasCapacity(ctx context.Context, room *domain.Room) (bool, error) {
	if room.Options.Capacity <= 0 {
		return true, nil
	}
	size, err := m.store.RoomSize(ctx, room.ID)
	if err != nil {
		return false, err
	}
	return size < room.Options.Capacity, nil
}

// ReapIfEmpty deletes the room once its membership reaches zero. This is
// the only deletion path; occupied rooms are never reaped.
func (m *RoomManager) ReapIfEmpty(ctx context.Context, id domain.RoomID) error {
	size, err := m.store.RoomSize(ctx, id)
	if err != nil {
		return err
	}
	if size > 0 {
		return nil
	}
	if err := m.store.DeleteRoom(ctx, id); err != nil {
		return err
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("reaped empty room")
	return nil
}
