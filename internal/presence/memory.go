package presence

import (
	"context"
	"sync"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

// MemoryStore is a mutex-guarded Store for tests and single-instance
// deployments without Redis. Semantics match RedisStore exactly.
type MemoryStore struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]domain.Room
	members   map[domain.RoomID]map[domain.UserID]struct{}
	connected map[domain.UserID]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:     make(map[domain.RoomID]domain.Room),
		members:   make(map[domain.RoomID]map[domain.UserID]struct{}),
		connected: make(map[domain.UserID]struct{}),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	delete(s.members, id)
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Room, 0, len(s.rooms))
	for id := range s.rooms {
		room := s.rooms[id]
		out = append(out, &room)
	}
	return out, nil
}

func (s *MemoryStore) RoomSize(_ context.Context, id domain.RoomID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members[id]), nil
}

func (s *MemoryStore) AddMember(_ context.Context, id domain.RoomID, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[id]
	if !ok {
		set = make(map[domain.UserID]struct{})
		s.members[id] = set
	}
	set[user] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, id domain.RoomID, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.members[id]; ok {
		delete(set, user)
		if len(set) == 0 {
			delete(s.members, id)
		}
	}
	return nil
}

func (s *MemoryStore) Members(_ context.Context, id domain.RoomID) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserID, 0, len(s.members[id]))
	for u := range s.members[id] {
		out = append(out, u)
	}
	return out, nil
}

func (s *MemoryStore) IsMember(_ context.Context, id domain.RoomID, user domain.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[id][user]
	return ok, nil
}

func (s *MemoryStore) MarkConnected(_ context.Context, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected[user] = struct{}{}
	return nil
}

func (s *MemoryStore) MarkDisconnected(_ context.Context, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected, user)
	return nil
}

func (s *MemoryStore) IsConnected(_ context.Context, user domain.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.connected[user]
	return ok, nil
}
