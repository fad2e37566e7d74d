// Package presence holds the shared room membership state. The store is
// the single source of truth for "who is in which room"; no other
// component caches membership beyond a point-in-time read.
package presence

import (
	"context"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

// Store is the atomic-set-store dependency the room registry runs on.
// Every mutation must be atomic with respect to concurrent callers on the
// same room; callers never do read-modify-write across two store calls.
//
// The connected-session set lives here too: liveness checks must work
// across gateway instances, and a registry entry only exists on the
// instance that owns the socket.
type Store interface {
	// CreateRoom idempotently writes room metadata. It does not add any
	// member.
	CreateRoom(ctx context.Context, room *domain.Room) error
	// DeleteRoom removes metadata and the membership set. No-op on an
	// absent room.
	DeleteRoom(ctx context.Context, id domain.RoomID) error
	// GetRoom returns (nil, nil) when the room does not exist.
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// ListRooms returns the metadata of every live room. Point-in-time
	// read, ordering unspecified.
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	// RoomSize is the cardinality of the membership set, 0 if absent.
	RoomSize(ctx context.Context, id domain.RoomID) (int, error)

	// AddMember and RemoveMember have set semantics: adding a present
	// member or removing an absent one is a no-op, not an error.
	AddMember(ctx context.Context, id domain.RoomID, user domain.UserID) error
	RemoveMember(ctx context.Context, id domain.RoomID, user domain.UserID) error
	Members(ctx context.Context, id domain.RoomID) ([]domain.UserID, error)
	IsMember(ctx context.Context, id domain.RoomID, user domain.UserID) (bool, error)

	MarkConnected(ctx context.Context, user domain.UserID) error
	MarkDisconnected(ctx context.Context, user domain.UserID) error
	IsConnected(ctx context.Context, user domain.UserID) (bool, error)
}
