package app

import "github.com/mahendrakanna/edupravahaa-web/internal/domain"

type BackpressureAction int

const (
	DropEvent BackpressureAction = iota
	EvictMember
)

// Policy decides what to do when a member's outbound buffer is full.
type Policy interface {
	OnBackpressure(room domain.RoomID, user domain.UserID) BackpressureAction
}

// DropPolicy drops the event, keeping the at-most-once broadcast promise
// without punishing a momentarily slow client.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(domain.RoomID, domain.UserID) BackpressureAction {
	return DropEvent
}

// EvictPolicy treats a full buffer like a dead connection and runs the
// normal eviction routine.
type EvictPolicy struct{}

func (EvictPolicy) OnBackpressure(domain.RoomID, domain.UserID) BackpressureAction {
	return EvictMember
}
