package core

import (
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

// ConnID identifies one transport connection. It lives only as long as
// the socket and is never shown to clients.
type ConnID string

// Emitter encodes server events for one client connection. Each protocol
// adapter brings its own encoding; the core only ever emits typed events.
// Emit must be non-blocking: a full outbound buffer is an error, not a stall.
type Emitter interface {
	Emit(ev protocol.ServerEvent) error
}

// MemberSession binds a participant's identity and its transport endpoint.
// This is what the registry stores and the router fans out to.
// Owned by the adapter; the adapter must Close() it.
type MemberSession interface {
	User() *domain.User
	Emitter
	Close()
}
