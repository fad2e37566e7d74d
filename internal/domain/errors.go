package domain

import "errors"

// Error taxonomy for the signaling layer. Adapters translate these into
// named error replies so clients can tell "room full" from "not allowed"
// from a transient fault.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthorizationDenied    = errors.New("authorization denied")
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomFull               = errors.New("room is full")
	ErrMalformedEvent         = errors.New("malformed event")
)

// ErrorName maps a failure to its wire-level error name. Anything outside
// the taxonomy is reported as an internal error, never surfaced raw.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrAuthorizationDenied):
		return "authorization_denied"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrMalformedEvent):
		return "malformed_event"
	default:
		return "internal_error"
	}
}
