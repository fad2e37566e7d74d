package domain

type RoomID string

// RoomOptions is the open attribute bag stored with a room.
// Capacity of 0 means unlimited.
type RoomOptions struct {
	Capacity int `json:"capacity,omitempty"`
}

// Room is the metadata record for a live class room. Membership is not
// part of it; the presence store owns the participant set.
type Room struct {
	ID        RoomID      `json:"id"`
	Name      string      `json:"name"`
	CreatedBy UserID      `json:"created_by"`
	Options   RoomOptions `json:"opts"`
}

const MaxRoomNameLen = 64

// IsValidRoomID reports whether a client-supplied room id can be used
// as-is. Anything non-alphanumeric gets replaced by a generated id.
func IsValidRoomID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
