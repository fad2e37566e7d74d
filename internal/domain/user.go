// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxUsernameLen = 64

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// UserID is the stable logical identity of a participant for one
// authenticated visit. It is distinct from the transport connection id,
// which only lives as long as the socket.
type UserID string

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role,omitempty"`
}

func NewUser(id UserID, username string, role Role) (*User, error) {
	if username == "" {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: id, Username: username, Role: role}, nil
}

func (u *User) SetUsername(username string) error {
	if username == "" {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}

// CanEndSession reports whether this user may broadcast a session-end
// notice for the given room. Hosts and admins only.
func (u *User) CanEndSession(room *Room) bool {
	if u.Role == RoleAdmin || u.Role == RoleTeacher {
		return true
	}
	return room != nil && room.CreatedBy == u.ID
}
