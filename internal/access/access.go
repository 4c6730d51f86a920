// Package access implements the board-sharing permission model: every board
// participant holds one role, and the role decides what the participant may
// change on the board and its content.
package access

import "fmt"

// Role is a board participant's role.
type Role int

const (
	RoleOwner  Role = 1
	RoleWriter Role = 2
	RoleReader Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleWriter:
		return "writer"
	case RoleReader:
		return "reader"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleWriter || r == RoleReader
}

// Editable reports whether r can be granted through sharing.
func (r Role) Editable() bool {
	return r == RoleWriter || r == RoleReader
}

// ParseRole converts a role name to a Role.
func ParseRole(name string) (Role, error) {
	switch name {
	case "owner":
		return RoleOwner, nil
	case "writer":
		return RoleWriter, nil
	case "reader":
		return RoleReader, nil
	default:
		return 0, fmt.Errorf("unknown role %q", name)
	}
}

// Any participant may read the board, its categories and goals.
func CanRead(r Role) bool {
	return r.Valid()
}

// CanManageBoard covers renaming, sharing and deleting the board itself.
func CanManageBoard(r Role) bool {
	return r == RoleOwner
}

// CanEditContent covers creating, changing and deleting categories and goals.
func CanEditContent(r Role) bool {
	return r == RoleOwner || r == RoleWriter
}
