package shared

import "github.com/google/uuid"

// Role is the marketplace role attached to an authenticated identity
type Role string

const (
	RoleDriver     Role = "driver"
	RoleCargoOwner Role = "cargo_owner"
	RoleAdmin      Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RoleCargoOwner, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// SystemActorID marks transitions made by the system rather than a user.
var SystemActorID = uuid.Nil

// NewActor creates an Actor
func NewActor(id uuid.UUID, role Role) Actor {
	return Actor{ID: id, Role: role}
}

// IsDriver reports whether the actor holds the driver role.
func (a Actor) IsDriver() bool {
	return a.Role == RoleDriver
}

// IsCargoOwner reports whether the actor holds the cargo owner role.
func (a Actor) IsCargoOwner() bool {
	return a.Role == RoleCargoOwner
}
