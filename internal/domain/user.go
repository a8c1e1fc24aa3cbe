package domain

import "github.com/google/uuid"

// User is read-only from the core's perspective; it is created and
// maintained by an external identity service.
type User struct {
	UserID    uuid.UUID
	Roles     []string
	CreatedAt int64 // UTC microseconds
	UpdatedAt int64 // UTC microseconds
}

// RoleTransitionUser marks a user that always qualifies for transition
// regardless of current status, per the scheduler driver's trigger rule.
const RoleTransitionUser = "TransitionUser"

// HasRole reports whether the user carries the named role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
