package domain

import "testing"

func TestUser_HasRole(t *testing.T) {
	user := User{Roles: []string{"Admin", RoleTransitionUser}}

	if !user.HasRole(RoleTransitionUser) {
		t.Error("expected user to have the transition role")
	}
	if user.HasRole("Nonexistent") {
		t.Error("expected user not to have an unassigned role")
	}

	empty := User{}
	if empty.HasRole(RoleTransitionUser) {
		t.Error("expected user with no roles to have none")
	}
}
