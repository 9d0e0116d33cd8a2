package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSuperadmin, ParseRole("superadmin"))
	assert.Equal(t, RoleUnknown, ParseRole(""))
	assert.Equal(t, RoleUnknown, ParseRole("Admin"))
	assert.Equal(t, RoleUnknown, ParseRole("root"))
}

func TestRankOrdering(t *testing.T) {
	assert.Less(t, RoleUnknown.Rank(), RoleUser.Rank())
	assert.Less(t, RoleUser.Rank(), RoleAdmin.Rank())
	assert.Less(t, RoleAdmin.Rank(), RoleSuperadmin.Rank())
}

func TestCanListUsers(t *testing.T) {
	assert.False(t, CanListUsers(RoleUser))
	assert.True(t, CanListUsers(RoleAdmin))
	assert.True(t, CanListUsers(RoleSuperadmin))
	assert.False(t, CanListUsers(RoleUnknown))
}

func TestCanViewAllTasks(t *testing.T) {
	assert.False(t, CanViewAllTasks(RoleUser))
	assert.True(t, CanViewAllTasks(RoleAdmin))
	assert.True(t, CanViewAllTasks(RoleSuperadmin))
}

func TestTaskOwnerFor(t *testing.T) {
	// Plain users own what they create, even when they ask for someone else.
	assert.Equal(t, 1, TaskOwnerFor(RoleUser, 1, 0))
	assert.Equal(t, 1, TaskOwnerFor(RoleUser, 1, 99))

	// Admins and superadmins may assign, defaulting to themselves.
	assert.Equal(t, 2, TaskOwnerFor(RoleAdmin, 2, 0))
	assert.Equal(t, 99, TaskOwnerFor(RoleAdmin, 2, 99))
	assert.Equal(t, 99, TaskOwnerFor(RoleSuperadmin, 3, 99))
}

func TestCanModifyTask(t *testing.T) {
	assert.True(t, CanModifyTask(RoleUser, 1, 1))
	assert.False(t, CanModifyTask(RoleUser, 1, 2))
	assert.True(t, CanModifyTask(RoleAdmin, 1, 2))
	assert.True(t, CanModifyTask(RoleSuperadmin, 1, 2))
}

func TestCanDeleteTask(t *testing.T) {
	cases := []struct {
		name      string
		actor     Role
		actorID   int
		ownerID   int
		ownerRole Role
		want      bool
	}{
		{"user deletes own task", RoleUser, 1, 1, RoleUser, true},
		{"user deletes someone else's task", RoleUser, 1, 2, RoleUser, false},
		{"admin deletes own task", RoleAdmin, 1, 1, RoleAdmin, true},
		{"admin deletes user's task", RoleAdmin, 1, 2, RoleUser, true},
		{"admin deletes other admin's task", RoleAdmin, 1, 2, RoleAdmin, false},
		{"admin deletes superadmin's task", RoleAdmin, 1, 2, RoleSuperadmin, false},
		{"admin deletes orphaned task", RoleAdmin, 1, 2, RoleUnknown, true},
		{"superadmin deletes admin's task", RoleSuperadmin, 1, 2, RoleAdmin, true},
		{"superadmin deletes user's task", RoleSuperadmin, 1, 2, RoleUser, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDeleteTask(tc.actor, tc.actorID, tc.ownerID, tc.ownerRole))
		})
	}
}

func TestCanPromote(t *testing.T) {
	assert.True(t, CanPromote(RoleAdmin, RoleUser))
	assert.True(t, CanPromote(RoleSuperadmin, RoleUser))
	assert.False(t, CanPromote(RoleUser, RoleUser))

	// Already promoted (or superadmin) targets are not promotable again.
	assert.False(t, CanPromote(RoleAdmin, RoleAdmin))
	assert.False(t, CanPromote(RoleSuperadmin, RoleSuperadmin))
}

func TestCanDemote(t *testing.T) {
	assert.True(t, CanDemote(RoleSuperadmin, RoleAdmin))
	assert.False(t, CanDemote(RoleAdmin, RoleAdmin))
	assert.False(t, CanDemote(RoleSuperadmin, RoleUser))
	assert.False(t, CanDemote(RoleSuperadmin, RoleSuperadmin))
}

func TestCanDeleteUser(t *testing.T) {
	assert.False(t, CanDeleteUser(RoleUser, RoleUser))
	assert.True(t, CanDeleteUser(RoleAdmin, RoleUser))
	assert.False(t, CanDeleteUser(RoleAdmin, RoleAdmin))
	assert.False(t, CanDeleteUser(RoleAdmin, RoleSuperadmin))
	assert.True(t, CanDeleteUser(RoleSuperadmin, RoleUser))
	assert.True(t, CanDeleteUser(RoleSuperadmin, RoleAdmin))
	assert.False(t, CanDeleteUser(RoleSuperadmin, RoleSuperadmin))
}
