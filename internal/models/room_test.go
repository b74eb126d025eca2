package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestRoomEnums(t *testing.T) {
	assert.True(t, VisibilityPrivate.Valid())
	assert.True(t, VisibilityPublic.Valid())
	assert.False(t, RoomVisibility("SECRET").Valid())
	assert.False(t, RoomVisibility("").Valid())

	assert.True(t, JoinPolicyOpen.Valid())
	assert.True(t, JoinPolicyPassword.Valid())
	assert.True(t, JoinPolicyInvite.Valid())
	assert.False(t, RoomJoinPolicy("KNOCK").Valid())

	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusInactive.Valid())
	assert.True(t, StatusDeleted.Valid())
	assert.False(t, RoomStatus("ARCHIVED").Valid())
}

func TestRoomHasPassword(t *testing.T) {
	room := Room{}
	assert.False(t, room.HasPassword())

	empty := ""
	room.PasswordDigest = &empty
	assert.False(t, room.HasPassword())

	digest := "$2a$10$abc"
	room.PasswordDigest = &digest
	assert.True(t, room.HasPassword())
}

func TestRoomIsInvited(t *testing.T) {
	room := Room{InvitedUserIndexes: pq.Int64Array{3, 7}}
	assert.True(t, room.IsInvited(3))
	assert.True(t, room.IsInvited(7))
	assert.False(t, room.IsInvited(5))

	empty := Room{}
	assert.False(t, empty.IsInvited(3))
}

func TestMembershipRoleRank(t *testing.T) {
	assert.Less(t, RoleOwner.RoleRank(), RoleManager.RoleRank())
	assert.Less(t, RoleManager.RoleRank(), RoleMember.RoleRank())
	// Невідома роль сортується в кінець.
	assert.Equal(t, RoleMember.RoleRank(), MembershipRole("GUEST").RoleRank())
}
