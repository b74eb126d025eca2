package models

import "time"

// MembershipStatus is the state of a user's relationship to a room.
// A LEFT row is history, never deleted; at most one JOINED row exists
// per (room, user) pair.
type MembershipStatus string

const (
	MemberJoined MembershipStatus = "JOINED"
	MemberLeft   MembershipStatus = "LEFT"
)

// MembershipRole is the user's role inside the room. Exactly one JOINED
// membership holds RoleOwner while the room is ACTIVE.
type MembershipRole string

const (
	RoleOwner   MembershipRole = "OWNER"
	RoleManager MembershipRole = "MANAGER"
	RoleMember  MembershipRole = "MEMBER"
)

// Membership is the join record binding a user to a room.
type Membership struct {
	ID        uint             `gorm:"primaryKey" json:"-"`
	RoomUUID  string           `gorm:"type:uuid;not null;index:idx_room_user" json:"room_uuid"`
	UserIndex int64            `gorm:"not null;index:idx_room_user" json:"user_index"`
	Status    MembershipStatus `gorm:"size:16;not null" json:"status"`
	Role      MembershipRole   `gorm:"size:16;not null" json:"role"`
	JoinedAt  time.Time        `json:"joined_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// RoleRank orders roles for member listings: OWNER first, then MANAGER, then MEMBER.
func (r MembershipRole) RoleRank() int {
	switch r {
	case RoleOwner:
		return 0
	case RoleManager:
		return 1
	default:
		return 2
	}
}

// Valid reports whether s is one of the known membership statuses.
func (s MembershipStatus) Valid() bool {
	switch s {
	case MemberJoined, MemberLeft:
		return true
	}
	return false
}

// Valid reports whether r is one of the known membership roles.
func (r MembershipRole) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleMember:
		return true
	}
	return false
}

// RoomMember is a member-listing entry joined with the user's nickname.
type RoomMember struct {
	UserIndex int64          `json:"user_index"`
	Nickname  string         `json:"nickname"`
	Role      MembershipRole `json:"role"`
	JoinedAt  time.Time      `json:"joined_at"`
}
