package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.Int64Array
	"gorm.io/gorm"
)

// RoomVisibility determines whether a room shows up for users outside of it.
type RoomVisibility string

const (
	VisibilityPrivate RoomVisibility = "PRIVATE"
	VisibilityPublic  RoomVisibility = "PUBLIC"
)

// RoomJoinPolicy determines how a user may enter the room.
type RoomJoinPolicy string

const (
	JoinPolicyOpen     RoomJoinPolicy = "OPEN"
	JoinPolicyPassword RoomJoinPolicy = "PASSWORD"
	JoinPolicyInvite   RoomJoinPolicy = "INVITE"
)

// RoomStatus is the lifecycle state of a room. Rooms are never hard-deleted:
// deletion is the transition to StatusDeleted.
type RoomStatus string

const (
	StatusActive   RoomStatus = "ACTIVE"
	StatusInactive RoomStatus = "INACTIVE"
	StatusDeleted  RoomStatus = "DELETED"
)

const (
	// MinRoomUsers та MaxRoomUsers — межі для max_users кімнати.
	MinRoomUsers = 2
	MaxRoomUsers = 100
)

// Room represents a chat room. PasswordDigest is set iff JoinPolicy is PASSWORD
// and holds a bcrypt digest, never the plaintext. InvitedUserIndexes is consulted
// only for INVITE rooms.
type Room struct {
	UUID               string         `gorm:"primaryKey;type:uuid" json:"uuid"`
	Name               string         `gorm:"size:100;not null" json:"name"`
	MaxUsers           int            `gorm:"not null" json:"max_users"`
	Visibility         RoomVisibility `gorm:"size:16;not null" json:"visibility"`
	JoinPolicy         RoomJoinPolicy `gorm:"size:16;not null" json:"join_policy"`
	PasswordDigest     *string        `gorm:"size:255" json:"-"`
	Status             RoomStatus     `gorm:"size:16;not null;index" json:"status"`
	OwnerIndex         int64          `gorm:"not null;index" json:"owner_index"`
	InvitedUserIndexes pq.Int64Array  `gorm:"type:bigint[]" json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
}

// BeforeCreate — хук GORM, генерує UUID кімнати, якщо він ще не встановлений.
func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	return
}

// HasPassword reports whether the room has a password digest stored.
func (r *Room) HasPassword() bool {
	return r.PasswordDigest != nil && *r.PasswordDigest != ""
}

// IsInvited reports whether the user index is on the room's invite list.
func (r *Room) IsInvited(userIndex int64) bool {
	for _, idx := range r.InvitedUserIndexes {
		if idx == userIndex {
			return true
		}
	}
	return false
}

// Valid reports whether v is one of the known visibility values.
func (v RoomVisibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic:
		return true
	}
	return false
}

// Valid reports whether p is one of the known join policies.
func (p RoomJoinPolicy) Valid() bool {
	switch p {
	case JoinPolicyOpen, JoinPolicyPassword, JoinPolicyInvite:
		return true
	}
	return false
}

// Valid reports whether s is one of the known room statuses.
func (s RoomStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeleted:
		return true
	}
	return false
}
