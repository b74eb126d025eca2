package models

import (
	"encoding/json"
	"time"
)

// WireRequest is an inbound typed message on a live connection:
// a type discriminator plus a raw payload decoded by the dispatcher.
type WireRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorInfo is one machine-readable error entry in a response envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WireResponse is the uniform envelope for every outbound message. On error
// Success is false and Error is populated; Data is null.
type WireResponse struct {
	Type      string      `json:"type"`
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     []ErrorInfo `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewWireResponse будує успішний конверт для повідомлення даного типу.
func NewWireResponse(msgType string, data interface{}) WireResponse {
	return WireResponse{
		Type:      msgType,
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewWireError будує конверт помилки для повідомлення даного типу.
func NewWireError(msgType string, errs []ErrorInfo) WireResponse {
	return WireResponse{
		Type:      msgType,
		Success:   false,
		Error:     errs,
		Timestamp: time.Now().UTC(),
	}
}

// Wire message types understood by the hub dispatcher.
const (
	TypeRoomCreate   = "room.create"
	TypeRoomList     = "room.list"
	TypeRoomGet      = "room.get"
	TypeRoomUpdate   = "room.update"
	TypeRoomDelete   = "room.delete"
	TypeRoomJoin     = "room.join"
	TypeRoomLeave    = "room.leave"
	TypeRoomMembers  = "room.members"
	TypeRoomIsMember = "room.is_member"
	TypeMessageSend  = "message.send"

	// Server-initiated event types.
	TypeRoomEvent = "room.event"
	TypeError     = "error"
)

// RoomEvent is a broadcast notification fanned out to all joined members
// of a room (over the Redis event bus).
type RoomEvent struct {
	RoomUUID   string    `json:"room_uuid"`
	Event      string    `json:"event"` // "member_joined", "member_left", "room_deleted", "message"
	SenderUUID string    `json:"sender_uuid,omitempty"`
	UserIndex  int64     `json:"user_index,omitempty"`
	Nickname   string    `json:"nickname,omitempty"`
	Content    string    `json:"content,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Room event kinds.
const (
	EventMemberJoined = "member_joined"
	EventMemberLeft   = "member_left"
	EventRoomDeleted  = "room_deleted"
	EventMessage      = "message"
)
