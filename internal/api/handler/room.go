package handler

import (
	"net/http"
	"strconv"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/room"

	"github.com/gin-gonic/gin"
)

// CreateRoom створює кімнату; творець атомарно стає її OWNER-учасником.
func (h *Handler) CreateRoom(c *gin.Context) {
	user := currentUser(c)

	var params room.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondError(c, apperr.New(apperr.BadRequest, "Invalid room payload"))
		return
	}

	view, err := h.Rooms.CreateRoom(room.Identity{
		Index:    user.Index,
		UUID:     user.UUID,
		Nickname: user.Nickname,
	}, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, view)
}

// ListRooms повертає сторінку кімнат, що мають хоча б одного учасника.
func (h *Handler) ListRooms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	views, total, err := h.Rooms.ListRooms(page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"rooms": views,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetRoom повертає ACTIVE-кімнату за UUID.
func (h *Handler) GetRoom(c *gin.Context) {
	view, err := h.Rooms.GetRoom(c.Param("roomUuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// UpdateRoom — часткове оновлення кімнати, лише для власника.
func (h *Handler) UpdateRoom(c *gin.Context) {
	user := currentUser(c)

	var params room.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondError(c, apperr.New(apperr.BadRequest, "Invalid room payload"))
		return
	}

	view, err := h.Rooms.UpdateRoom(c.Param("roomUuid"), user.Index, params)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// DeleteRoom — м'яке видалення кімнати, лише для власника.
func (h *Handler) DeleteRoom(c *gin.Context) {
	user := currentUser(c)

	if err := h.Rooms.DeleteRoom(c.Param("roomUuid"), user.Index); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

type joinRequest struct {
	Password string `json:"password,omitempty"`
}

// JoinRoom приєднує користувача до кімнати.
func (h *Handler) JoinRoom(c *gin.Context) {
	user := currentUser(c)

	var req joinRequest
	// Тіло опційне: OPEN-кімнати приєднуються без пароля.
	_ = c.ShouldBindJSON(&req)

	membership, err := h.Rooms.JoinRoom(c.Param("roomUuid"), room.Identity{
		Index:    user.Index,
		UUID:     user.UUID,
		Nickname: user.Nickname,
	}, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, membership)
}

// LeaveRoom переводить членство користувача в LEFT.
func (h *Handler) LeaveRoom(c *gin.Context) {
	user := currentUser(c)

	if err := h.Rooms.LeaveRoom(c.Param("roomUuid"), user.Index); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Left room successfully"})
}

// ListMembers повертає JOINED-учасників кімнати.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.Rooms.ListMembers(c.Param("roomUuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, members)
}

// CheckMembership повідомляє, чи є поточний користувач учасником кімнати.
func (h *Handler) CheckMembership(c *gin.Context) {
	user := currentUser(c)

	isMember, err := h.Rooms.IsMember(c.Param("roomUuid"), user.Index)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"is_member": isMember})
}
