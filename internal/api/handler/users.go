package handler

import (
	"net/http"
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// userProfile — публічне подання користувача. Email, login та числовий
// індекс назовні не розкриваються.
type userProfile struct {
	UUID      string    `json:"uuid"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func profileOf(user *models.User) userProfile {
	return userProfile{
		UUID:      user.UUID,
		Nickname:  user.Nickname,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// Me повертає профіль поточного користувача.
func (h *Handler) Me(c *gin.Context) {
	respond(c, http.StatusOK, profileOf(currentUser(c)))
}

// GetUser — публічний пошук профілю за UUID.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.Storage.FindUserByUUID(c.Param("userUuid"))
	if err != nil {
		respondError(c, apperr.Wrap(err, "Failed to load user"))
		return
	}
	if user == nil {
		respondError(c, apperr.New(apperr.NotFound, "User not found"))
		return
	}
	respond(c, http.StatusOK, profileOf(user))
}
