package handler

import (
	"net/http"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/auth"
	"roomgo/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type signupRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup створює обліковий запис; пароль зберігається лише як bcrypt-дайджест.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.BadRequest, "Invalid signup payload"))
		return
	}

	existing, err := h.Storage.FindUserByEmail(req.Email)
	if err != nil {
		respondError(c, apperr.Wrap(err, "Failed to create user"))
		return
	}
	if existing != nil {
		respondError(c, apperr.New(apperr.Conflict, "Email already registered"))
		return
	}

	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, apperr.Wrap(err, "Failed to create user"))
		return
	}

	user := &models.User{
		LoginID:        req.LoginID,
		Email:          req.Email,
		Nickname:       req.Nickname,
		PasswordDigest: digest,
	}
	if err := h.Storage.SaveUser(user); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("failed to save user")
		respondError(c, apperr.Wrap(err, "Failed to create user"))
		return
	}

	log.Info().Int64("user", user.Index).Msg("user registered")
	respond(c, http.StatusCreated, gin.H{
		"index":    user.Index,
		"uuid":     user.UUID,
		"nickname": user.Nickname,
	})
}

// Login перевіряє облікові дані та видає пару access/refresh токенів.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.BadRequest, "Invalid login payload"))
		return
	}

	user, err := h.Storage.FindUserByEmail(req.Email)
	if err != nil {
		respondError(c, apperr.Wrap(err, "Failed to log in"))
		return
	}
	// Однакова відповідь для невідомого email та невірного пароля.
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordDigest) {
		respondError(c, apperr.New(apperr.Unauthorized, "Invalid credentials"))
		return
	}

	pair, err := h.Tokens.IssuePair(user)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pair)
}

// Refresh приймає refresh-токен і видає нову пару токенів.
func (h *Handler) Refresh(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthorized, "Authorization token missing"))
		return
	}

	claims, err := h.Tokens.Verify(token, auth.TokenTypeRefresh)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.Storage.FindUserByIndex(claims.UserIndex)
	if err != nil {
		respondError(c, apperr.Wrap(err, "Failed to refresh tokens"))
		return
	}
	if user == nil {
		respondError(c, apperr.New(apperr.Unauthorized, "Invalid token"))
		return
	}

	pair, err := h.Tokens.IssuePair(user)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pair)
}
