package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roomgo/backend/internal/auth"
	"roomgo/backend/internal/chathub"
	"roomgo/backend/internal/models"
	"roomgo/backend/internal/room"
	"roomgo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *gin.Engine
	store  *storage.MemStore
	tokens *auth.TokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemStore()
	rooms := room.NewService(store)
	hub := chathub.NewManager(store, rooms)
	tokens := auth.NewTokenService("test-access", "test-refresh", 15*time.Minute, 168*time.Hour)

	router := gin.New()
	NewHandler(hub, rooms, store, tokens).RegisterRoutes(router)
	return &apiFixture{router: router, store: store, tokens: tokens}
}

type apiResponse struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   []models.ErrorInfo `json:"error"`
	Message string             `json:"message"`
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

// signupAndLogin реєструє користувача та повертає його access-токен.
func (f *apiFixture) signupAndLogin(t *testing.T, nickname string) string {
	t.Helper()

	rec, _ := f.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"login_id": nickname,
		"email":    nickname + "@example.com",
		"nickname": nickname,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    nickname + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(resp.Data, &pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func TestSignup(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"login_id": "alice",
		"email":    "alice@example.com",
		"nickname": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	// Пароль у відкритому вигляді не зберігається.
	user, err := f.store.FindUserByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "password123", user.PasswordDigest)

	// Повторна реєстрація на той самий email — Conflict.
	rec, resp = f.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"login_id": "alice2",
		"email":    "alice@example.com",
		"nickname": "alice2",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
}

func TestSignup_Validation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing email", gin.H{"login_id": "a", "nickname": "a", "password": "password123"}},
		{"bad email", gin.H{"login_id": "a", "email": "nope", "nickname": "a", "password": "password123"}},
		{"short password", gin.H{"login_id": "a", "email": "a@example.com", "nickname": "a", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.signupAndLogin(t, "alice")

	// Невідомий email та невірний пароль дають ідентичну відповідь.
	for _, body := range []gin.H{
		{"email": "ghost@example.com", "password": "password123"},
		{"email": "alice@example.com", "password": "wrongpassword"},
	} {
		rec, resp := f.do(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotEmpty(t, resp.Error)
		assert.Equal(t, "Invalid credentials", resp.Error[0].Message)
	}
}

func TestRefresh(t *testing.T) {
	f := newAPIFixture(t)
	f.signupAndLogin(t, "alice")

	user, err := f.store.FindUserByEmail("alice@example.com")
	require.NoError(t, err)
	pair, err := f.tokens.IssuePair(user)
	require.NoError(t, err)

	rec, resp := f.do(t, http.MethodPost, "/api/auth/refresh", pair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh auth.TokenPair
	require.NoError(t, json.Unmarshal(resp.Data, &fresh))
	assert.NotEmpty(t, fresh.AccessToken)
	assert.NotEmpty(t, fresh.RefreshToken)

	// Access-токен не приймається замість refresh-токена.
	rec, _ = f.do(t, http.MethodPost, "/api/auth/refresh", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/room", "", gin.H{"name": "lobby"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/room", "garbage-token", gin.H{"name": "lobby"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoomEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ownerToken := f.signupAndLogin(t, "owner")
	guestToken := f.signupAndLogin(t, "guest")

	rec, resp := f.do(t, http.MethodPost, "/api/room", ownerToken, gin.H{
		"name":        "lobby",
		"max_users":   3,
		"visibility":  "PUBLIC",
		"join_policy": "OPEN",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created room.View
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotEmpty(t, created.UUID)
	assert.EqualValues(t, 1, created.CurrentUsers)
	assert.Equal(t, "owner", created.Owner.Nickname)

	// Список та перегляд — публічні.
	rec, resp = f.do(t, http.MethodGet, "/api/room?page=1&limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Rooms []room.View `json:"rooms"`
		Total int64       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &listing))
	assert.EqualValues(t, 1, listing.Total)
	require.Len(t, listing.Rooms, 1)

	rec, _ = f.do(t, http.MethodGet, "/api/room/"+created.UUID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/room/"+created.UUID+"/join", guestToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/api/room/"+created.UUID+"/membership", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var membership map[string]bool
	require.NoError(t, json.Unmarshal(resp.Data, &membership))
	assert.True(t, membership["is_member"])

	rec, resp = f.do(t, http.MethodGet, "/api/room/"+created.UUID+"/members", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []models.RoomMember
	require.NoError(t, json.Unmarshal(resp.Data, &members))
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleOwner, members[0].Role)

	// Оновлення — лише власник.
	rec, _ = f.do(t, http.MethodPatch, "/api/room/"+created.UUID, guestToken, gin.H{"name": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = f.do(t, http.MethodPatch, "/api/room/"+created.UUID, ownerToken, gin.H{"name": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated room.View
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "renamed", updated.Name)

	rec, _ = f.do(t, http.MethodPost, "/api/room/"+created.UUID+"/leave", guestToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.do(t, http.MethodDelete, "/api/room/"+created.UUID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &deleted))
	assert.Equal(t, "Room deleted successfully", deleted["message"])

	rec, _ = f.do(t, http.MethodGet, "/api/room/"+created.UUID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoinRoom_PasswordFlow(t *testing.T) {
	f := newAPIFixture(t)
	ownerToken := f.signupAndLogin(t, "owner")
	guestToken := f.signupAndLogin(t, "guest")

	rec, resp := f.do(t, http.MethodPost, "/api/room", ownerToken, gin.H{
		"name":        "vault",
		"max_users":   5,
		"visibility":  "PRIVATE",
		"join_policy": "PASSWORD",
		"password":    "roomsecret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created room.View
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.True(t, created.HasPassword)

	rec, _ = f.do(t, http.MethodPost, "/api/room/"+created.UUID+"/join", guestToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/room/"+created.UUID+"/join", guestToken, gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/room/"+created.UUID+"/join", guestToken, gin.H{"password": "roomsecret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserProfileEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signupAndLogin(t, "alice")

	user, err := f.store.FindUserByEmail("alice@example.com")
	require.NoError(t, err)

	// Власний профіль — лише з токеном.
	rec, _ := f.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := f.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, user.UUID, me["uuid"])
	assert.Equal(t, "alice", me["nickname"])
	// Email та індекс у профіль не потрапляють.
	assert.NotContains(t, me, "email")
	assert.NotContains(t, me, "index")

	// Пошук за UUID — публічний.
	rec, resp = f.do(t, http.MethodGet, "/api/users/"+user.UUID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "alice", profile["nickname"])

	rec, _ = f.do(t, http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeWebSocket_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
