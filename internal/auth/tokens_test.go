package auth

import (
	"errors"
	"testing"
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
}

func testUser() *models.User {
	return &models.User{
		Index:    42,
		UUID:     "11111111-2222-3333-4444-555555555555",
		Email:    "user@example.com",
		Nickname: "user",
	}
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.Unauthorized, appErr.Code)
}

func TestIssuePairAndVerify(t *testing.T) {
	svc := newTestTokenService()
	user := testUser()

	pair, err := svc.IssuePair(user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.True(t, pair.RefreshTokenExpiredAt.After(pair.AccessTokenExpiredAt))

	claims, err := svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.Index, claims.UserIndex)
	assert.Equal(t, user.UUID, claims.UserUUID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	claims, err = svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestVerify_WrongTokenType(t *testing.T) {
	svc := newTestTokenService()
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	// Refresh-токен підписано іншим секретом, тож перевірка access-ключем
	// падає ще на підписі.
	_, err = svc.Verify(pair.RefreshToken, TokenTypeAccess)
	assertUnauthorized(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeRefresh)
	assertUnauthorized(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	assertUnauthorized(t, err)
}

func TestVerify_TamperedToken(t *testing.T) {
	svc := newTestTokenService()
	other := NewTokenService("other-secret", "other-refresh", 15*time.Minute, 168*time.Hour)

	pair, err := other.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	assertUnauthorized(t, err)

	_, err = svc.Verify("not-a-token", TokenTypeAccess)
	assertUnauthorized(t, err)
}
