package auth

import (
	"time"

	"roomgo/backend/internal/apperr"
	"roomgo/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Token kinds. A refresh token presented where an access token is required
// is rejected as Unauthorized.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims — ідентифікаційні дані, закодовані в JWT.
type Claims struct {
	UserIndex int64
	UserUUID  string
	Email     string
	TokenType string
}

// TokenPair is what login and refresh return to the client.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiredAt  time.Time `json:"access_token_expired_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiredAt time.Time `json:"refresh_token_expired_at"`
}

// TokenService signs and verifies HS256 access/refresh tokens with
// separate secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssuePair видає пару access/refresh токенів для користувача.
func (t *TokenService) IssuePair(user *models.User) (*TokenPair, error) {
	now := time.Now()

	access, err := t.sign(user, TokenTypeAccess, t.accessSecret, now.Add(t.accessTTL))
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign access token")
	}
	refresh, err := t.sign(user, TokenTypeRefresh, t.refreshSecret, now.Add(t.refreshTTL))
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign refresh token")
	}

	return &TokenPair{
		AccessToken:           access,
		AccessTokenExpiredAt:  now.Add(t.accessTTL),
		RefreshToken:          refresh,
		RefreshTokenExpiredAt: now.Add(t.refreshTTL),
	}, nil
}

func (t *TokenService) sign(user *models.User, tokenType string, secret []byte, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.Index,
		"userUuid": user.UUID,
		"email":    user.Email,
		"type":     tokenType,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify parses the token, checks its signature and expiry, and requires the
// token to be of wantType. Any failure is Unauthorized.
func (t *TokenService) Verify(tokenString, wantType string) (*Claims, error) {
	secret := t.accessSecret
	if wantType == TokenTypeRefresh {
		secret = t.refreshSecret
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.New(apperr.Unauthorized, "Invalid token or expired")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.New(apperr.Unauthorized, "Invalid token claims")
	}

	tokenType, _ := mapClaims["type"].(string)
	if tokenType != wantType {
		return nil, apperr.New(apperr.Unauthorized, "Invalid token type")
	}

	// Числові claims приходять як float64 після json-декодування.
	sub, ok := mapClaims["sub"].(float64)
	if !ok {
		return nil, apperr.New(apperr.Unauthorized, "Invalid token subject")
	}
	userUUID, _ := mapClaims["userUuid"].(string)
	email, _ := mapClaims["email"].(string)

	return &Claims{
		UserIndex: int64(sub),
		UserUUID:  userUUID,
		Email:     email,
		TokenType: tokenType,
	}, nil
}
