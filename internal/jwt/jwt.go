package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"livechat-backend/internal/kv"
	"livechat-backend/utils"
)

const AccessTokenTTL = 15 * time.Minute
const RefreshTokenTTL = 24 * 30 * time.Hour

var ErrInvalidToken = errors.New("jwt: invalid token")

// Claims is the agent identity carried by an access token.
type Claims struct {
	AgentID  string `json:"id"`
	BranchID string `json:"branch"`
	Email    string `json:"email"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Manager signs and verifies agent access tokens and keeps the opaque
// refresh tokens in the shared key-value store.
type Manager struct {
	secret string
	store  kv.Store
	now    func() time.Time
}

func NewManager(secret string, store kv.Store) *Manager {
	return NewManagerWithClock(secret, store, time.Now)
}

func NewManagerWithClock(secret string, store kv.Store, now func() time.Time) *Manager {
	return &Manager{secret: secret, store: store, now: now}
}

func refreshKey(token string) string {
	return "agent_refresh:" + token
}

func (m *Manager) CreateToken(claims Claims, validUntil int64) (string, error) {
	if validUntil == 0 {
		validUntil = m.now().Add(AccessTokenTTL).Unix()
	}

	mapClaims := jwt.MapClaims{
		"id":     claims.AgentID,
		"branch": claims.BranchID,
		"email":  claims.Email,
		"exp":    validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString([]byte(m.secret))
}

func (m *Manager) CreateTokenWithRefresh(ctx context.Context, claims Claims) (TokenResponse, error) {
	accessToken, err := m.CreateToken(claims, 0)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshToken := utils.CreateToken()
	if refreshToken == "" {
		return TokenResponse{}, fmt.Errorf("jwt: refresh token generation failed")
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := m.store.Set(ctx, refreshKey(refreshToken), string(payload), RefreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (m *Manager) ParseToken(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{}
	if v, ok := mapClaims["id"].(string); ok {
		claims.AgentID = v
	}
	if v, ok := mapClaims["branch"].(string); ok {
		claims.BranchID = v
	}
	if v, ok := mapClaims["email"].(string); ok {
		claims.Email = v
	}
	if claims.AgentID == "" || claims.BranchID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token and
// slides the refresh token's expiry.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalidToken
	}

	raw, err := m.store.Get(ctx, refreshKey(refreshToken))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}

	var claims Claims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		return "", ErrInvalidToken
	}

	if err := m.store.Expire(ctx, refreshKey(refreshToken), RefreshTokenTTL); err != nil {
		return "", err
	}
	return m.CreateToken(claims, 0)
}

// RevokeRefresh invalidates the refresh token on logout.
func (m *Manager) RevokeRefresh(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return m.store.Delete(ctx, refreshKey(refreshToken))
}
