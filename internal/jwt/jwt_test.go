package jwt

import (
	"context"
	"testing"
	"time"

	"livechat-backend/internal/kv"
)

func newTestManager() (*Manager, *kv.Memory) {
	store := kv.NewMemory(time.Now)
	return NewManager("test-secret", store), store
}

func TestCreateAndParseToken(t *testing.T) {
	m, _ := newTestManager()

	token, err := m.CreateToken(Claims{AgentID: "agent-1", BranchID: "branch-1", Email: "a@example.com"}, 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.AgentID != "agent-1" || claims.BranchID != "branch-1" || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m, _ := newTestManager()
	other := NewManager("other-secret", kv.NewMemory(time.Now))

	token, err := m.CreateToken(Claims{AgentID: "agent-1", BranchID: "branch-1"}, 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("expected rejection with a different secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, _ := newTestManager()

	expired := time.Now().Add(-time.Minute).Unix()
	token, err := m.CreateToken(Claims{AgentID: "agent-1", BranchID: "branch-1"}, expired)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := m.ParseToken(token); err == nil {
		t.Fatal("expected rejection of an expired token")
	}
}

func TestRefreshFlow(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	pair, err := m.CreateTokenWithRefresh(ctx, Claims{AgentID: "agent-1", BranchID: "branch-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if pair.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}

	access, err := m.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	claims, err := m.ParseToken(access)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.AgentID != "agent-1" {
		t.Fatalf("agent = %s, want agent-1", claims.AgentID)
	}

	if err := m.RevokeRefresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := m.Refresh(ctx, pair.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !ValidatePassword(hash, "s3cret-pass") {
		t.Fatal("expected password to validate")
	}
	if ValidatePassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}
