package endpoints

import (
	"context"
	"net/http"
	"testing"
	"time"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/dto"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/kv"
	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	authsvc "livechat-backend/internal/service/auth"
)

type authTestRepository struct {
	agents map[string]model.AgentItem
}

func (r *authTestRepository) FindAgentByEmail(_ context.Context, email string) (model.AgentItem, error) {
	for _, agent := range r.agents {
		if agent.Email == email {
			return agent, nil
		}
	}
	return model.AgentItem{}, authsvc.ErrNotFound
}

func (r *authTestRepository) GetAgent(_ context.Context, branchID, agentID string) (model.AgentItem, error) {
	agent, ok := r.agents[model.AgentPK(branchID, agentID)]
	if !ok {
		return model.AgentItem{}, authsvc.ErrNotFound
	}
	return agent, nil
}

func seedAuthAgent(t *testing.T, repo *authTestRepository, email, password string) model.AgentItem {
	t.Helper()

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	agent := model.AgentItem{
		PK:           model.AgentPK("branch-1", "agent-1"),
		BranchID:     "branch-1",
		AgentID:      "agent-1",
		Name:         "Anna",
		Email:        email,
		Role:         model.AgentRoleOperator,
		Active:       true,
		PasswordHash: hash,
	}
	repo.agents[agent.PK] = agent
	return agent
}

func setupAuthHandler(t *testing.T, repo *authTestRepository) http.Handler {
	t.Helper()

	store := kv.NewMemory(time.Now)
	tokens := internaljwt.NewManager("test-secret", store)
	service := authsvc.NewWithRepository(repo, tokens, time.Now)
	authEndpoints := NewAuthEndpoints(service)

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, store, tokens)
	t.Cleanup(queueManager.Shutdown)

	validate := middleware.ValidateAgentJWT(tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/agent/v1/auth/login", server.MakeHTTPHandleFunc(authEndpoints.Login))
	mux.HandleFunc("/api/agent/v1/auth/refresh", server.MakeHTTPHandleFunc(authEndpoints.Refresh))
	mux.HandleFunc("/api/agent/v1/auth/logout", server.MakeHTTPHandleFunc(authEndpoints.Logout))
	mux.HandleFunc("/api/agent/v1/auth/me", server.MakeHTTPHandleFunc(authEndpoints.Me, validate))
	return mux
}

func login(t *testing.T, handler http.Handler, email, password string) dto.AuthResponse {
	t.Helper()

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	if res.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp dto.AuthResponse
	decodeJSON(t, res, &resp)
	return resp
}

func TestAuthLogin(t *testing.T) {
	repo := &authTestRepository{agents: map[string]model.AgentItem{}}
	seedAuthAgent(t, repo, "anna@example.com", "hunter22")
	handler := setupAuthHandler(t, repo)

	resp := login(t, handler, "anna@example.com", "hunter22")

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if resp.Agent.AgentID != "agent-1" || resp.Agent.BranchID != "branch-1" {
		t.Fatalf("agent = %s/%s, want agent-1/branch-1", resp.Agent.AgentID, resp.Agent.BranchID)
	}
	if resp.Agent.Email != "anna@example.com" {
		t.Fatalf("email = %s", resp.Agent.Email)
	}
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &authTestRepository{agents: map[string]model.AgentItem{}}
	seedAuthAgent(t, repo, "anna@example.com", "hunter22")
	handler := setupAuthHandler(t, repo)

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/login", "", dto.LoginRequest{Email: "anna@example.com", Password: "wrong"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	repo := &authTestRepository{agents: map[string]model.AgentItem{}}
	handler := setupAuthHandler(t, repo)

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/login", "", dto.LoginRequest{Email: "ghost@example.com", Password: "hunter22"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAuthMe(t *testing.T) {
	repo := &authTestRepository{agents: map[string]model.AgentItem{}}
	seedAuthAgent(t, repo, "anna@example.com", "hunter22")
	handler := setupAuthHandler(t, repo)

	resp := login(t, handler, "anna@example.com", "hunter22")

	res := doJSON(t, handler, http.MethodGet, "/api/agent/v1/auth/me", resp.AccessToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var me dto.MeResponse
	decodeJSON(t, res, &me)
	if me.Agent.Email != "anna@example.com" {
		t.Fatalf("email = %s", me.Agent.Email)
	}

	bad := doJSON(t, handler, http.MethodGet, "/api/agent/v1/auth/me", "not-a-token", nil)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a garbage token, got %d", bad.Code)
	}
}

func TestAuthRefreshAndLogout(t *testing.T) {
	repo := &authTestRepository{agents: map[string]model.AgentItem{}}
	seedAuthAgent(t, repo, "anna@example.com", "hunter22")
	handler := setupAuthHandler(t, repo)

	resp := login(t, handler, "anna@example.com", "hunter22")

	refreshed := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if refreshed.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", refreshed.Code, refreshed.Body.String())
	}
	var refreshResp dto.AuthResponse
	decodeJSON(t, refreshed, &refreshResp)
	if refreshResp.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}

	out := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/logout", "", dto.LogoutRequest{RefreshToken: resp.RefreshToken})
	if out.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", out.Code, out.Body.String())
	}

	revoked := doJSON(t, handler, http.MethodPost, "/api/agent/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if revoked.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d: %s", revoked.Code, revoked.Body.String())
	}
}
