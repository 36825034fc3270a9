package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"livechat-backend/internal/database"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"
)

// Service authenticates operators against the Agents table and exchanges
// credentials for signed access tokens.
type Service struct {
	repo   Repository
	tokens *internaljwt.Manager
	now    func() time.Time
}

func New(db *database.Database, tokens *internaljwt.Manager) *Service {
	return &Service{
		repo:   NewDynamoRepository(db),
		tokens: tokens,
		now:    time.Now,
	}
}

func NewWithRepository(repo Repository, tokens *internaljwt.Manager, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		now:    now,
	}
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	agent, err := s.repo.FindAgentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}
	if !agent.Active {
		return AuthResult{}, newError(ErrorCodeForbidden, "agent is deactivated", nil)
	}
	if !internaljwt.ValidatePassword(agent.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := s.tokens.CreateTokenWithRefresh(ctx, internaljwt.Claims{
		AgentID:  agent.AgentID,
		BranchID: agent.BranchID,
		Email:    agent.Email,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		Agent:  agent,
		Tokens: tokens,
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (internaljwt.TokenResponse, error) {
	accessToken, err := s.tokens.Refresh(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, internaljwt.ErrInvalidToken) {
			return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "invalid refresh token", err)
		}
		return internaljwt.TokenResponse{}, newError(ErrorCodeInternal, "failed to refresh token", err)
	}
	return internaljwt.TokenResponse{AccessToken: accessToken}, nil
}

// Logout revokes the refresh token. Access tokens expire on their own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.RevokeRefresh(ctx, strings.TrimSpace(refreshToken)); err != nil {
		return newError(ErrorCodeInternal, "failed to revoke refresh token", err)
	}
	return nil
}

func (s *Service) Me(ctx context.Context, identity Identity) (model.AgentItem, error) {
	agentID := strings.TrimSpace(identity.AgentID)
	branchID := strings.TrimSpace(identity.BranchID)

	if agentID == "" || branchID == "" {
		return model.AgentItem{}, newError(ErrorCodeUnauthorized, "invalid agent identity", nil)
	}

	agent, err := s.repo.GetAgent(ctx, branchID, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to fetch agent", err)
	}
	return agent, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	return Identity{
		AgentID:  claims.AgentID,
		BranchID: claims.BranchID,
		Email:    claims.Email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
