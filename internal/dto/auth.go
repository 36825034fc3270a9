package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AgentResponse struct {
	AgentID  string `json:"agentId"`
	BranchID string `json:"branchId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Presence string `json:"presence,omitempty"`
}

type AuthResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	Agent        AgentResponse `json:"agent"`
}

type MeResponse struct {
	Agent AgentResponse `json:"agent"`
}
