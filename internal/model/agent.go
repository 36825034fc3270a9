package model

type AgentPresence string

const (
	AgentPresenceOnline  AgentPresence = "online"
	AgentPresenceAway    AgentPresence = "away"
	AgentPresenceBusy    AgentPresence = "busy"
	AgentPresenceOffline AgentPresence = "offline"
)

func ValidAgentPresence(s string) bool {
	switch AgentPresence(s) {
	case AgentPresenceOnline, AgentPresenceAway, AgentPresenceBusy, AgentPresenceOffline:
		return true
	}
	return false
}

const (
	AgentRoleAdmin    = "admin"
	AgentRoleOperator = "operator"
)

// SystemAgentID is the reserved sender used by automation replies.
const SystemAgentID = "system"

type AgentItem struct {
	PK           string        `dynamodbav:"pk"`
	BranchID     string        `dynamodbav:"branchId"`
	AgentID      string        `dynamodbav:"agentId"`
	Name         string        `dynamodbav:"name"`
	Email        string        `dynamodbav:"email"`
	Role         string        `dynamodbav:"role"`
	Active       bool          `dynamodbav:"active"`
	PasswordHash string        `dynamodbav:"passwordHash,omitempty"`
	Presence     AgentPresence `dynamodbav:"presence"`
	PresenceAt   string        `dynamodbav:"presenceAt,omitempty"`
	CreatedAt    string        `dynamodbav:"createdAt"`
}

// Assignable reports whether the agent may receive auto-assigned
// conversations: active, non-admin and currently online.
func (a AgentItem) Assignable() bool {
	return a.Active && a.Role != AgentRoleAdmin && a.Presence == AgentPresenceOnline
}
