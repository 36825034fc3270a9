package dto

type ConversationResponse struct {
	ConversationID   string `json:"conversationId"`
	InboxID          string `json:"inboxId"`
	BranchID         string `json:"branchId"`
	ContactID        string `json:"contactId"`
	ContactName      string `json:"contactName,omitempty"`
	Status           string `json:"status"`
	Priority         int    `json:"priority"`
	AssigneeID       string `json:"assigneeId,omitempty"`
	Region           string `json:"region,omitempty"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
	LastActivityAt   string `json:"lastActivityAt"`
	AssignedAt       string `json:"assignedAt,omitempty"`
	AssigneeOpenedAt string `json:"assigneeOpenedAt,omitempty"`
	RatingScore      int    `json:"ratingScore,omitempty"`
	RatingComment    string `json:"ratingComment,omitempty"`
	RatedAt          string `json:"ratedAt,omitempty"`
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type AgentPollResponse struct {
	Conversation  ConversationResponse `json:"conversation"`
	Messages      []MessageResponse    `json:"messages"`
	Cursor        int64                `json:"cursor"`
	ContactTyping bool                 `json:"contactTyping"`
}

type AgentMessageRequest struct {
	Body        string              `json:"body"`
	Internal    bool                `json:"internal,omitempty"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

type AgentMessageResponse struct {
	Message MessageResponse `json:"message"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type AssignRequest struct {
	AgentID string `json:"agentId"`
}

type SetPresenceRequest struct {
	Presence string `json:"presence"`
}
