package dto

type BootstrapRequest struct {
	ExternalID string `json:"externalId,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	// Region is a hint from the embedding page; the server falls back to
	// IP-based detection when it is empty.
	Region string `json:"region,omitempty"`
}

type AttachmentPayload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type MessageResponse struct {
	MessageID      string              `json:"messageId"`
	ConversationID string              `json:"conversationId"`
	Direction      string              `json:"direction"`
	ContactID      string              `json:"contactId,omitempty"`
	AgentID        string              `json:"agentId,omitempty"`
	Body           string              `json:"body,omitempty"`
	Attachments    []AttachmentPayload `json:"attachments,omitempty"`
	Seq            int64               `json:"seq"`
	CreatedAt      string              `json:"createdAt"`
}

type WidgetConfigResponse struct {
	BubbleText string `json:"bubbleText,omitempty"`
	HeaderText string `json:"headerText,omitempty"`
	ThemeColor string `json:"themeColor,omitempty"`
}

type RatingConfigResponse struct {
	Enabled  bool   `json:"enabled"`
	Type     string `json:"type,omitempty"`
	MaxScore int    `json:"maxScore,omitempty"`
}

type BootstrapResponse struct {
	SessionToken   string               `json:"sessionToken"`
	ConversationID string               `json:"conversationId"`
	Status         string               `json:"status"`
	Reused         bool                 `json:"reused"`
	Offline        bool                 `json:"offline"`
	OfflineMessage string               `json:"offlineMessage,omitempty"`
	SSEEnabled     bool                 `json:"sseEnabled"`
	Widget         WidgetConfigResponse `json:"widget"`
	Rating         RatingConfigResponse `json:"rating"`
	Messages       []MessageResponse    `json:"messages"`
}

type SendMessageRequest struct {
	Body        string              `json:"body"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

type SendMessageResponse struct {
	Message MessageResponse `json:"message"`
}

type WidgetPollResponse struct {
	Messages        []MessageResponse `json:"messages"`
	Cursor          int64             `json:"cursor"`
	Status          string            `json:"status"`
	Assigned        bool              `json:"assigned"`
	AgentTyping     bool              `json:"agentTyping"`
	RatingRequested bool              `json:"ratingRequested"`
	RatingMaxScore  int               `json:"ratingMaxScore,omitempty"`
}

type RatingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}
