package model

type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "open"
	ConversationStatusPending  ConversationStatus = "pending"
	ConversationStatusResolved ConversationStatus = "resolved"
	ConversationStatusClosed   ConversationStatus = "closed"
)

// ActiveStatus reports whether the status keeps the conversation eligible
// for widget reuse, assignment load counting and escalation.
func (s ConversationStatus) Active() bool {
	return s == ConversationStatusOpen || s == ConversationStatusPending
}

func ValidConversationStatus(s string) bool {
	switch ConversationStatus(s) {
	case ConversationStatusOpen, ConversationStatusPending,
		ConversationStatusResolved, ConversationStatusClosed:
		return true
	}
	return false
}

type ConversationItem struct {
	PK               string             `dynamodbav:"pk"`
	ConversationID   string             `dynamodbav:"conversationId"`
	InboxID          string             `dynamodbav:"inboxId"`
	BranchID         string             `dynamodbav:"branchId"`
	ContactID        string             `dynamodbav:"contactId"`
	ContactName      string             `dynamodbav:"contactName,omitempty"`
	Status           ConversationStatus `dynamodbav:"status"`
	Priority         int                `dynamodbav:"priority"`
	AssigneeID       string             `dynamodbav:"assigneeId,omitempty"`
	Region           string             `dynamodbav:"region,omitempty"`
	CreatedAt        string             `dynamodbav:"createdAt"`
	UpdatedAt        string             `dynamodbav:"updatedAt"`
	LastActivityAt   string             `dynamodbav:"lastActivityAt"`
	AssignedAt       string             `dynamodbav:"assignedAt,omitempty"`
	AssigneeOpenedAt string             `dynamodbav:"assigneeOpenedAt,omitempty"`
	RatingScore      int                `dynamodbav:"ratingScore,omitempty"`
	RatingComment    string             `dynamodbav:"ratingComment,omitempty"`
	RatedAt          string             `dynamodbav:"ratedAt,omitempty"`
}
