package model

type InboxItem struct {
	InboxID     string                 `dynamodbav:"inboxId"`
	Name        string                 `dynamodbav:"name"`
	BranchID    string                 `dynamodbav:"branchId,omitempty"`
	WidgetToken string                 `dynamodbav:"widgetToken"`
	Settings    map[string]interface{} `dynamodbav:"settings,omitempty"`
	Active      bool                   `dynamodbav:"active"`
	CreatedAt   string                 `dynamodbav:"createdAt"`
}

// Global reports whether the inbox has no fixed branch and relies on
// routing rules to pick one per conversation.
func (i InboxItem) Global() bool {
	return i.BranchID == ""
}

type ContactItem struct {
	PK         string `dynamodbav:"pk"`
	InboxID    string `dynamodbav:"inboxId"`
	ContactID  string `dynamodbav:"contactId"`
	ExternalID string `dynamodbav:"externalId,omitempty"`
	Name       string `dynamodbav:"name,omitempty"`
	Email      string `dynamodbav:"email,omitempty"`
	Phone      string `dynamodbav:"phone,omitempty"`
	Region     string `dynamodbav:"region,omitempty"`
	CreatedAt  string `dynamodbav:"createdAt"`
	LastSeenAt string `dynamodbav:"lastSeenAt"`
}
