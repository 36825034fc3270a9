package model

type MessageDirection string

const (
	// MessageDirectionIn is a visitor message sent through the widget.
	MessageDirectionIn MessageDirection = "in"
	// MessageDirectionOut is an operator reply visible to the visitor.
	MessageDirectionOut MessageDirection = "out"
	// MessageDirectionInternal is an operator note hidden from the visitor.
	MessageDirectionInternal MessageDirection = "internal"
)

type AttachmentItem struct {
	Name string `dynamodbav:"name"`
	URL  string `dynamodbav:"url"`
	Type string `dynamodbav:"type,omitempty"`
}

type MessageItem struct {
	PK             string           `dynamodbav:"pk"`
	InboxID        string           `dynamodbav:"inboxId"`
	ConversationID string           `dynamodbav:"conversationId"`
	MessageID      string           `dynamodbav:"messageId"`
	Direction      MessageDirection `dynamodbav:"direction"`
	ContactID      string           `dynamodbav:"contactId,omitempty"`
	AgentID        string           `dynamodbav:"agentId,omitempty"`
	Body           string           `dynamodbav:"body,omitempty"`
	Attachments    []AttachmentItem `dynamodbav:"attachments,omitempty"`
	Seq            int64            `dynamodbav:"seq"`
	CreatedAt      string           `dynamodbav:"createdAt"`
}

// VisitorVisible reports whether the widget side may see this message.
func (m MessageItem) VisitorVisible() bool {
	return m.Direction == MessageDirectionIn || m.Direction == MessageDirectionOut
}
