package model

import "fmt"

const (
	InboxesTable       = "Inboxes"
	ContactsTable      = "Contacts"
	ConversationsTable = "Conversations"
	MessagesTable      = "Messages"
	RoutingRulesTable  = "RoutingRules"
	AgentsTable        = "Agents"
)

func ContactPK(inboxID, contactID string) string {
	return fmt.Sprintf("%s#%s", inboxID, contactID)
}

func ConversationPK(inboxID, conversationID string) string {
	return fmt.Sprintf("%s#%s", inboxID, conversationID)
}

func MessagePK(conversationID, messageID string) string {
	return fmt.Sprintf("%s#%s", conversationID, messageID)
}

func AgentPK(branchID, agentID string) string {
	return fmt.Sprintf("%s#%s", branchID, agentID)
}
