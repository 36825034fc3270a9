package conversation

import (
	"fmt"

	"livechat-backend/internal/model"
)

// validateConversationBinding checks a conversation about to be created
// against its inbox: the inbox must match, and a branch-bound inbox pins
// the conversation's branch. Global inboxes get their branch from routing
// at creation time; it must still be set.
func validateConversationBinding(inbox model.InboxItem, conv model.ConversationItem) error {
	if conv.InboxID != inbox.InboxID {
		return fmt.Errorf("conversation %s bound to inbox %s, expected %s", conv.ConversationID, conv.InboxID, inbox.InboxID)
	}
	if conv.BranchID == "" {
		return fmt.Errorf("conversation %s has no branch", conv.ConversationID)
	}
	if !inbox.Global() && conv.BranchID != inbox.BranchID {
		return fmt.Errorf("conversation %s branch %s differs from inbox branch %s", conv.ConversationID, conv.BranchID, inbox.BranchID)
	}
	return nil
}

// validateConversationImmutable rejects updates that try to move a
// conversation to another inbox or branch after creation.
func validateConversationImmutable(existing, next model.ConversationItem) error {
	if next.InboxID != existing.InboxID {
		return fmt.Errorf("conversation %s inbox is immutable", existing.ConversationID)
	}
	if next.BranchID != existing.BranchID {
		return fmt.Errorf("conversation %s branch is immutable", existing.ConversationID)
	}
	return nil
}

// validateMessageSender enforces the direction/sender pairing: inbound
// messages carry exactly a contact, outbound and internal ones exactly an
// agent.
func validateMessageSender(msg model.MessageItem) error {
	switch msg.Direction {
	case model.MessageDirectionIn:
		if msg.ContactID == "" || msg.AgentID != "" {
			return fmt.Errorf("inbound message must be sent by a contact")
		}
	case model.MessageDirectionOut, model.MessageDirectionInternal:
		if msg.AgentID == "" || msg.ContactID != "" {
			return fmt.Errorf("%s message must be sent by an agent", msg.Direction)
		}
	default:
		return fmt.Errorf("unknown message direction %q", msg.Direction)
	}
	return nil
}
