package conversation

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"livechat-backend/internal/model"
	"livechat-backend/internal/webhook"
)

// AgentIdentity is the authenticated agent making the request, as carried
// by its access token.
type AgentIdentity struct {
	AgentID  string
	BranchID string
}

func (s *Service) requireAgent(ctx context.Context, id AgentIdentity) (model.AgentItem, *Error) {
	agent, err := s.repo.GetAgent(ctx, id.BranchID, id.AgentID)
	if err != nil {
		if isNotFound(err) {
			return model.AgentItem{}, newError(ErrorCodeUnauthorized, "unknown agent", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}
	if !agent.Active {
		return model.AgentItem{}, newError(ErrorCodeForbidden, "agent is deactivated", nil)
	}
	return agent, nil
}

// agentConversation loads a conversation for an agent, hiding the
// existence of conversations in other branches.
func (s *Service) agentConversation(ctx context.Context, id AgentIdentity, conversationID string) (model.ConversationItem, *Error) {
	conv, err := s.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	if conv.BranchID != id.BranchID {
		return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", nil)
	}
	return conv, nil
}

// ListConversations returns the agent's branch queue, optionally filtered
// by status.
func (s *Service) ListConversations(ctx context.Context, id AgentIdentity, status string, limit int) ([]model.ConversationItem, *Error) {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return nil, serr
	}
	if status != "" && !model.ValidConversationStatus(status) {
		return nil, newError(ErrorCodeValidation, "unknown status filter", nil)
	}

	conversations, err := s.repo.ListConversationsByBranch(ctx, id.BranchID, status, clampLimit(limit))
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list conversations", err)
	}
	return conversations, nil
}

type AgentPollParams struct {
	ConversationID string
	After          int64
	Limit          int
}

type AgentPollResult struct {
	Conversation  model.ConversationItem
	Messages      []model.MessageItem
	ContactTyping bool
}

// PollAgent mirrors the widget poll for the operator console: it returns
// every direction, internal notes included.
func (s *Service) PollAgent(ctx context.Context, id AgentIdentity, params AgentPollParams) (AgentPollResult, *Error) {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return AgentPollResult{}, serr
	}

	conv, serr := s.agentConversation(ctx, id, params.ConversationID)
	if serr != nil {
		return AgentPollResult{}, serr
	}

	limit := clampLimit(params.Limit)
	var msgs []model.MessageItem
	var err error
	if params.After > 0 {
		msgs, err = s.repo.ListMessagesAfter(ctx, conv.ConversationID, params.After, limit)
	} else {
		msgs, err = s.repo.TailMessages(ctx, conv.ConversationID, limit)
	}
	if err != nil {
		return AgentPollResult{}, newError(ErrorCodeInternal, "failed to load messages", err)
	}

	contactTyping, err := s.typing.ContactTyping(ctx, conv.ConversationID)
	if err != nil {
		contactTyping = false
	}

	return AgentPollResult{
		Conversation:  conv,
		Messages:      msgs,
		ContactTyping: contactTyping,
	}, nil
}

type AgentMessageParams struct {
	ConversationID string
	Body           string
	Internal       bool
	Attachments    []model.AttachmentItem
}

// PostAgentMessage appends an operator reply or internal note. Replying
// to an unassigned conversation claims it; the assignee's first message
// also counts as opening it, which stops the escalation timer.
func (s *Service) PostAgentMessage(ctx context.Context, id AgentIdentity, params AgentMessageParams) (model.MessageItem, *Error) {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return model.MessageItem{}, serr
	}

	conv, serr := s.agentConversation(ctx, id, params.ConversationID)
	if serr != nil {
		return model.MessageItem{}, serr
	}
	if !conv.Status.Active() {
		return model.MessageItem{}, newError(ErrorCodeConflict, "conversation is no longer active", nil)
	}

	body := strings.TrimSpace(params.Body)
	if body == "" && len(params.Attachments) == 0 {
		return model.MessageItem{}, newError(ErrorCodeValidation, "message body is empty", nil)
	}
	if utf8.RuneCountInString(body) > MaxMessageBody {
		return model.MessageItem{}, newError(ErrorCodeValidation, "message body is too long", nil)
	}

	seq, err := s.nextSeq(ctx, conv.ConversationID)
	if err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to sequence message", err)
	}

	direction := model.MessageDirectionOut
	if params.Internal {
		direction = model.MessageDirectionInternal
	}

	nowStr := s.timestamp()
	msg := model.MessageItem{
		InboxID:        conv.InboxID,
		ConversationID: conv.ConversationID,
		MessageID:      uuid.NewString(),
		Direction:      direction,
		AgentID:        id.AgentID,
		Body:           body,
		Attachments:    params.Attachments,
		Seq:            seq,
		CreatedAt:      nowStr,
	}
	msg.PK = model.MessagePK(conv.ConversationID, msg.MessageID)

	if err := validateMessageSender(msg); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "message failed validation", err)
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to store message", err)
	}
	if err := s.repo.UpdateConversationActivity(ctx, conv.InboxID, conv.ConversationID, nowStr, nowStr); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to touch conversation", err)
	}

	if conv.AssigneeID == "" {
		if err := s.repo.UpdateConversationAssignee(ctx, conv.InboxID, conv.ConversationID, id.AgentID, nowStr, nowStr); err != nil {
			return model.MessageItem{}, newError(ErrorCodeInternal, "failed to claim conversation", err)
		}
		conv.AssigneeID = id.AgentID
	}
	if conv.AssigneeID == id.AgentID && conv.AssigneeOpenedAt == "" {
		if err := s.repo.MarkAssigneeOpened(ctx, conv.InboxID, conv.ConversationID, nowStr, nowStr); err != nil {
			return model.MessageItem{}, newError(ErrorCodeInternal, "failed to mark conversation opened", err)
		}
	}

	if direction == model.MessageDirectionOut {
		settings, err := s.settingsFor(ctx, conv.InboxID)
		if err == nil {
			s.notify(settings.Webhook, webhook.EventMessageCreated, conv, &msg)
		}
	}
	return msg, nil
}

// OpenConversation stamps the moment the assignee first looked at the
// conversation. Repeat calls and calls by non-assignees are no-ops.
func (s *Service) OpenConversation(ctx context.Context, id AgentIdentity, conversationID string) *Error {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return serr
	}

	conv, serr := s.agentConversation(ctx, id, conversationID)
	if serr != nil {
		return serr
	}
	if conv.AssigneeID != id.AgentID || conv.AssigneeOpenedAt != "" {
		return nil
	}

	nowStr := s.timestamp()
	if err := s.repo.MarkAssigneeOpened(ctx, conv.InboxID, conv.ConversationID, nowStr, nowStr); err != nil {
		return newError(ErrorCodeInternal, "failed to mark conversation opened", err)
	}
	return nil
}

// SetStatus moves a conversation to another lifecycle status. Closing it
// notifies the inbox webhook and makes the conversation ratable.
func (s *Service) SetStatus(ctx context.Context, id AgentIdentity, conversationID, status string) (model.ConversationItem, *Error) {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return model.ConversationItem{}, serr
	}
	if !model.ValidConversationStatus(status) {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "unknown status", nil)
	}

	conv, serr := s.agentConversation(ctx, id, conversationID)
	if serr != nil {
		return model.ConversationItem{}, serr
	}
	if string(conv.Status) == status {
		return conv, nil
	}

	next := conv
	next.Status = model.ConversationStatus(status)
	if err := validateConversationImmutable(conv, next); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "conversation failed validation", err)
	}

	nowStr := s.timestamp()
	if err := s.repo.UpdateConversationStatus(ctx, conv.InboxID, conv.ConversationID, status, nowStr); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to update status", err)
	}
	next.UpdatedAt = nowStr

	if next.Status == model.ConversationStatusClosed {
		settings, err := s.settingsFor(ctx, conv.InboxID)
		if err == nil {
			s.notify(settings.Webhook, webhook.EventConversationClosed, next, nil)
		}
	}
	return next, nil
}

// AssignConversation hands the conversation to another operator in the
// same branch. The escalation timer restarts for the new assignee.
func (s *Service) AssignConversation(ctx context.Context, id AgentIdentity, conversationID, agentID string) (model.ConversationItem, *Error) {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return model.ConversationItem{}, serr
	}

	conv, serr := s.agentConversation(ctx, id, conversationID)
	if serr != nil {
		return model.ConversationItem{}, serr
	}
	if !conv.Status.Active() {
		return model.ConversationItem{}, newError(ErrorCodeConflict, "conversation is no longer active", nil)
	}

	target, err := s.repo.GetAgent(ctx, conv.BranchID, agentID)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, newError(ErrorCodeValidation, "agent is not in this branch", err)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}
	if !target.Active {
		return model.ConversationItem{}, newError(ErrorCodeValidation, "agent is deactivated", nil)
	}

	next := conv
	next.AssigneeID = target.AgentID
	if err := validateConversationImmutable(conv, next); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "conversation failed validation", err)
	}

	nowStr := s.timestamp()
	if err := s.repo.UpdateConversationAssignee(ctx, conv.InboxID, conv.ConversationID, target.AgentID, nowStr, nowStr); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to assign conversation", err)
	}
	next.AssignedAt = nowStr
	next.AssigneeOpenedAt = ""
	next.UpdatedAt = nowStr
	return next, nil
}

// SetPresence updates the agent's availability, which feeds the
// round-robin candidate filter.
func (s *Service) SetPresence(ctx context.Context, id AgentIdentity, presenceState string) *Error {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return serr
	}
	if !model.ValidAgentPresence(presenceState) {
		return newError(ErrorCodeValidation, "unknown presence state", nil)
	}

	if err := s.repo.UpdateAgentPresence(ctx, id.BranchID, id.AgentID, presenceState, s.timestamp()); err != nil {
		return newError(ErrorCodeInternal, "failed to update presence", err)
	}
	return nil
}

// MarkAgentTyping refreshes the agent's short-lived typing flag on the
// conversation.
func (s *Service) MarkAgentTyping(ctx context.Context, id AgentIdentity, conversationID string) *Error {
	if _, serr := s.requireAgent(ctx, id); serr != nil {
		return serr
	}

	conv, serr := s.agentConversation(ctx, id, conversationID)
	if serr != nil {
		return serr
	}
	if err := s.typing.MarkAgent(ctx, conv.ConversationID); err != nil {
		return newError(ErrorCodeInternal, "failed to record typing", err)
	}
	return nil
}
