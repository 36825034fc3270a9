package endpoints

import (
	"context"

	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
)

const (
	eventMessageCreated      = "message.created"
	eventConversationUpdated = "conversation.updated"
	eventTyping              = "typing"
)

type conversationUpdatePayload struct {
	Status   string `json:"status"`
	Assigned bool   `json:"assigned"`
}

type typingPayload struct {
	Typing bool `json:"typing"`
}

// visitorStreamSource feeds the widget's event stream by polling the
// conversation service with the stream's cursor. Status and typing
// changes are diffed against the previous tick so a quiet conversation
// emits nothing between keep-alives.
type visitorStreamSource struct {
	service      *conversationservice.Service
	sessionToken string
	widgetToken  string

	primed       bool
	lastStatus   string
	lastAssigned bool
	lastTyping   bool
}

func (s *visitorStreamSource) Events(ctx context.Context, cursor int64) ([]stream.Event, int64, error) {
	result, svcErr := s.service.PollVisitor(ctx, conversationservice.PollParams{
		SessionToken: s.sessionToken,
		WidgetToken:  s.widgetToken,
		After:        cursor,
	})
	if svcErr != nil {
		return nil, cursor, svcErr
	}

	events := make([]stream.Event, 0, len(result.Messages))
	for _, msg := range result.Messages {
		events = append(events, stream.Event{
			Name: eventMessageCreated,
			Data: toMessageResponse(msg),
		})
	}

	status := string(result.Status)
	if s.primed {
		if status != s.lastStatus || result.Assigned != s.lastAssigned {
			events = append(events, stream.Event{
				Name: eventConversationUpdated,
				Data: conversationUpdatePayload{Status: status, Assigned: result.Assigned},
			})
		}
		if result.AgentTyping != s.lastTyping {
			events = append(events, stream.Event{
				Name: eventTyping,
				Data: typingPayload{Typing: result.AgentTyping},
			})
		}
	}
	s.primed = true
	s.lastStatus = status
	s.lastAssigned = result.Assigned
	s.lastTyping = result.AgentTyping

	return events, lastSeq(result.Messages, cursor), nil
}

// agentStreamSource is the operator console's counterpart; it sees every
// message direction, internal notes included.
type agentStreamSource struct {
	service        *conversationservice.Service
	identity       conversationservice.AgentIdentity
	conversationID string

	primed       bool
	lastStatus   string
	lastAssigned bool
	lastTyping   bool
}

func (s *agentStreamSource) Events(ctx context.Context, cursor int64) ([]stream.Event, int64, error) {
	result, svcErr := s.service.PollAgent(ctx, s.identity, conversationservice.AgentPollParams{
		ConversationID: s.conversationID,
		After:          cursor,
	})
	if svcErr != nil {
		return nil, cursor, svcErr
	}

	events := make([]stream.Event, 0, len(result.Messages))
	for _, msg := range result.Messages {
		events = append(events, stream.Event{
			Name: eventMessageCreated,
			Data: toMessageResponse(msg),
		})
	}

	status := string(result.Conversation.Status)
	assigned := result.Conversation.AssigneeID != ""
	if s.primed {
		if status != s.lastStatus || assigned != s.lastAssigned {
			events = append(events, stream.Event{
				Name: eventConversationUpdated,
				Data: conversationUpdatePayload{Status: status, Assigned: assigned},
			})
		}
		if result.ContactTyping != s.lastTyping {
			events = append(events, stream.Event{
				Name: eventTyping,
				Data: typingPayload{Typing: result.ContactTyping},
			})
		}
	}
	s.primed = true
	s.lastStatus = status
	s.lastAssigned = assigned
	s.lastTyping = result.ContactTyping

	return events, lastSeq(result.Messages, cursor), nil
}
