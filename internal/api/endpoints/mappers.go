package endpoints

import (
	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
)

func toMessageResponse(msg model.MessageItem) dto.MessageResponse {
	return dto.MessageResponse{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
		Direction:      string(msg.Direction),
		ContactID:      msg.ContactID,
		AgentID:        msg.AgentID,
		Body:           msg.Body,
		Attachments:    toAttachmentPayloads(msg.Attachments),
		Seq:            msg.Seq,
		CreatedAt:      msg.CreatedAt,
	}
}

func toMessageResponses(msgs []model.MessageItem) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, toMessageResponse(msg))
	}
	return out
}

// lastSeq is the cursor the client should poll from next.
func lastSeq(msgs []model.MessageItem, current int64) int64 {
	cursor := current
	for _, msg := range msgs {
		if msg.Seq > cursor {
			cursor = msg.Seq
		}
	}
	return cursor
}

func toAttachmentPayloads(items []model.AttachmentItem) []dto.AttachmentPayload {
	if len(items) == 0 {
		return nil
	}
	out := make([]dto.AttachmentPayload, 0, len(items))
	for _, item := range items {
		out = append(out, dto.AttachmentPayload{
			Name: item.Name,
			URL:  item.URL,
			Type: item.Type,
		})
	}
	return out
}

func toAttachmentItems(payloads []dto.AttachmentPayload) []model.AttachmentItem {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]model.AttachmentItem, 0, len(payloads))
	for _, payload := range payloads {
		out = append(out, model.AttachmentItem{
			Name: payload.Name,
			URL:  payload.URL,
			Type: payload.Type,
		})
	}
	return out
}

func toConversationResponse(conv model.ConversationItem) dto.ConversationResponse {
	return dto.ConversationResponse{
		ConversationID:   conv.ConversationID,
		InboxID:          conv.InboxID,
		BranchID:         conv.BranchID,
		ContactID:        conv.ContactID,
		ContactName:      conv.ContactName,
		Status:           string(conv.Status),
		Priority:         conv.Priority,
		AssigneeID:       conv.AssigneeID,
		Region:           conv.Region,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
		LastActivityAt:   conv.LastActivityAt,
		AssignedAt:       conv.AssignedAt,
		AssigneeOpenedAt: conv.AssigneeOpenedAt,
		RatingScore:      conv.RatingScore,
		RatingComment:    conv.RatingComment,
		RatedAt:          conv.RatedAt,
	}
}

func toConversationResponses(convs []model.ConversationItem) []dto.ConversationResponse {
	out := make([]dto.ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResponse(conv))
	}
	return out
}

func toAgentResponse(agent model.AgentItem) dto.AgentResponse {
	return dto.AgentResponse{
		AgentID:  agent.AgentID,
		BranchID: agent.BranchID,
		Name:     agent.Name,
		Email:    agent.Email,
		Role:     agent.Role,
		Presence: string(agent.Presence),
	}
}
