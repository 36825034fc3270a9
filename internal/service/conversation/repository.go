package conversation

import (
	"context"
	"fmt"
	"strings"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Repository is the persistence contract for the conversation service.
type Repository interface {
	GetInboxByWidgetToken(ctx context.Context, widgetToken string) (model.InboxItem, error)
	GetInbox(ctx context.Context, inboxID string) (model.InboxItem, error)

	GetContact(ctx context.Context, inboxID, contactID string) (model.ContactItem, error)
	GetContactByExternalID(ctx context.Context, inboxID, externalID string) (model.ContactItem, error)
	PutContact(ctx context.Context, contact model.ContactItem) error

	FindActiveConversation(ctx context.Context, inboxID, contactID string) (model.ConversationItem, error)
	GetConversation(ctx context.Context, inboxID, conversationID string) (model.ConversationItem, error)
	GetConversationByID(ctx context.Context, conversationID string) (model.ConversationItem, error)
	CreateConversation(ctx context.Context, conv model.ConversationItem) error
	ListConversationsByBranch(ctx context.Context, branchID, status string, limit int) ([]model.ConversationItem, error)

	UpdateConversationActivity(ctx context.Context, inboxID, conversationID, updatedAt, lastActivityAt string) error
	UpdateConversationStatus(ctx context.Context, inboxID, conversationID, status, updatedAt string) error
	UpdateConversationAssignee(ctx context.Context, inboxID, conversationID, assigneeID, assignedAt, updatedAt string) error
	MarkAssigneeOpened(ctx context.Context, inboxID, conversationID, openedAt, updatedAt string) error
	RecordRating(ctx context.Context, inboxID, conversationID string, score int, comment, ratedAt string) error

	CreateMessage(ctx context.Context, msg model.MessageItem) error
	ListMessagesAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]model.MessageItem, error)
	TailMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error)

	GetAgent(ctx context.Context, branchID, agentID string) (model.AgentItem, error)
	UpdateAgentPresence(ctx context.Context, branchID, agentID, presence, presenceAt string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}

func (r *DynamoRepository) GetInboxByWidgetToken(ctx context.Context, widgetToken string) (model.InboxItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.InboxesTable,
		aws.String("byWidgetToken"),
		"widgetToken = :widgetToken",
		map[string]types.AttributeValue{
			":widgetToken": &types.AttributeValueMemberS{Value: widgetToken},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.InboxItem{}, err
	}
	if len(items) == 0 {
		return model.InboxItem{}, fmt.Errorf("item not found in %s", model.InboxesTable)
	}

	var inbox model.InboxItem
	if err := attributevalue.UnmarshalMap(items[0], &inbox); err != nil {
		return model.InboxItem{}, err
	}
	return inbox, nil
}

func (r *DynamoRepository) GetInbox(ctx context.Context, inboxID string) (model.InboxItem, error) {
	var inbox model.InboxItem
	err := r.db.Client.GetItem(ctx, model.InboxesTable, map[string]types.AttributeValue{
		"inboxId": &types.AttributeValueMemberS{Value: inboxID},
	}, &inbox)
	if err != nil {
		return model.InboxItem{}, err
	}
	return inbox, nil
}

func (r *DynamoRepository) GetContact(ctx context.Context, inboxID, contactID string) (model.ContactItem, error) {
	var contact model.ContactItem
	err := r.db.Client.GetItem(ctx, model.ContactsTable, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: model.ContactPK(inboxID, contactID)},
	}, &contact)
	if err != nil {
		return model.ContactItem{}, err
	}
	return contact, nil
}

func (r *DynamoRepository) GetContactByExternalID(ctx context.Context, inboxID, externalID string) (model.ContactItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ContactsTable,
		aws.String("byExternalId"),
		"inboxId = :inboxId AND externalId = :externalId",
		map[string]types.AttributeValue{
			":inboxId":    &types.AttributeValueMemberS{Value: inboxID},
			":externalId": &types.AttributeValueMemberS{Value: externalID},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.ContactItem{}, err
	}
	if len(items) == 0 {
		return model.ContactItem{}, fmt.Errorf("item not found in %s", model.ContactsTable)
	}

	var contact model.ContactItem
	if err := attributevalue.UnmarshalMap(items[0], &contact); err != nil {
		return model.ContactItem{}, err
	}
	return contact, nil
}

func (r *DynamoRepository) PutContact(ctx context.Context, contact model.ContactItem) error {
	return r.db.Client.PutItem(ctx, model.ContactsTable, contact)
}

func (r *DynamoRepository) FindActiveConversation(ctx context.Context, inboxID, contactID string) (model.ConversationItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ConversationsTable,
		aws.String("byContact"),
		"inboxId = :inboxId AND contactId = :contactId",
		map[string]types.AttributeValue{
			":inboxId":   &types.AttributeValueMemberS{Value: inboxID},
			":contactId": &types.AttributeValueMemberS{Value: contactID},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.ConversationItem{}, err
	}

	for _, item := range items {
		var conv model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conv); err != nil {
			return model.ConversationItem{}, err
		}
		if conv.Status.Active() {
			return conv, nil
		}
	}
	return model.ConversationItem{}, fmt.Errorf("item not found in %s", model.ConversationsTable)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, inboxID, conversationID string) (model.ConversationItem, error) {
	var conv model.ConversationItem
	err := r.db.Client.GetItem(ctx, model.ConversationsTable, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
	}, &conv)
	if err != nil {
		return model.ConversationItem{}, err
	}
	return conv, nil
}

func (r *DynamoRepository) GetConversationByID(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ConversationsTable,
		aws.String("byConversationId"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if len(items) == 0 {
		return model.ConversationItem{}, fmt.Errorf("item not found in %s", model.ConversationsTable)
	}

	var conv model.ConversationItem
	if err := attributevalue.UnmarshalMap(items[0], &conv); err != nil {
		return model.ConversationItem{}, err
	}
	return conv, nil
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conv model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conv)
}

func (r *DynamoRepository) ListConversationsByBranch(ctx context.Context, branchID, status string, limit int) ([]model.ConversationItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.ConversationsTable,
		aws.String("byBranch"),
		"branchId = :branchId",
		map[string]types.AttributeValue{
			":branchId": &types.AttributeValueMemberS{Value: branchID},
		},
	)
	if err != nil {
		return nil, err
	}

	out := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conv model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conv); err != nil {
			return nil, err
		}
		if status != "" && string(conv.Status) != status {
			continue
		}
		out = append(out, conv)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *DynamoRepository) UpdateConversationActivity(ctx context.Context, inboxID, conversationID, updatedAt, lastActivityAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
		},
		"SET #updatedAt = :updatedAt, #lastActivityAt = :lastActivityAt",
		map[string]types.AttributeValue{
			":updatedAt":      &types.AttributeValueMemberS{Value: updatedAt},
			":lastActivityAt": &types.AttributeValueMemberS{Value: lastActivityAt},
		},
		map[string]string{
			"#updatedAt":      "updatedAt",
			"#lastActivityAt": "lastActivityAt",
		},
		nil,
	)
}

func (r *DynamoRepository) UpdateConversationStatus(ctx context.Context, inboxID, conversationID, status, updatedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
		},
		"SET #status = :status, #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: status},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#status":    "status",
			"#updatedAt": "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) UpdateConversationAssignee(ctx context.Context, inboxID, conversationID, assigneeID, assignedAt, updatedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
		},
		"SET #assigneeId = :assigneeId, #assignedAt = :assignedAt, #updatedAt = :updatedAt REMOVE #assigneeOpenedAt",
		map[string]types.AttributeValue{
			":assigneeId": &types.AttributeValueMemberS{Value: assigneeID},
			":assignedAt": &types.AttributeValueMemberS{Value: assignedAt},
			":updatedAt":  &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#assigneeId":       "assigneeId",
			"#assignedAt":       "assignedAt",
			"#updatedAt":        "updatedAt",
			"#assigneeOpenedAt": "assigneeOpenedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) MarkAssigneeOpened(ctx context.Context, inboxID, conversationID, openedAt, updatedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
		},
		"SET #assigneeOpenedAt = :openedAt, #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":openedAt":  &types.AttributeValueMemberS{Value: openedAt},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#assigneeOpenedAt": "assigneeOpenedAt",
			"#updatedAt":        "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) RecordRating(ctx context.Context, inboxID, conversationID string, score int, comment, ratedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.ConversationPK(inboxID, conversationID)},
		},
		"SET #ratingScore = :score, #ratingComment = :comment, #ratedAt = :ratedAt",
		map[string]types.AttributeValue{
			":score":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", score)},
			":comment": &types.AttributeValueMemberS{Value: comment},
			":ratedAt": &types.AttributeValueMemberS{Value: ratedAt},
		},
		map[string]string{
			"#ratingScore":   "ratingScore",
			"#ratingComment": "ratingComment",
			"#ratedAt":       "ratedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, msg model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, msg)
}

func (r *DynamoRepository) ListMessagesAfter(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]model.MessageItem, error) {
	items, err := r.db.Client.QueryItemsLimited(
		ctx,
		model.MessagesTable,
		aws.String("byConversation"),
		"conversationId = :conversationId AND seq > :seq",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
			":seq":            &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", afterSeq)},
		},
		int32(limit),
		nil,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalMessages(items)
}

func (r *DynamoRepository) TailMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	forward := false
	items, err := r.db.Client.QueryItemsLimited(
		ctx,
		model.MessagesTable,
		aws.String("byConversation"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		int32(limit),
		&forward,
	)
	if err != nil {
		return nil, err
	}

	msgs, err := unmarshalMessages(items)
	if err != nil {
		return nil, err
	}
	// The query runs newest-first; callers expect ascending seq order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func unmarshalMessages(items []map[string]types.AttributeValue) ([]model.MessageItem, error) {
	out := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var msg model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *DynamoRepository) GetAgent(ctx context.Context, branchID, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	err := r.db.Client.GetItem(ctx, model.AgentsTable, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: model.AgentPK(branchID, agentID)},
	}, &agent)
	if err != nil {
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) UpdateAgentPresence(ctx context.Context, branchID, agentID, presence, presenceAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.AgentsTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.AgentPK(branchID, agentID)},
		},
		"SET #presence = :presence, #presenceAt = :presenceAt",
		map[string]types.AttributeValue{
			":presence":   &types.AttributeValueMemberS{Value: presence},
			":presenceAt": &types.AttributeValueMemberS{Value: presenceAt},
		},
		map[string]string{
			"#presence":   "presence",
			"#presenceAt": "presenceAt",
		},
		nil,
	)
}
