package assignment

import (
	"context"
	"strings"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Repository interface {
	ListAssignableAgents(ctx context.Context, branchID string) ([]model.AgentItem, error)
	// CountActiveAssigned counts the conversations currently assigned to
	// the agent with status open or pending.
	CountActiveAssigned(ctx context.Context, branchID, agentID string) (int, error)
	// ListUnopenedAssigned returns conversations that have an assignee but
	// no assigneeOpenedAt stamp; the sweeper filters them by age.
	ListUnopenedAssigned(ctx context.Context) ([]model.ConversationItem, error)
	UpdateAssignment(ctx context.Context, inboxID, conversationID, assigneeID, assignedAt, updatedAt string) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListAssignableAgents(ctx context.Context, branchID string) ([]model.AgentItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.AgentsTable,
		aws.String("byBranch"),
		"branchId = :branchId",
		map[string]types.AttributeValue{
			":branchId": &types.AttributeValueMemberS{Value: branchID},
		},
		nil,
		nil,
	)
	if err != nil && !isIndexNotFound(err) {
		return nil, err
	}
	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.AgentsTable,
			"branchId = :branchId",
			map[string]types.AttributeValue{
				":branchId": &types.AttributeValueMemberS{Value: branchID},
			},
			nil,
		)
		if err != nil {
			return nil, err
		}
	}

	agents := make([]model.AgentItem, 0, len(items))
	for _, item := range items {
		var agent model.AgentItem
		if err := attributevalue.UnmarshalMap(item, &agent); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func (r *DynamoRepository) CountActiveAssigned(ctx context.Context, branchID, agentID string) (int, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.ConversationsTable,
		aws.String("byAssignee"),
		"assigneeId = :assigneeId",
		map[string]types.AttributeValue{
			":assigneeId": &types.AttributeValueMemberS{Value: agentID},
		},
	)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		var conv model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conv); err != nil {
			return 0, err
		}
		if conv.BranchID == branchID && conv.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (r *DynamoRepository) ListUnopenedAssigned(ctx context.Context) ([]model.ConversationItem, error) {
	// The sweeper must see every page; a single Scan truncates at 1MB.
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.ConversationsTable,
		"attribute_exists(assigneeId) AND attribute_not_exists(assigneeOpenedAt)",
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conv model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conv); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (r *DynamoRepository) UpdateAssignment(ctx context.Context, inboxID, conversationID, assigneeID, assignedAt, updatedAt string) error {
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

func isIndexNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}
