package auth

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"
)

var ErrNotFound = errors.New("auth repository: not found")

type Repository interface {
	FindAgentByEmail(ctx context.Context, email string) (model.AgentItem, error)
	GetAgent(ctx context.Context, branchID, agentID string) (model.AgentItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) FindAgentByEmail(ctx context.Context, email string) (model.AgentItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.AgentsTable,
		aws.String("byEmail"),
		"email = :email",
		map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.AgentItem{}, err
	}
	if len(items) == 0 {
		return model.AgentItem{}, ErrNotFound
	}

	var agent model.AgentItem
	if err := attributevalue.UnmarshalMap(items[0], &agent); err != nil {
		return model.AgentItem{}, err
	}
	return agent, nil
}

func (r *DynamoRepository) GetAgent(ctx context.Context, branchID, agentID string) (model.AgentItem, error) {
	var agent model.AgentItem
	err := r.db.Client.GetItem(ctx, model.AgentsTable, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: model.AgentPK(branchID, agentID)},
	}, &agent)
	if err != nil {
		return model.AgentItem{}, ErrNotFound
	}
	return agent, nil
}
