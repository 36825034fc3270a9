package routing

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
	ListActiveRules(ctx context.Context, inboxID string) ([]model.RoutingRuleItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListActiveRules(ctx context.Context, inboxID string) ([]model.RoutingRuleItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.RoutingRulesTable,
		aws.String("byInbox"),
		"inboxId = :inboxId",
		map[string]types.AttributeValue{
			":inboxId": &types.AttributeValueMemberS{Value: inboxID},
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
			model.RoutingRulesTable,
			"inboxId = :inboxId",
			map[string]types.AttributeValue{
				":inboxId": &types.AttributeValueMemberS{Value: inboxID},
			},
			nil,
		)
		if err != nil {
			return nil, err
		}
	}

	rules := make([]model.RoutingRuleItem, 0, len(items))
	for _, item := range items {
		var rule model.RoutingRuleItem
		if err := attributevalue.UnmarshalMap(item, &rule); err != nil {
			return nil, err
		}
		if !rule.Active {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func isIndexNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}
