package routing

import (
	"context"
	"errors"
	"sort"

	"livechat-backend/internal/model"
)

// ErrNoRule means no active rule matched and no fallback exists; the caller
// must fall back to a configured default branch or report the chat as
// temporarily unavailable.
var ErrNoRule = errors.New("routing: no rule matched")

// Target is where a new conversation should land.
type Target struct {
	BranchID string
	InboxID  string
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve picks the branch for a new conversation. Branch-bound inboxes
// answer directly; global inboxes evaluate their active rules against the
// detected region: lowest (priority, ruleId) among matches wins, then the
// single fallback rule, then ErrNoRule.
func (s *Service) Resolve(ctx context.Context, inbox model.InboxItem, region string) (Target, error) {
	if !inbox.Global() {
		return Target{BranchID: inbox.BranchID, InboxID: inbox.InboxID}, nil
	}

	rules, err := s.repo.ListActiveRules(ctx, inbox.InboxID)
	if err != nil {
		return Target{}, err
	}

	matches := make([]model.RoutingRuleItem, 0, len(rules))
	var fallback *model.RoutingRuleItem
	for i, rule := range rules {
		if rule.Fallback {
			// Repository order is not stable; the lowest ruleId wins so a
			// misconfigured pair of fallbacks still routes deterministically.
			if fallback == nil || rule.RuleID < fallback.RuleID {
				fallback = &rules[i]
			}
			continue
		}
		if rule.Matches(region) {
			matches = append(matches, rule)
		}
	}

	if len(matches) > 0 {
		sort.Slice(matches, func(i, j int) bool {
			if matches[i].Priority != matches[j].Priority {
				return matches[i].Priority < matches[j].Priority
			}
			return matches[i].RuleID < matches[j].RuleID
		})
		winner := matches[0]
		return Target{BranchID: winner.BranchID, InboxID: winner.InboxID}, nil
	}

	if fallback != nil {
		return Target{BranchID: fallback.BranchID, InboxID: fallback.InboxID}, nil
	}

	return Target{}, ErrNoRule
}
