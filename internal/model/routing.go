package model

type RoutingRuleItem struct {
	RuleID   string   `dynamodbav:"ruleId"`
	InboxID  string   `dynamodbav:"inboxId"`
	BranchID string   `dynamodbav:"branchId"`
	Regions  []string `dynamodbav:"regions,omitempty"`
	Priority int      `dynamodbav:"priority"`
	Fallback bool     `dynamodbav:"fallback"`
	Active   bool     `dynamodbav:"active"`
}

// Matches reports whether the rule's region set contains region.
// A fallback rule never matches by region; it is picked only when no
// regular rule matched.
func (r RoutingRuleItem) Matches(region string) bool {
	if r.Fallback || region == "" {
		return false
	}
	for _, candidate := range r.Regions {
		if candidate == region {
			return true
		}
	}
	return false
}
