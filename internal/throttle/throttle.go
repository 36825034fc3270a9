package throttle

import (
	"context"
	"fmt"
	"time"

	"livechat-backend/internal/kv"
)

// Limit is a fixed-window budget for one composite key family.
type Limit struct {
	Max    int
	Window time.Duration
}

// Budgets for the public widget surface. Keys combine the caller's IP,
// widget token or session so one abusive visitor cannot exhaust the inbox.
var (
	BootstrapLimit = Limit{Max: 10, Window: time.Minute}
	SendLimit      = Limit{Max: 30, Window: time.Minute}
	PollLimit      = Limit{Max: 120, Window: time.Minute}
	TypingLimit    = Limit{Max: 30, Window: time.Minute}
	RatingLimit    = Limit{Max: 5, Window: time.Minute}

	// PollInterval is the minimum gap between two polls from one session,
	// enforced as a 1-count window.
	PollInterval = Limit{Max: 1, Window: 500 * time.Millisecond}
)

// Guard counts requests per key in fixed windows. Counting is best-effort:
// the INCR and the Expire are two round trips, which is acceptable for
// abuse mitigation but not for billing.
type Guard struct {
	kv kv.Store
}

func NewGuard(store kv.Store) *Guard {
	return &Guard{kv: store}
}

// Allow records one hit against key and reports whether it stays within
// the limit.
func (g *Guard) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	full := "throttle:" + key

	count, err := g.kv.Incr(ctx, full)
	if err != nil {
		return false, fmt.Errorf("throttle: incr %s: %w", key, err)
	}
	if count == 1 {
		if err := g.kv.Expire(ctx, full, limit.Window); err != nil {
			return false, fmt.Errorf("throttle: expire %s: %w", key, err)
		}
	}
	return count <= int64(limit.Max), nil
}

func BootstrapKey(ip, widgetToken string) string {
	return fmt.Sprintf("bootstrap:%s:%s", ip, widgetToken)
}

func SendKey(ip, sessionToken string) string {
	return fmt.Sprintf("send:%s:%s", ip, sessionToken)
}

func PollKey(sessionToken string) string {
	return "poll:" + sessionToken
}

func PollIntervalKey(sessionToken string) string {
	return "pollgap:" + sessionToken
}

func TypingKey(sessionToken string) string {
	return "typing:" + sessionToken
}

func RatingKey(sessionToken string) string {
	return "rate:" + sessionToken
}
