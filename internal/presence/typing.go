package presence

import (
	"context"
	"time"

	"livechat-backend/internal/kv"
)

// DefaultTypingTTL is how long a typing flag stays visible after the last
// activity signal. There is no explicit clear; expiry is the only way a
// flag turns off.
const DefaultTypingTTL = 8 * time.Second

// Typing tracks two independent short-TTL flags per conversation, one for
// the operator side and one for the visitor side.
type Typing struct {
	kv  kv.Store
	ttl time.Duration
}

func NewTyping(store kv.Store, ttl time.Duration) *Typing {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Typing{kv: store, ttl: ttl}
}

func agentKey(conversationID string) string {
	return "typing:agent:" + conversationID
}

func contactKey(conversationID string) string {
	return "typing:contact:" + conversationID
}

func (t *Typing) MarkAgent(ctx context.Context, conversationID string) error {
	return t.kv.Set(ctx, agentKey(conversationID), "1", t.ttl)
}

func (t *Typing) MarkContact(ctx context.Context, conversationID string) error {
	return t.kv.Set(ctx, contactKey(conversationID), "1", t.ttl)
}

func (t *Typing) AgentTyping(ctx context.Context, conversationID string) (bool, error) {
	return t.kv.Exists(ctx, agentKey(conversationID))
}

func (t *Typing) ContactTyping(ctx context.Context, conversationID string) (bool, error) {
	return t.kv.Exists(ctx, contactKey(conversationID))
}
