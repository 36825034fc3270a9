package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livechat-backend/internal/kv"
	"livechat-backend/utils"
)

const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound covers unknown and expired tokens alike; the widget is
	// told the session is invalid or expired either way.
	ErrNotFound = errors.New("session: not found or expired")
	// ErrInboxMismatch is returned when the presented widget token belongs
	// to a different inbox than the one the session was bound to. Kept
	// separate from ErrNotFound so callers can answer 403 instead of 404.
	ErrInboxMismatch = errors.New("session: inbox mismatch")
)

// Binding ties an opaque widget session token to exactly one
// (inbox, conversation, contact) triple.
type Binding struct {
	InboxID        string `json:"inboxId"`
	ConversationID string `json:"conversationId"`
	ContactID      string `json:"contactId"`
}

type Store struct {
	kv  kv.Store
	ttl time.Duration
}

func NewStore(store kv.Store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: store, ttl: ttl}
}

func sessionKey(token string) string {
	return "widget_session:" + token
}

// Issue creates a fresh opaque token bound to the triple. Tokens are never
// reused across conversations; every bootstrap that creates or switches a
// conversation issues a new one.
func (s *Store) Issue(ctx context.Context, binding Binding) (string, error) {
	if binding.InboxID == "" || binding.ConversationID == "" || binding.ContactID == "" {
		return "", fmt.Errorf("session: incomplete binding")
	}

	payload, err := json.Marshal(binding)
	if err != nil {
		return "", fmt.Errorf("session: marshal binding: %w", err)
	}

	token := utils.CreateToken()
	if token == "" {
		return "", fmt.Errorf("session: token generation failed")
	}

	if err := s.kv.Set(ctx, sessionKey(token), string(payload), s.ttl); err != nil {
		return "", fmt.Errorf("session: store binding: %w", err)
	}
	return token, nil
}

// Validate resolves the token and checks it against the inbox the caller
// claims via its public widget token.
func (s *Store) Validate(ctx context.Context, token, claimedInboxID string) (Binding, error) {
	if token == "" {
		return Binding{}, ErrNotFound
	}

	raw, err := s.kv.Get(ctx, sessionKey(token))
	if errors.Is(err, kv.ErrNotFound) {
		return Binding{}, ErrNotFound
	}
	if err != nil {
		return Binding{}, fmt.Errorf("session: lookup: %w", err)
	}

	var binding Binding
	if err := json.Unmarshal([]byte(raw), &binding); err != nil {
		return Binding{}, fmt.Errorf("session: decode binding: %w", err)
	}

	if claimedInboxID != "" && binding.InboxID != claimedInboxID {
		return Binding{}, ErrInboxMismatch
	}
	return binding, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Delete(ctx, sessionKey(token))
}
