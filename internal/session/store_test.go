package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"livechat-backend/internal/kv"
)

func TestIssueAndValidate(t *testing.T) {
	store := NewStore(kv.NewMemory(nil), 0)

	binding := Binding{InboxID: "inbox-1", ConversationID: "conv-1", ContactID: "contact-1"}
	token, err := store.Issue(context.Background(), binding)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := store.Validate(context.Background(), token, "inbox-1")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if got != binding {
		t.Fatalf("unexpected binding %+v", got)
	}
}

func TestValidateRejectsInboxMismatch(t *testing.T) {
	store := NewStore(kv.NewMemory(nil), 0)

	token, err := store.Issue(context.Background(), Binding{
		InboxID: "inbox-1", ConversationID: "conv-1", ContactID: "contact-1",
	})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = store.Validate(context.Background(), token, "inbox-2")
	if !errors.Is(err, ErrInboxMismatch) {
		t.Fatalf("expected ErrInboxMismatch, got %v", err)
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	store := NewStore(kv.NewMemory(nil), 0)

	_, err := store.Validate(context.Background(), "no-such-token", "inbox-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mem := kv.NewMemory(func() time.Time { return now })
	store := NewStore(mem, time.Hour)

	token, err := store.Issue(context.Background(), Binding{
		InboxID: "inbox-1", ConversationID: "conv-1", ContactID: "contact-1",
	})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	now = now.Add(61 * time.Minute)
	_, err = store.Validate(context.Background(), token, "inbox-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestDeleteInvalidatesToken(t *testing.T) {
	store := NewStore(kv.NewMemory(nil), 0)

	token, err := store.Issue(context.Background(), Binding{
		InboxID: "inbox-1", ConversationID: "conv-1", ContactID: "contact-1",
	})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if err := store.Delete(context.Background(), token); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Validate(context.Background(), token, "inbox-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
