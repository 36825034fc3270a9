package presence

import (
	"context"
	"testing"
	"time"

	"livechat-backend/internal/kv"
)

func TestTypingFlagTTLBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	typing := NewTyping(kv.NewMemory(func() time.Time { return now }), 8*time.Second)

	if err := typing.MarkContact(context.Background(), "conv-1"); err != nil {
		t.Fatalf("MarkContact error: %v", err)
	}

	now = now.Add(7 * time.Second)
	present, err := typing.ContactTyping(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ContactTyping error: %v", err)
	}
	if !present {
		t.Fatal("expected flag present at T+7s")
	}

	now = now.Add(2 * time.Second)
	present, err = typing.ContactTyping(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ContactTyping error: %v", err)
	}
	if present {
		t.Fatal("expected flag absent at T+9s")
	}
}

func TestTypingFlagsAreIndependent(t *testing.T) {
	typing := NewTyping(kv.NewMemory(nil), 8*time.Second)

	if err := typing.MarkAgent(context.Background(), "conv-1"); err != nil {
		t.Fatalf("MarkAgent error: %v", err)
	}

	agent, err := typing.AgentTyping(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("AgentTyping error: %v", err)
	}
	if !agent {
		t.Fatal("expected agent flag present")
	}

	contact, err := typing.ContactTyping(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ContactTyping error: %v", err)
	}
	if contact {
		t.Fatal("expected contact flag absent")
	}
}

func TestMarkRefreshesTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	typing := NewTyping(kv.NewMemory(func() time.Time { return now }), 8*time.Second)

	if err := typing.MarkAgent(context.Background(), "conv-1"); err != nil {
		t.Fatalf("MarkAgent error: %v", err)
	}
	now = now.Add(6 * time.Second)
	if err := typing.MarkAgent(context.Background(), "conv-1"); err != nil {
		t.Fatalf("MarkAgent error: %v", err)
	}
	now = now.Add(6 * time.Second)

	present, err := typing.AgentTyping(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("AgentTyping error: %v", err)
	}
	if !present {
		t.Fatal("expected flag refreshed by second signal")
	}
}
