package throttle

import (
	"context"
	"testing"
	"time"

	"livechat-backend/internal/kv"
)

func TestAllowWithinLimit(t *testing.T) {
	guard := NewGuard(kv.NewMemory(nil))
	limit := Limit{Max: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		ok, err := guard.Allow(context.Background(), "k", limit)
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d unexpectedly throttled", i+1)
		}
	}

	ok, err := guard.Allow(context.Background(), "k", limit)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if ok {
		t.Fatal("expected fourth request to be throttled")
	}
}

func TestWindowResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guard := NewGuard(kv.NewMemory(func() time.Time { return now }))
	limit := Limit{Max: 1, Window: time.Minute}

	if ok, _ := guard.Allow(context.Background(), "k", limit); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := guard.Allow(context.Background(), "k", limit); ok {
		t.Fatal("second request in window should be throttled")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := guard.Allow(context.Background(), "k", limit); !ok {
		t.Fatal("request after window expiry should pass")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	guard := NewGuard(kv.NewMemory(nil))
	limit := Limit{Max: 1, Window: time.Minute}

	if ok, _ := guard.Allow(context.Background(), SendKey("1.2.3.4", "sess-a"), limit); !ok {
		t.Fatal("first key should pass")
	}
	if ok, _ := guard.Allow(context.Background(), SendKey("1.2.3.4", "sess-b"), limit); !ok {
		t.Fatal("second key should pass independently")
	}
}
