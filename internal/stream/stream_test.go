package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeSource) push(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeSource) Events(ctx context.Context, cursor int64) ([]Event, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cursor >= int64(len(f.events)) {
		return nil, cursor, nil
	}
	out := append([]Event(nil), f.events[cursor:]...)
	return out, int64(len(f.events)), nil
}

func TestServeEmitsReadyAndEnd(t *testing.T) {
	s := NewWithConfig(50*time.Millisecond, 10*time.Millisecond, time.Second)
	rec := httptest.NewRecorder()

	if err := s.Serve(context.Background(), rec, &fakeSource{}, 7); err != nil {
		t.Fatalf("serve failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: ready") {
		t.Fatalf("missing ready event in %q", body)
	}
	if !strings.Contains(body, `{"cursor":7}`) {
		t.Fatalf("ready must echo the cursor, got %q", body)
	}
	if !strings.Contains(body, "event: end") {
		t.Fatalf("missing end event in %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestServeDeliversSourceEvents(t *testing.T) {
	s := NewWithConfig(80*time.Millisecond, 5*time.Millisecond, time.Second)
	rec := httptest.NewRecorder()
	src := &fakeSource{}
	src.push(Event{Name: "message.created", Data: map[string]string{"body": "hi"}})

	if err := s.Serve(context.Background(), rec, src, 0); err != nil {
		t.Fatalf("serve failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: message.created") {
		t.Fatalf("missing source event in %q", body)
	}
	if !strings.Contains(body, `"body":"hi"`) {
		t.Fatalf("missing event payload in %q", body)
	}
	// The end event resumes after the consumed source event.
	if !strings.Contains(body, "event: end\ndata: {\"cursor\":1}") {
		t.Fatalf("end cursor not advanced in %q", body)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	s := NewWithConfig(time.Minute, 5*time.Millisecond, time.Second)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := s.Serve(ctx, rec, &fakeSource{}, 0)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestServeEmitsKeepAlive(t *testing.T) {
	s := NewWithConfig(60*time.Millisecond, 50*time.Millisecond, 15*time.Millisecond)
	rec := httptest.NewRecorder()

	if err := s.Serve(context.Background(), rec, &fakeSource{}, 0); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if !strings.Contains(rec.Body.String(), ": keep-alive") {
		t.Fatalf("missing keep-alive comment in %q", rec.Body.String())
	}
}
