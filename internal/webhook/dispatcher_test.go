package webhook

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	inboxcfg "livechat-backend/internal/service/inbox"
)

func testConversation() model.ConversationItem {
	return model.ConversationItem{
		ConversationID: "conv-1",
		InboxID:        "inbox-1",
		BranchID:       "branch-1",
		ContactID:      "contact-1",
		Status:         model.ConversationStatusOpen,
		CreatedAt:      "2025-06-01T12:00:00Z",
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestDispatchDeliversSignedPayload(t *testing.T) {
	received := make(chan struct{}, 1)
	var gotBody []byte
	var gotSignature string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get(SignatureHeader)
		received <- struct{}{}
	}))
	defer server.Close()

	q := queue.NewRequestQueueManager(4, 1)
	defer q.Shutdown()
	dispatcher := NewDispatcher(q)

	conv := testConversation()
	msg := model.MessageItem{
		MessageID: "msg-1",
		Direction: model.MessageDirectionIn,
		Body:      "hello",
		CreatedAt: conv.CreatedAt,
	}

	dispatcher.Dispatch(inboxcfg.WebhookSettings{
		Enabled: true,
		URL:     server.URL,
		Secret:  "s3cret",
	}, EventMessageCreated, conv, &msg)

	waitFor(t, received)

	var payload eventPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Event != EventMessageCreated {
		t.Fatalf("unexpected event %s", payload.Event)
	}
	if payload.Conversation.ConversationID != "conv-1" {
		t.Fatalf("unexpected conversation %s", payload.Conversation.ConversationID)
	}
	if payload.Message == nil || payload.Message.Body != "hello" {
		t.Fatalf("unexpected message %+v", payload.Message)
	}
	if !hmac.Equal([]byte(gotSignature), []byte(Sign(gotBody, "s3cret"))) {
		t.Fatal("signature mismatch")
	}
}

func TestDispatchSkipsDisallowedEvent(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	q := queue.NewRequestQueueManager(4, 1)
	dispatcher := NewDispatcher(q)

	dispatcher.Dispatch(inboxcfg.WebhookSettings{
		Enabled: true,
		URL:     server.URL,
		Events:  []string{EventConversationClosed},
	}, EventMessageCreated, testConversation(), nil)

	q.Shutdown()
	if hits != 0 {
		t.Fatalf("expected no delivery, got %d", hits)
	}
}

func TestDispatchSkipsInternalNotes(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	q := queue.NewRequestQueueManager(4, 1)
	dispatcher := NewDispatcher(q)

	note := model.MessageItem{MessageID: "msg-1", Direction: model.MessageDirectionInternal}
	dispatcher.Dispatch(inboxcfg.WebhookSettings{
		Enabled: true,
		URL:     server.URL,
	}, EventMessageCreated, testConversation(), &note)

	q.Shutdown()
	if hits != 0 {
		t.Fatalf("expected no delivery for internal note, got %d", hits)
	}
}

func TestDispatchSwallowsEndpointFailure(t *testing.T) {
	received := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		received <- struct{}{}
	}))
	defer server.Close()

	q := queue.NewRequestQueueManager(4, 1)
	defer q.Shutdown()
	dispatcher := NewDispatcher(q)

	dispatcher.Dispatch(inboxcfg.WebhookSettings{
		Enabled: true,
		URL:     server.URL,
	}, EventConversationCreated, testConversation(), nil)

	// The failing delivery must not panic or surface anywhere.
	waitFor(t, received)
}
