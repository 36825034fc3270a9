package endpoints

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/dto"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
)

func (f *widgetFixture) addAgent(branchID, agentID string, presenceState model.AgentPresence) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.agents[model.AgentPK(branchID, agentID)] = model.AgentItem{
		PK:       model.AgentPK(branchID, agentID),
		BranchID: branchID,
		AgentID:  agentID,
		Name:     "Anna",
		Email:    "anna@example.com",
		Role:     model.AgentRoleOperator,
		Active:   true,
		Presence: presenceState,
	}
}

func (f *widgetFixture) startConversation(t *testing.T) conversationservice.BootstrapResult {
	t.Helper()

	res, err := f.svc.Bootstrap(context.Background(), conversationservice.BootstrapParams{
		WidgetToken: "wgt_inbox1",
		ExternalID:  "visitor-1",
	})
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	return res
}

func setupAgentHandler(t *testing.T, f *widgetFixture, streamer *stream.Streamer) (http.Handler, *internaljwt.Manager) {
	t.Helper()

	tokens := internaljwt.NewManager("test-secret", f.store)
	if streamer == nil {
		streamer = stream.New()
	}
	conversationEndpoints := NewConversationEndpoints(f.svc, tokens, streamer, "/api/agent/v1")

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServer(":0", queueManager, nil, f.store, tokens)
	t.Cleanup(queueManager.Shutdown)

	validate := middleware.ValidateAgentJWT(tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/agent/v1/conversations", server.MakeHTTPHandleFunc(conversationEndpoints.Conversations, validate))
	mux.HandleFunc("/api/agent/v1/conversations/", server.MakeHTTPHandleFunc(conversationEndpoints.ConversationActions, validate))
	mux.HandleFunc("/api/agent/v1/stream/conversations/", server.MakeStreamingHandleFunc(conversationEndpoints.ConversationStream, validate))
	mux.HandleFunc("/api/agent/v1/presence", server.MakeHTTPHandleFunc(conversationEndpoints.Presence, validate))
	return mux, tokens
}

func agentToken(t *testing.T, tokens *internaljwt.Manager, branchID, agentID string) string {
	t.Helper()

	token, err := tokens.CreateToken(internaljwt.Claims{
		AgentID:  agentID,
		BranchID: branchID,
		Email:    "anna@example.com",
	}, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

func TestAgentConversationsRequireToken(t *testing.T) {
	f := newWidgetFixture()
	handler, _ := setupAgentHandler(t, f, nil)

	res := doJSON(t, handler, http.MethodGet, "/api/agent/v1/conversations", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAgentListConversations(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodGet, "/api/agent/v1/conversations", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp dto.ConversationListResponse
	decodeJSON(t, res, &resp)
	if len(resp.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(resp.Conversations))
	}
	if resp.Conversations[0].Status != string(model.ConversationStatusOpen) {
		t.Fatalf("status = %s, want open", resp.Conversations[0].Status)
	}
}

func TestAgentPostMessageAndPoll(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	sent := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/messages", token, dto.AgentMessageRequest{Body: "how can I help?"})
	if sent.Code != http.StatusCreated {
		t.Fatalf("post: expected 201, got %d: %s", sent.Code, sent.Body.String())
	}
	var sendResp dto.AgentMessageResponse
	decodeJSON(t, sent, &sendResp)
	if sendResp.Message.Direction != string(model.MessageDirectionOut) {
		t.Fatalf("direction = %s, want out", sendResp.Message.Direction)
	}
	if sendResp.Message.Seq != 1 {
		t.Fatalf("seq = %d, want 1", sendResp.Message.Seq)
	}

	polled := doJSON(t, handler, http.MethodGet, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/messages", token, nil)
	if polled.Code != http.StatusOK {
		t.Fatalf("poll: expected 200, got %d: %s", polled.Code, polled.Body.String())
	}
	var pollResp dto.AgentPollResponse
	decodeJSON(t, polled, &pollResp)
	if pollResp.Conversation.ConversationID != boot.Conversation.ConversationID {
		t.Fatalf("conversation = %s, want %s", pollResp.Conversation.ConversationID, boot.Conversation.ConversationID)
	}
	if len(pollResp.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pollResp.Messages))
	}
	if pollResp.Cursor != 1 {
		t.Fatalf("cursor = %d, want 1", pollResp.Cursor)
	}
}

func TestAgentInternalNoteHiddenFromVisitor(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	sent := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/messages", token, dto.AgentMessageRequest{Body: "note to self", Internal: true})
	if sent.Code != http.StatusCreated {
		t.Fatalf("post: expected 201, got %d: %s", sent.Code, sent.Body.String())
	}

	visitor, err := f.svc.PollVisitor(context.Background(), conversationservice.PollParams{
		SessionToken: boot.SessionToken,
		WidgetToken:  "wgt_inbox1",
	})
	if err != nil {
		t.Fatalf("visitor poll failed: %v", err)
	}
	if len(visitor.Messages) != 0 {
		t.Fatalf("internal note leaked to the visitor: %d messages", len(visitor.Messages))
	}
}

func TestAgentPollSeesContactTyping(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	if err := f.svc.MarkVisitorTyping(context.Background(), boot.SessionToken, "wgt_inbox1"); err != nil {
		t.Fatalf("mark typing failed: %v", err)
	}

	polled := doJSON(t, handler, http.MethodGet, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/messages", token, nil)
	if polled.Code != http.StatusOK {
		t.Fatalf("poll: expected 200, got %d", polled.Code)
	}
	var pollResp dto.AgentPollResponse
	decodeJSON(t, polled, &pollResp)
	if !pollResp.ContactTyping {
		t.Fatal("expected the contact typing flag to be set")
	}
}

func TestAgentSetStatus(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/status", token, dto.SetStatusRequest{Status: "resolved"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp dto.ConversationResponse
	decodeJSON(t, res, &resp)
	if resp.Status != string(model.ConversationStatusResolved) {
		t.Fatalf("status = %s, want resolved", resp.Status)
	}

	invalid := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/status", token, dto.SetStatusRequest{Status: "parked"})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", invalid.Code)
	}
}

func TestAgentAssignConversation(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	f.addAgent("branch-1", "agent-2", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/assign", token, dto.AssignRequest{AgentID: "agent-2"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp dto.ConversationResponse
	decodeJSON(t, res, &resp)
	if resp.AssigneeID != "agent-2" {
		t.Fatalf("assignee = %s, want agent-2", resp.AssigneeID)
	}

	unknown := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/assign", token, dto.AssignRequest{AgentID: "agent-9"})
	if unknown.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an agent outside the branch, got %d", unknown.Code)
	}
}

func TestAgentOpenMarksAssigneeOpened(t *testing.T) {
	f := newWidgetFixture()
	// Online agent so the bootstrap auto-assigns the conversation.
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOnline)
	boot := f.startConversation(t)
	if boot.Conversation.AssigneeID != "agent-1" {
		t.Fatalf("assignee = %s, want agent-1", boot.Conversation.AssigneeID)
	}

	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/open", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	conv, err := f.repo.GetConversationByID(context.Background(), boot.Conversation.ConversationID)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.AssigneeOpenedAt == "" {
		t.Fatal("expected the open to be recorded")
	}
}

func TestAgentUnknownAction(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/conversations/"+boot.Conversation.ConversationID+"/archive", token, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAgentConversationNotFound(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodGet, "/api/agent/v1/conversations/conv-missing/messages", token, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAgentSetPresence(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	handler, tokens := setupAgentHandler(t, f, nil)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	res := doJSON(t, handler, http.MethodPost, "/api/agent/v1/presence", token, dto.SetPresenceRequest{Presence: "online"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	agent, err := f.repo.GetAgent(context.Background(), "branch-1", "agent-1")
	if err != nil {
		t.Fatalf("load agent: %v", err)
	}
	if agent.Presence != model.AgentPresenceOnline {
		t.Fatalf("presence = %s, want online", agent.Presence)
	}

	invalid := doJSON(t, handler, http.MethodPost, "/api/agent/v1/presence", token, dto.SetPresenceRequest{Presence: "sleeping"})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown presence, got %d", invalid.Code)
	}
}

func TestAgentStreamDeliversMessages(t *testing.T) {
	f := newWidgetFixture()
	f.addAgent("branch-1", "agent-1", model.AgentPresenceOffline)
	boot := f.startConversation(t)
	streamer := stream.NewWithConfig(300*time.Millisecond, 20*time.Millisecond, time.Hour)
	handler, tokens := setupAgentHandler(t, f, streamer)
	token := agentToken(t, tokens, "branch-1", "agent-1")

	if _, err := f.svc.SendVisitorMessage(context.Background(), conversationservice.SendParams{
		SessionToken: boot.SessionToken,
		WidgetToken:  "wgt_inbox1",
		Body:         "anyone there?",
	}); err != nil {
		t.Fatalf("visitor send failed: %v", err)
	}

	res := doJSON(t, handler, http.MethodGet, "/api/agent/v1/stream/conversations/"+boot.Conversation.ConversationID, token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("stream: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	body := res.Body.String()
	if !strings.Contains(body, "event: message.created") || !strings.Contains(body, "anyone there?") {
		t.Fatalf("expected the visitor message on the stream, got %q", body)
	}
	if !strings.Contains(body, "event: end") {
		t.Fatalf("expected the stream to finish with an end event, got %q", body)
	}
}
