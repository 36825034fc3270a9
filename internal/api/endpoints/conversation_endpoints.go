package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"livechat-backend/internal/dto"
	internaljwt "livechat-backend/internal/jwt"
	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
)

type ConversationEndpoints interface {
	Conversations(http.ResponseWriter, *http.Request) error
	ConversationActions(http.ResponseWriter, *http.Request) error
	ConversationStream(http.ResponseWriter, *http.Request) error
	Presence(http.ResponseWriter, *http.Request) error
}

type ConversationPaths struct {
	ConversationsPath  string
	ConversationPrefix string
	StreamPrefix       string
}

type conversationEndpoints struct {
	service  *conversationservice.Service
	tokens   *internaljwt.Manager
	streamer *stream.Streamer
	paths    ConversationPaths
}

func NewConversationEndpoints(service *conversationservice.Service, tokens *internaljwt.Manager, streamer *stream.Streamer, prefix string) ConversationEndpoints {
	base := strings.TrimRight(prefix, "/")
	return &conversationEndpoints{
		service:  service,
		tokens:   tokens,
		streamer: streamer,
		paths: ConversationPaths{
			ConversationsPath:  base + "/conversations",
			ConversationPrefix: base + "/conversations/",
			StreamPrefix:       base + "/stream/conversations/",
		},
	}
}

func (h *conversationEndpoints) Conversations(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListConversations,
	})
}

func (h *conversationEndpoints) ConversationActions(w http.ResponseWriter, r *http.Request) error {
	_, action, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	switch action {
	case "messages":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:  h.handlePollConversation,
			http.MethodPost: h.handlePostMessage,
		})
	case "open":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleOpen,
		})
	case "status":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost:  h.handleSetStatus,
			http.MethodPatch: h.handleSetStatus,
		})
	case "assign":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleAssign,
		})
	case "typing":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.handleTyping,
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown conversation action: %s", action),
		}
	}
}

func (h *conversationEndpoints) ConversationStream(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleStream,
	})
}

func (h *conversationEndpoints) Presence(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSetPresence,
	})
}

func (h *conversationEndpoints) handleListConversations(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	status := r.URL.Query().Get("status")
	limit := parseIntQuery(r, "limit")

	conversations, svcErr := h.service.ListConversations(r.Context(), identity, status, limit)
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusOK, dto.ConversationListResponse{
		Conversations: toConversationResponses(conversations),
	})
}

func (h *conversationEndpoints) handlePollConversation(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	after := parseInt64Query(r, "after")
	result, svcErr := h.service.PollAgent(r.Context(), identity, conversationservice.AgentPollParams{
		ConversationID: convID,
		After:          after,
		Limit:          parseIntQuery(r, "limit"),
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusOK, dto.AgentPollResponse{
		Conversation:  toConversationResponse(result.Conversation),
		Messages:      toMessageResponses(result.Messages),
		Cursor:        lastSeq(result.Messages, after),
		ContactTyping: result.ContactTyping,
	})
}

func (h *conversationEndpoints) handlePostMessage(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.AgentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode agent message request: %w", err),
		}
	}

	msg, svcErr := h.service.PostAgentMessage(r.Context(), identity, conversationservice.AgentMessageParams{
		ConversationID: convID,
		Body:           req.Body,
		Internal:       req.Internal,
		Attachments:    toAttachmentItems(req.Attachments),
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusCreated, dto.AgentMessageResponse{Message: toMessageResponse(msg)})
}

func (h *conversationEndpoints) handleOpen(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	if svcErr := h.service.OpenConversation(r.Context(), identity, convID); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Conversation opened"})
}

func (h *conversationEndpoints) handleSetStatus(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode status request: %w", err),
		}
	}

	conv, svcErr := h.service.SetStatus(r.Context(), identity, convID, req.Status)
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *conversationEndpoints) handleAssign(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode assign request: %w", err),
		}
	}

	conv, svcErr := h.service.AssignConversation(r.Context(), identity, convID, req.AgentID)
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *conversationEndpoints) handleTyping(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, _, err := h.extractConversationPath(r.URL.Path)
	if err != nil {
		return err
	}

	if svcErr := h.service.MarkAgentTyping(r.Context(), identity, convID); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Typing recorded"})
}

func (h *conversationEndpoints) handleStream(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	convID, err := h.extractStreamPath(r.URL.Path)
	if err != nil {
		return err
	}
	cursor := parseInt64Query(r, "after")

	// Authenticates the agent against the conversation before the stream
	// opens.
	if _, svcErr := h.service.PollAgent(r.Context(), identity, conversationservice.AgentPollParams{
		ConversationID: convID,
		After:          cursor,
		Limit:          1,
	}); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	src := &agentStreamSource{
		service:        h.service,
		identity:       identity,
		conversationID: convID,
	}
	if serveErr := h.streamer.Serve(r.Context(), w, src, cursor); serveErr != nil {
		if errors.Is(serveErr, stream.ErrStreamingUnsupported) {
			return &HTTPError{
				StatusCode: http.StatusNotImplemented,
				Message:    "Streaming unsupported",
				ErrorLog:   serveErr,
			}
		}
		return nil
	}
	return nil
}

func (h *conversationEndpoints) handleSetPresence(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.agentIdentity(r)
	if err != nil {
		return err
	}

	var req dto.SetPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode presence request: %w", err),
		}
	}

	if svcErr := h.service.SetPresence(r.Context(), identity, req.Presence); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Presence updated"})
}

func (h *conversationEndpoints) agentIdentity(r *http.Request) (conversationservice.AgentIdentity, error) {
	token := ExtractTokenFromHeaders(r)
	if token == "" {
		return conversationservice.AgentIdentity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("missing bearer token"),
		}
	}

	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return conversationservice.AgentIdentity{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("parse access token: %w", err),
		}
	}

	return conversationservice.AgentIdentity{
		AgentID:  claims.AgentID,
		BranchID: claims.BranchID,
	}, nil
}

func (h *conversationEndpoints) extractConversationPath(path string) (string, string, error) {
	prefix := h.paths.ConversationPrefix
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("conversation path mismatch: %s", path),
		}
	}

	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("invalid conversation path: %s", path),
		}
	}
	return parts[0], parts[1], nil
}

func (h *conversationEndpoints) extractStreamPath(path string) (string, error) {
	prefix := h.paths.StreamPrefix
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("stream path mismatch: %s", path),
		}
	}

	convID := strings.Trim(trimmed, "/")
	if convID == "" || strings.Contains(convID, "/") {
		return "", &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Conversation not found",
			ErrorLog:   fmt.Errorf("invalid stream path: %s", path),
		}
	}
	return convID, nil
}
