package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"livechat-backend/internal/dto"
	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
	"livechat-backend/internal/throttle"
	"livechat-backend/utils"
)

type WidgetEndpoints interface {
	Bootstrap(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
	Poll(http.ResponseWriter, *http.Request) error
	Typing(http.ResponseWriter, *http.Request) error
	Rating(http.ResponseWriter, *http.Request) error
	Stream(http.ResponseWriter, *http.Request) error
}

type widgetEndpoints struct {
	service  *conversationservice.Service
	guard    *throttle.Guard
	streamer *stream.Streamer
}

func NewWidgetEndpoints(service *conversationservice.Service, guard *throttle.Guard, streamer *stream.Streamer) WidgetEndpoints {
	return &widgetEndpoints{
		service:  service,
		guard:    guard,
		streamer: streamer,
	}
}

func (h *widgetEndpoints) Bootstrap(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleBootstrap,
	})
}

func (h *widgetEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSendMessage,
	})
}

func (h *widgetEndpoints) Poll(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handlePoll,
	})
}

func (h *widgetEndpoints) Typing(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleTyping,
	})
}

func (h *widgetEndpoints) Rating(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRating,
	})
}

func (h *widgetEndpoints) Stream(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleStream,
	})
}

func (h *widgetEndpoints) handleBootstrap(w http.ResponseWriter, r *http.Request) error {
	widgetToken := r.URL.Query().Get("widgetToken")
	if widgetToken == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Missing widget token",
			ErrorLog:   fmt.Errorf("bootstrap without widgetToken"),
		}
	}

	ip := utils.RealClientIP(r)
	if err := h.throttle(r, throttle.BootstrapKey(ip, widgetToken), throttle.BootstrapLimit); err != nil {
		return err
	}

	// The widget may bootstrap with an empty body.
	var req dto.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode bootstrap request: %w", err),
		}
	}

	result, svcErr := h.service.Bootstrap(r.Context(), conversationservice.BootstrapParams{
		WidgetToken: widgetToken,
		IP:          ip,
		ExternalID:  req.ExternalID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Region:      req.Region,
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusOK, dto.BootstrapResponse{
		SessionToken:   result.SessionToken,
		ConversationID: result.Conversation.ConversationID,
		Status:         string(result.Conversation.Status),
		Reused:         result.Reused,
		Offline:        result.Offline,
		OfflineMessage: result.OfflineMessage,
		SSEEnabled:     result.SSEEnabled,
		Widget: dto.WidgetConfigResponse{
			BubbleText: result.Widget.BubbleText,
			HeaderText: result.Widget.HeaderText,
			ThemeColor: result.Widget.ThemeColor,
		},
		Rating: dto.RatingConfigResponse{
			Enabled:  result.Rating.Enabled,
			Type:     result.Rating.Type,
			MaxScore: result.Rating.MaxScore,
		},
		Messages: toMessageResponses(result.Messages),
	})
}

func (h *widgetEndpoints) handleSendMessage(w http.ResponseWriter, r *http.Request) error {
	sessionToken := ExtractTokenFromHeaders(r)
	widgetToken := r.URL.Query().Get("widgetToken")

	ip := utils.RealClientIP(r)
	if err := h.throttle(r, throttle.SendKey(ip, sessionToken), throttle.SendLimit); err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode widget message request: %w", err),
		}
	}

	msg, svcErr := h.service.SendVisitorMessage(r.Context(), conversationservice.SendParams{
		SessionToken: sessionToken,
		WidgetToken:  widgetToken,
		Body:         req.Body,
		Attachments:  toAttachmentItems(req.Attachments),
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusCreated, dto.SendMessageResponse{Message: toMessageResponse(msg)})
}

func (h *widgetEndpoints) handlePoll(w http.ResponseWriter, r *http.Request) error {
	sessionToken := ExtractTokenFromHeaders(r)
	widgetToken := r.URL.Query().Get("widgetToken")

	if err := h.throttle(r, throttle.PollKey(sessionToken), throttle.PollLimit); err != nil {
		return err
	}
	if err := h.throttle(r, throttle.PollIntervalKey(sessionToken), throttle.PollInterval); err != nil {
		return err
	}

	after := parseInt64Query(r, "after")
	limit := parseIntQuery(r, "limit")

	result, svcErr := h.service.PollVisitor(r.Context(), conversationservice.PollParams{
		SessionToken: sessionToken,
		WidgetToken:  widgetToken,
		After:        after,
		Limit:        limit,
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}

	return WriteJSON(w, http.StatusOK, dto.WidgetPollResponse{
		Messages:        toMessageResponses(result.Messages),
		Cursor:          lastSeq(result.Messages, after),
		Status:          string(result.Status),
		Assigned:        result.Assigned,
		AgentTyping:     result.AgentTyping,
		RatingRequested: result.RatingRequested,
		RatingMaxScore:  result.RatingMaxScore,
	})
}

func (h *widgetEndpoints) handleTyping(w http.ResponseWriter, r *http.Request) error {
	sessionToken := ExtractTokenFromHeaders(r)
	widgetToken := r.URL.Query().Get("widgetToken")

	if err := h.throttle(r, throttle.TypingKey(sessionToken), throttle.TypingLimit); err != nil {
		return err
	}

	if svcErr := h.service.MarkVisitorTyping(r.Context(), sessionToken, widgetToken); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Typing recorded"})
}

func (h *widgetEndpoints) handleRating(w http.ResponseWriter, r *http.Request) error {
	sessionToken := ExtractTokenFromHeaders(r)
	widgetToken := r.URL.Query().Get("widgetToken")

	if err := h.throttle(r, throttle.RatingKey(sessionToken), throttle.RatingLimit); err != nil {
		return err
	}

	var req dto.RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode rating request: %w", err),
		}
	}

	if svcErr := h.service.SubmitRating(r.Context(), conversationservice.RatingParams{
		SessionToken: sessionToken,
		WidgetToken:  widgetToken,
		Score:        req.Score,
		Comment:      req.Comment,
	}); svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Rating recorded"})
}

func (h *widgetEndpoints) handleStream(w http.ResponseWriter, r *http.Request) error {
	sessionToken := ExtractTokenFromHeaders(r)
	widgetToken := r.URL.Query().Get("widgetToken")
	cursor := parseInt64Query(r, "after")

	// The opening poll both authenticates the session and checks that the
	// inbox has streaming enabled.
	probe, svcErr := h.service.PollVisitor(r.Context(), conversationservice.PollParams{
		SessionToken: sessionToken,
		WidgetToken:  widgetToken,
		After:        cursor,
		Limit:        1,
	})
	if svcErr != nil {
		return mapConversationServiceError(svcErr)
	}
	if !probe.SSEEnabled {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Streaming is not enabled",
			ErrorLog:   fmt.Errorf("stream requested on non-sse inbox"),
		}
	}

	src := &visitorStreamSource{
		service:      h.service,
		sessionToken: sessionToken,
		widgetToken:  widgetToken,
	}
	if err := h.streamer.Serve(r.Context(), w, src, cursor); err != nil {
		if errors.Is(err, stream.ErrStreamingUnsupported) {
			return &HTTPError{
				StatusCode: http.StatusNotImplemented,
				Message:    "Streaming unsupported",
				ErrorLog:   err,
			}
		}
		// The connection is gone; nothing sensible left to write.
		return nil
	}
	return nil
}

func (h *widgetEndpoints) throttle(r *http.Request, key string, limit throttle.Limit) error {
	if h.guard == nil {
		return nil
	}

	allowed, err := h.guard.Allow(r.Context(), key, limit)
	if err != nil {
		// Counting failures must not take the widget down.
		return nil
	}
	if !allowed {
		return &HTTPError{
			StatusCode: http.StatusTooManyRequests,
			Message:    "Too many requests",
			ErrorLog:   fmt.Errorf("throttled: %s", key),
		}
	}
	return nil
}

func parseInt64Query(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseIntQuery(r *http.Request, name string) int {
	return int(parseInt64Query(r, name))
}

func mapConversationServiceError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *conversationservice.Error
	if !errors.As(err, &svcErr) {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	logErr := svcErr.Err
	if logErr == nil {
		logErr = fmt.Errorf("%s", svcErr.Message)
	}

	switch svcErr.Code {
	case conversationservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeRateLimited:
		return &HTTPError{StatusCode: http.StatusTooManyRequests, Message: svcErr.Message, ErrorLog: logErr}
	case conversationservice.ErrorCodeUnavailable:
		return &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
