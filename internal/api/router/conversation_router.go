package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/env"
	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
)

// ConversationAgentRoutes is the operator console surface; every route
// requires an agent access token.
func ConversationAgentRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := conversationservice.New(s.Database(), s.Store(), s.Queue(), nil, env.Get(env.DefaultBranchID))
		convEndpoints := endpoints.NewConversationEndpoints(service, s.Tokens(), stream.New(), prefix)

		validate := middleware.ValidateAgentJWT(s.Tokens())

		mux.HandleFunc(prefix+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.Conversations, validate))
		mux.HandleFunc(prefix+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.ConversationActions, validate))
		mux.HandleFunc(prefix+"/stream/conversations/", s.MakeStreamingHandleFunc(convEndpoints.ConversationStream, validate))
		mux.HandleFunc(prefix+"/presence", s.MakeHTTPHandleFunc(convEndpoints.Presence, validate))
	}
}
