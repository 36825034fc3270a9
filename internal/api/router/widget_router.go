package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/env"
	conversationservice "livechat-backend/internal/service/conversation"
	"livechat-backend/internal/stream"
	"livechat-backend/internal/throttle"
)

// WidgetRoutes is the public surface the chat widget talks to. Everything
// here authenticates with session and widget tokens, never with agent JWTs.
func WidgetRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := conversationservice.New(s.Database(), s.Store(), s.Queue(), nil, env.Get(env.DefaultBranchID))
		guard := throttle.NewGuard(s.Store())
		widgetEndpoints := endpoints.NewWidgetEndpoints(service, guard, stream.New())

		mux.HandleFunc(prefix+"/bootstrap", s.MakeHTTPHandleFunc(widgetEndpoints.Bootstrap))
		mux.HandleFunc(prefix+"/messages", s.MakeHTTPHandleFunc(widgetEndpoints.Messages))
		mux.HandleFunc(prefix+"/poll", s.MakeHTTPHandleFunc(widgetEndpoints.Poll))
		mux.HandleFunc(prefix+"/typing", s.MakeHTTPHandleFunc(widgetEndpoints.Typing))
		mux.HandleFunc(prefix+"/rating", s.MakeHTTPHandleFunc(widgetEndpoints.Rating))
		mux.HandleFunc(prefix+"/stream", s.MakeStreamingHandleFunc(widgetEndpoints.Stream))
	}
}
