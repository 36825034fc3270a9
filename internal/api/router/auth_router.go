package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
	authsvc "livechat-backend/internal/service/auth"
)

func AuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(authsvc.New(s.Database(), s.Tokens()))

		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(prefix+"/auth/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
		mux.HandleFunc(prefix+"/auth/logout", s.MakeHTTPHandleFunc(authEndpoints.Logout))
		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(authEndpoints.Me, middleware.ValidateAgentJWT(s.Tokens())))
	}
}
