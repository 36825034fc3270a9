package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

// AllowedOrigins is extended by the entrypoints with the deployed widget
// and console origins.
var AllowedOrigins = []string{"http://localhost:3000"}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func corsConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowedOrigins:   AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization"},
		AllowCredentials: true,
	}
}

func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				err := f(w, r)
				return err
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		err := <-errc
		if err != nil {
			writeHandlerError(w, err)
		}
	}

	return s.wrap(baseHandler, authMiddleware)
}

// MakeStreamingHandleFunc runs the handler inline instead of on the
// worker pool: an event-stream response holds its connection open for
// tens of seconds and would starve the queue.
func (s *APIServer) MakeStreamingHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeHandlerError(w, err)
		}
	}

	return s.wrap(baseHandler, authMiddleware)
}

func (s *APIServer) wrap(baseHandler http.HandlerFunc, authMiddleware []middleware.Middleware) http.HandlerFunc {
	middlewares := []middleware.Middleware{
		middleware.CORS(corsConfig()),
		middleware.Logging(),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if len(authMiddleware) > 0 {
			authHandler := baseHandler
			for _, m := range authMiddleware {
				authHandler = m(authHandler)
			}
			authHandler(w, r)
		} else {
			baseHandler(w, r)
		}
	}

	return middleware.Chain(finalHandler, middlewares...)
}

func writeHandlerError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		fmt.Println(httpErr.ErrorLog)
		WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
	} else {
		WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
	}
}
