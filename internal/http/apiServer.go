package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"parlor/internal/api"
	"parlor/internal/metrics"
)

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(apiHandlers *api.API, limiter *api.Limiter, m *metrics.Metrics, addr string) *APIServer {
	mux := http.NewServeMux()
	limited := func(h http.HandlerFunc) http.HandlerFunc { return api.RateLimit(limiter, h) }

	mux.HandleFunc("GET /api/messages", apiHandlers.ListMessagesHandler)
	mux.HandleFunc("POST /api/messages", limited(apiHandlers.SendMessageHandler))
	mux.HandleFunc("PUT /api/messages", limited(apiHandlers.ReactionHandler))

	mux.HandleFunc("GET /api/rooms", apiHandlers.ListRoomsHandler)
	mux.HandleFunc("POST /api/rooms", limited(apiHandlers.CreateRoomHandler))
	mux.HandleFunc("PUT /api/rooms", limited(apiHandlers.UpdateRoomHandler))
	mux.HandleFunc("DELETE /api/rooms", limited(apiHandlers.DeleteRoomHandler))
	mux.HandleFunc("POST /api/rooms/{id}/open", limited(apiHandlers.OpenRoomHandler))
	mux.HandleFunc("GET /api/rooms/{id}/timeline", apiHandlers.TimelineHandler)

	mux.HandleFunc("GET /api/users", apiHandlers.ListUsersHandler)
	mux.HandleFunc("GET /api/users/{id}", apiHandlers.GetUserHandler)
	mux.HandleFunc("POST /api/users", limited(apiHandlers.CreateUserHandler))
	mux.HandleFunc("PUT /api/users", limited(apiHandlers.UpdateUserHandler))
	mux.HandleFunc("DELETE /api/users", limited(apiHandlers.DeleteUserHandler))

	mux.HandleFunc("GET /api/typing", apiHandlers.TypingUsersHandler)
	mux.HandleFunc("POST /api/typing", limited(apiHandlers.StartTypingHandler))
	mux.HandleFunc("DELETE /api/typing", limited(apiHandlers.StopTypingHandler))

	mux.HandleFunc("GET /healthz", healthHandler)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           withRequestLog(m, mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *APIServer) Start() error {
	slog.Info("API server started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
