package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bomberman-arena/internal/chat"
	"bomberman-arena/internal/config"
)

// Server is the HTTP API server with WebSocket support
type Server struct {
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	chatLimiter *chat.RateLimiter
	http        *http.Server
}

// NewServer wires the hub, message handler and router around manager.
// Nothing listens until Start.
func NewServer(manager Manager, cfg config.AppConfig) *Server {
	origins := NewOriginChecker(cfg.Server.CORSOrigins)
	chatLimiter := chat.NewRateLimiter(chat.ConfigFromLimits(cfg.Limits))
	handler := NewMessageHandler(manager, chat.NewModerator(chatLimiter))

	s := &Server{
		wsHub:       NewWebSocketHub(handler, cfg.Limits, origins),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		chatLimiter: chatLimiter,
	}
	s.router = NewRouter(RouterConfig{
		Manager:     manager,
		Hub:         s.wsHub,
		RateLimiter: s.rateLimiter,
		Origins:     origins,
	})
	return s
}

// Start listens on addr and blocks until the server stops.
// Returns nil after a graceful Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🔌 WebSocket endpoint: ws://localhost%s/ws", addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown closes sockets, stops background workers and drains the listener
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.CloseAll()
	s.rateLimiter.Stop()
	s.chatLimiter.Close()

	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
