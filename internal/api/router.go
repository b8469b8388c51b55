package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
	"bomberman-arena/internal/room"
)

// Manager is the slice of *room.Manager the transport uses.
// Tests substitute a fake.
type Manager interface {
	JoinLobby(playerID, nickname string, mapID int, conn room.Connection) (*room.LobbyInfo, error)
	HandleInput(playerID string, intent protocol.Intent) (bool, error)
	HandleDisconnect(playerID string) error
	Chat(playerID, text string) error

	Lobbies() []room.LobbyInfo
	Rooms() []room.Summary
	Room(roomID string) (*room.Room, bool)
	Stats() room.Stats
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
//	cfg := api.RouterConfig{
//	    Manager: manager,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Manager owns lobbies and rooms (required)
	Manager Manager

	// Hub serves /ws. If nil the route is not mounted.
	Hub *WebSocketHub

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// Origins drives CORS. If nil, DefaultOrigins.
	Origins *OriginChecker

	// DisableLogging disables the request logger middleware
	DisableLogging bool
}

type routerHandlers struct {
	manager Manager
	started time.Time
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It starts no goroutines besides the rate limiter's cleanup loop and opens no
// listeners, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}

	origins := cfg.Origins
	if origins == nil {
		origins = NewOriginChecker(nil)
	}

	h := &routerHandlers{manager: cfg.Manager, started: time.Now()}

	r.Get("/health", h.handleHealth)

	// Rate limiting before CORS to reject early
	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins.Origins(),
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(recordRequests)

		r.Route("/api", func(r chi.Router) {
			r.Get("/stats", h.handleGetStats)
			r.Get("/maps", h.handleGetMaps)
			r.Get("/lobbies", h.handleGetLobbies)
			r.Get("/rooms", h.handleGetRooms)
			r.Get("/rooms/{roomID}", h.handleGetRoom)
			r.Get("/rooms/{roomID}/state", h.handleGetRoomState)
		})
	})

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	return r
}

// recordRequests feeds the HTTP histograms, labelled by route pattern
func recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
