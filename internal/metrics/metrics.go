// Package metrics holds the process-wide Prometheus collectors.
// Labels are bounded enums only; no per-player or per-room labels.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lobby / room lifecycle
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_rooms_active",
		Help: "Rooms currently registered with the manager",
	})

	lobbiesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_lobbies_active",
		Help: "Lobbies currently waiting or counting down",
	})

	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_games_finished_total",
		Help: "Finished games by end reason",
	}, []string{"reason"}) // Bounded: "last_player_standing", "draw", "not_enough_players", "server_shutdown", ...

	// Simulation
	intentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_intents_rejected_total",
		Help: "Move and bomb intents rejected by the authoritative state",
	}, []string{"reason"})

	bombsExploded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_bombs_exploded_total",
		Help: "Bomb explosions processed",
	})

	// Transport
	inboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_inbound_messages_total",
		Help: "Decoded client messages by type",
	}, []string{"type"})

	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_send_failures_total",
		Help: "Outbound messages dropped because the connection was closed or full",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// SetRooms updates the room gauge
func SetRooms(n int) { roomsActive.Set(float64(n)) }

// SetLobbies updates the lobby gauge
func SetLobbies(n int) { lobbiesActive.Set(float64(n)) }

// GameFinished counts one finished game
func GameFinished(reason string) { gamesFinished.WithLabelValues(reason).Inc() }

// IntentRejected counts a rejected intent. reason is a game.Rejection value.
func IntentRejected(reason string) { intentsRejected.WithLabelValues(reason).Inc() }

// BombExploded counts one processed explosion
func BombExploded() { bombsExploded.Inc() }

// InboundMessage counts a decoded client message. typ is a protocol type constant.
func InboundMessage(typ string) { inboundMessages.WithLabelValues(typ).Inc() }

// SendFailed counts one dropped outbound message
func SendFailed() { sendFailures.Inc() }

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) { wsConnectionsActive.Set(float64(count)) }

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() { wsMessagesTotal.Inc() }

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) { connectionRejected.WithLabelValues(reason).Inc() }

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
