// Package config provides centralized configuration management.
// Every tunable of the arena server lives here; other packages receive
// these structs by value and never read the environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// GAME RULES
// =============================================================================

// GameConfig holds the per-room simulation rules.
type GameConfig struct {
	BlockSize     int           // Pixel size of one grid cell
	BombTimer     time.Duration // Delay between placement and explosion
	PowerUpChance float64       // Probability a destroyed soft block yields a power-up
	StartLives    int
	StartSpeed    int
	StartBombs    int
	StartRange    int
	MaxStat       int // Cap for speed, bomb count and bomb range
	SpawnClear    int // Radius of soft blocks removed around each spawn
}

// DefaultGame returns the default rule set.
func DefaultGame() GameConfig {
	return GameConfig{
		BlockSize:     68,
		BombTimer:     3 * time.Second,
		PowerUpChance: 0.3,
		StartLives:    3,
		StartSpeed:    1,
		StartBombs:    1,
		StartRange:    1,
		MaxStat:       5,
		SpawnClear:    1,
	}
}

// GameFromEnv returns the rule set with environment variable overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if bs := getEnvInt("BLOCK_SIZE", 0); bs > 0 {
		cfg.BlockSize = bs
	}
	if ms := getEnvInt("BOMB_TIMER_MS", 0); ms > 0 {
		cfg.BombTimer = time.Duration(ms) * time.Millisecond
	}
	if c := getEnvFloat("POWERUP_SPAWN_CHANCE", -1); c >= 0 && c <= 1 {
		cfg.PowerUpChance = c
	}
	if l := getEnvInt("START_LIVES", 0); l > 0 {
		cfg.StartLives = l
	}

	return cfg
}

// =============================================================================
// LOBBY CONFIGURATION
// =============================================================================

// LobbyConfig controls how waiting rooms fill and count down.
type LobbyConfig struct {
	MaxPlayers int           // Lobby capacity, countdown starts immediately when reached
	MinPlayers int           // Players needed before the wait timer starts
	WaitTimer  time.Duration // How long a partially filled lobby waits for more players
	Countdown  int           // Countdown length in seconds
}

// DefaultLobby returns the default lobby configuration.
func DefaultLobby() LobbyConfig {
	return LobbyConfig{
		MaxPlayers: 4,
		MinPlayers: 2,
		WaitTimer:  20 * time.Second,
		Countdown:  10,
	}
}

// LobbyFromEnv returns lobby configuration with environment variable overrides.
func LobbyFromEnv() LobbyConfig {
	cfg := DefaultLobby()

	if s := getEnvInt("WAIT_TIMER_S", 0); s > 0 {
		cfg.WaitTimer = time.Duration(s) * time.Second
	}
	if s := getEnvInt("COUNTDOWN_S", 0); s > 0 {
		cfg.Countdown = s
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	DebugAddr   string   // pprof + metrics listener, localhost only
	DebugServer bool     // Whether to start the debug listener at all
	CORSOrigins []string // nil means the router defaults
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        8080,
		DebugAddr:   "127.0.0.1:6060",
		DebugServer: true,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection on the connection layer.
type ResourceLimits struct {
	MaxConnections      int     // Hard cap on concurrent WebSocket connections
	MaxConnectionsPerIP int     // Per-IP WebSocket cap
	MessagesPerSecond   float64 // Inbound messages allowed per connection
	MessageBurst        int
	ChatPerWindow       int           // Chat lines per window per player
	ChatWindow          time.Duration // Chat sliding window
	ChatCooldown        time.Duration // Minimum gap between chat lines
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxConnections:      2000,
		MaxConnectionsPerIP: 8,
		MessagesPerSecond:   60, // a client sending MOVE every frame
		MessageBurst:        120,
		ChatPerWindow:       5,
		ChatWindow:          5 * time.Second,
		ChatCooldown:        300 * time.Millisecond,
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Game   GameConfig
	Lobby  LobbyConfig
	Limits ResourceLimits
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Game:   GameFromEnv(),
		Lobby:  LobbyFromEnv(),
		Limits: DefaultLimits(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
