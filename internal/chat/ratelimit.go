package chat

import (
	"sync"
	"time"

	"bomberman-arena/internal/config"
)

// RateLimiter implements per-player chat rate limiting
type RateLimiter struct {
	mu      sync.Mutex
	players map[string]*playerLimit
	config  RateLimitConfig
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type playerLimit struct {
	count     int
	windowEnd time.Time
	lastLine  time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// MaxPerWindow is max lines per window
	MaxPerWindow int
	// WindowDuration is the window size
	WindowDuration time.Duration
	// CooldownDuration is minimum time between lines
	CooldownDuration time.Duration
}

// DefaultRateLimitConfig for in-game chat
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:     5,
	WindowDuration:   5 * time.Second,
	CooldownDuration: 300 * time.Millisecond,
}

// ConfigFromLimits takes the chat settings out of the resource limits
func ConfigFromLimits(l config.ResourceLimits) RateLimitConfig {
	cfg := RateLimitConfig{
		MaxPerWindow:     l.ChatPerWindow,
		WindowDuration:   l.ChatWindow,
		CooldownDuration: l.ChatCooldown,
	}
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = DefaultRateLimitConfig.MaxPerWindow
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = DefaultRateLimitConfig.WindowDuration
	}
	return cfg
}

// NewRateLimiter creates a new rate limiter. Close stops its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := newRateLimiter(cfg, time.Now)
	go rl.cleanup()
	return rl
}

func newRateLimiter(cfg RateLimitConfig, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		players: make(map[string]*playerLimit),
		config:  cfg,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow checks if a player may send another line
func (rl *RateLimiter) Allow(playerID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	limit, exists := rl.players[playerID]
	if !exists {
		rl.players[playerID] = &playerLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastLine:  now,
		}
		return true
	}

	if now.Sub(limit.lastLine) < rl.config.CooldownDuration {
		return false
	}

	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastLine = now
		return true
	}

	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastLine = now
	return true
}

// Forget drops a player's history, called when their connection closes
func (rl *RateLimiter) Forget(playerID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.players, playerID)
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.players)
}

// cleanup removes idle entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep(rl.now().Add(-5 * time.Minute))
		}
	}
}

func (rl *RateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, limit := range rl.players {
		if limit.lastLine.Before(cutoff) {
			delete(rl.players, id)
		}
	}
}
