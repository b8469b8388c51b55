package api

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"bomberman-arena/internal/config"
	"bomberman-arena/internal/metrics"
)

// RateLimitConfig sizes the token bucket each client IP gets on /api
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // Sweep period; buckets idle for two periods are dropped
}

var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// LimiterStats counts admitted and refused requests or upgrades
type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter throttles HTTP requests per client IP. Refusals are
// reported as connection rejections with reason "rate_limit".
type IPRateLimiter struct {
	visitors sync.Map // ip -> *visitor
	config   RateLimitConfig
	done     chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{config: cfg, done: make(chan struct{})}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *IPRateLimiter) lookup(ip string) *visitor {
	now := time.Now().UnixNano()
	if found, ok := rl.visitors.Load(ip); ok {
		v := found.(*visitor)
		v.lastSeen.Store(now)
		return v
	}

	fresh := &visitor{bucket: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
	fresh.lastSeen.Store(now)
	v, _ := rl.visitors.LoadOrStore(ip, fresh)
	return v.(*visitor)
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *IPRateLimiter) sweep() {
	idleSince := time.Now().Add(-2 * rl.config.CleanupInterval).UnixNano()
	rl.visitors.Range(func(ip, v any) bool {
		if v.(*visitor).lastSeen.Load() < idleSince {
			rl.visitors.Delete(ip)
		}
		return true
	})
}

// Allow takes one token from ip's bucket
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.lookup(ip).bucket.Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	metrics.RecordConnectionRejected("rate_limit")
	return false
}

// Middleware answers 429 with Retry-After once a client's bucket is empty.
// WebSocket upgrades are counted by the hub's ConnectionLimiter instead.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *IPRateLimiter) Stats() LimiterStats {
	return LimiterStats{Allowed: rl.allowed.Load(), Rejected: rl.rejected.Load()}
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket address. The headers are trusted, so deploy behind a proxy
// that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

var (
	ErrServerFull    = errors.New("server connection limit reached")
	ErrTooManyFromIP = errors.New("per-IP connection limit reached")
)

// ConnectionLimiter caps concurrent WebSocket connections, in total and per IP.
// Acquire reserves both slots atomically; Release frees them.
type ConnectionLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	total       atomic.Int32
	maxTotal    int
	maxPerIP    int

	allowedCount  atomic.Uint64
	rejectedCount atomic.Uint64
}

// NewConnectionLimiter builds a limiter from the resource limits.
// A non-positive cap disables that check.
func NewConnectionLimiter(limits config.ResourceLimits) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxTotal: limits.MaxConnections,
		maxPerIP: limits.MaxConnectionsPerIP,
	}
}

// Acquire reserves a slot for ip, or returns ErrServerFull / ErrTooManyFromIP
func (cl *ConnectionLimiter) Acquire(ip string) error {
	if !reserve(&cl.total, cl.maxTotal) {
		return cl.reject(ErrServerFull, "ws_total_limit")
	}

	actual, _ := cl.connections.LoadOrStore(ip, new(atomic.Int32))
	if !reserve(actual.(*atomic.Int32), cl.maxPerIP) {
		cl.total.Add(-1)
		return cl.reject(ErrTooManyFromIP, "ws_ip_limit")
	}

	cl.allowedCount.Add(1)
	return nil
}

func (cl *ConnectionLimiter) reject(err error, reason string) error {
	cl.rejectedCount.Add(1)
	metrics.RecordConnectionRejected(reason)
	return err
}

// reserve increments counter unless it already holds limit
func reserve(counter *atomic.Int32, limit int) bool {
	for {
		current := counter.Load()
		if limit > 0 && int(current) >= limit {
			return false
		}
		if counter.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees the slot reserved by Acquire
func (cl *ConnectionLimiter) Release(ip string) {
	if val, ok := cl.connections.Load(ip); ok {
		val.(*atomic.Int32).Add(-1)
		cl.total.Add(-1)
	}
}

// ConnectionCount returns current connection count for an IP
func (cl *ConnectionLimiter) ConnectionCount(ip string) int {
	if val, ok := cl.connections.Load(ip); ok {
		return int(val.(*atomic.Int32).Load())
	}
	return 0
}

// Total returns the number of reserved slots
func (cl *ConnectionLimiter) Total() int {
	return int(cl.total.Load())
}

// Stats returns accepted and refused upgrade counts
func (cl *ConnectionLimiter) Stats() LimiterStats {
	return LimiterStats{
		Allowed:  cl.allowedCount.Load(),
		Rejected: cl.rejectedCount.Load(),
	}
}

// DefaultOrigins are allowed when no CORS origins are configured
var DefaultOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginChecker matches Origin headers against a list of allowed origins.
// Entries may contain one '*' wildcard, as go-chi/cors accepts.
type OriginChecker struct {
	allowed []string
}

// NewOriginChecker builds a checker; nil origins means DefaultOrigins
func NewOriginChecker(origins []string) *OriginChecker {
	if origins == nil {
		origins = DefaultOrigins
	}
	list := make([]string, 0, len(origins))
	for _, o := range origins {
		list = append(list, strings.ToLower(strings.TrimSpace(o)))
	}
	return &OriginChecker{allowed: list}
}

// Allowed reports whether origin may open a socket. Non-browser clients send
// no Origin header and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	origin = strings.ToLower(origin)
	for _, pattern := range oc.allowed {
		if pattern == "*" || pattern == origin {
			return true
		}
		if star := strings.IndexByte(pattern, '*'); star >= 0 {
			prefix, suffix := pattern[:star], pattern[star+1:]
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}

// Origins returns the configured list for the CORS middleware
func (oc *OriginChecker) Origins() []string {
	return append([]string(nil), oc.allowed...)
}
