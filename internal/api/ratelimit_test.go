package api

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomberman-arena/internal/config"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"default localhost port", nil, "http://localhost:5173", true},
		{"default loopback", nil, "http://127.0.0.1:8080", true},
		{"default rejects others", nil, "https://example.com", false},
		{"exact match", []string{"https://play.example.com"}, "https://play.example.com", true},
		{"case insensitive", []string{"https://Play.Example.com"}, "https://play.example.COM", true},
		{"subdomain wildcard", []string{"https://*.example.com"}, "https://eu.example.com", true},
		{"wildcard needs suffix", []string{"https://*.example.com"}, "https://example.org", false},
		{"allow all", []string{"*"}, "https://anything.test", true},
		{"empty list", []string{}, "http://localhost:3000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewOriginChecker(tt.allowed).Allowed(tt.origin))
		})
	}
}

func TestConnectionLimiterPerIP(t *testing.T) {
	cl := NewConnectionLimiter(config.ResourceLimits{MaxConnectionsPerIP: 2})

	assert.NoError(t, cl.Acquire("1.2.3.4"))
	assert.NoError(t, cl.Acquire("1.2.3.4"))
	assert.ErrorIs(t, cl.Acquire("1.2.3.4"), ErrTooManyFromIP)
	assert.NoError(t, cl.Acquire("5.6.7.8"))
	assert.Equal(t, 2, cl.ConnectionCount("1.2.3.4"))
	assert.Equal(t, 3, cl.Total(), "refused slot is not held")
	assert.Equal(t, LimiterStats{Allowed: 3, Rejected: 1}, cl.Stats())

	cl.Release("1.2.3.4")
	assert.Equal(t, 1, cl.ConnectionCount("1.2.3.4"))
	assert.NoError(t, cl.Acquire("1.2.3.4"))
	assert.Equal(t, 0, cl.ConnectionCount("9.9.9.9"))
}

func TestConnectionLimiterTotal(t *testing.T) {
	cl := NewConnectionLimiter(config.ResourceLimits{MaxConnections: 2, MaxConnectionsPerIP: 2})

	require.NoError(t, cl.Acquire("1.1.1.1"))
	require.NoError(t, cl.Acquire("2.2.2.2"))
	assert.ErrorIs(t, cl.Acquire("3.3.3.3"), ErrServerFull)
	assert.Equal(t, 0, cl.ConnectionCount("3.3.3.3"))

	cl.Release("2.2.2.2")
	assert.NoError(t, cl.Acquire("3.3.3.3"))
	assert.Equal(t, LimiterStats{Allowed: 3, Rejected: 1}, cl.Stats())
}

func TestConnectionLimiterConcurrentAcquire(t *testing.T) {
	cl := NewConnectionLimiter(config.ResourceLimits{MaxConnections: 10, MaxConnectionsPerIP: 100})

	var wg sync.WaitGroup
	var granted atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.Acquire("1.1.1.1") == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), granted.Load())
	assert.Equal(t, 10, cl.Total())
	assert.Equal(t, 10, cl.ConnectionCount("1.1.1.1"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetClientIP(req))

	req.Header.Set("X-Real-IP", " 10.0.0.2 ")
	assert.Equal(t, "10.0.0.2", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", GetClientIP(req))
}

func TestIPRateLimiterSweepsIdleVisitors(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer rl.Stop()

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.Equal(t, LimiterStats{Allowed: 1, Rejected: 1}, rl.Stats())

	v, ok := rl.visitors.Load("1.1.1.1")
	require.True(t, ok)
	v.(*visitor).lastSeen.Store(0)
	rl.sweep()

	_, ok = rl.visitors.Load("1.1.1.1")
	assert.False(t, ok)
	assert.True(t, rl.Allow("1.1.1.1"), "fresh bucket after sweep")
}
