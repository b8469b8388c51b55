package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomberman-arena/internal/config"
	"bomberman-arena/internal/game"
	"bomberman-arena/internal/room"
)

func testGameConfig() config.GameConfig {
	cfg := config.DefaultGame()
	cfg.PowerUpChance = 0
	return cfg
}

// Timers long enough that no test ever sees them fire
func testLobbyConfig() config.LobbyConfig {
	cfg := config.DefaultLobby()
	cfg.WaitTimer = time.Hour
	return cfg
}

func newTestRouter(t *testing.T, m Manager) *httptest.Server {
	t.Helper()
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000})
	t.Cleanup(limiter.Stop)

	ts := httptest.NewServer(NewRouter(RouterConfig{
		Manager:        m,
		RateLimiter:    limiter,
		DisableLogging: true,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestRouter(t, &fakeManager{})

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestRouter(t, &fakeManager{stats: room.Stats{Lobbies: 2, PlayersInLobbies: 3}})

	var stats room.Stats
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/stats", &stats))
	assert.Equal(t, room.Stats{Lobbies: 2, PlayersInLobbies: 3}, stats)
}

func TestMapsEndpoint(t *testing.T) {
	ts := newTestRouter(t, &fakeManager{})

	var maps []mapSummary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/maps", &maps))
	require.Len(t, maps, len(game.MapIDs()))
	for i, m := range maps {
		assert.Equal(t, game.MapIDs()[i], m.ID)
		assert.Equal(t, 15, m.Width)
		assert.Equal(t, 13, m.Height)
		assert.Len(t, m.Preview.Grid, 13)
		assert.NotEmpty(t, m.Assets.Wall)
	}
}

func TestLobbiesAndRoomsWithRealManager(t *testing.T) {
	mgr := room.NewManager(testGameConfig(), testLobbyConfig(), room.ManagerOptions{})
	t.Cleanup(mgr.Shutdown)
	_, err := mgr.JoinLobby("a", "Ann", 3, newPeer("a"))
	require.NoError(t, err)

	ts := newTestRouter(t, mgr)

	var lobbies []room.LobbyInfo
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/lobbies", &lobbies))
	require.Len(t, lobbies, 1)
	assert.Equal(t, 3, lobbies[0].MapID)
	assert.Equal(t, 1, lobbies[0].PlayerCount)
	assert.Equal(t, room.LobbyWaiting, lobbies[0].Status)

	var rooms []room.Summary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/rooms", &rooms))
	assert.Empty(t, rooms)
}

func TestRoomStateEndpoint(t *testing.T) {
	r := room.New(room.Options{
		ID:     "room-1",
		MapID:  1,
		Config: testGameConfig(),
		Players: []room.Member{
			{PlayerID: "a", Nickname: "Ann"},
			{PlayerID: "b", Nickname: "Bob"},
		},
	})
	pending := room.New(room.Options{ID: "room-2", MapID: 1, Config: testGameConfig()})
	require.NoError(t, r.Initialize())

	ts := newTestRouter(t, &fakeManager{rooms: map[string]*room.Room{"room-1": r, "room-2": pending}})

	var state game.FullState
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/rooms/room-1/state", &state))
	assert.Equal(t, 1, state.MapID)
	require.Len(t, state.Players, 2)
	assert.Equal(t, "a", state.Players[0].ID)
	assert.Equal(t, 1, state.Players[0].GridX)
	assert.Len(t, state.Grid, 13)
	assert.Empty(t, state.Bombs)

	var summary room.Summary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/rooms/room-1", &summary))
	assert.Equal(t, room.StatusInitialized, summary.Status)
	assert.Equal(t, 2, summary.Alive)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/rooms/missing/state", nil))
	assert.Equal(t, http.StatusConflict, getJSON(t, ts.URL+"/api/rooms/room-2/state", nil))
}

func TestRouterRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	t.Cleanup(limiter.Stop)
	ts := httptest.NewServer(NewRouter(RouterConfig{
		Manager:        &fakeManager{},
		RateLimiter:    limiter,
		DisableLogging: true,
	}))
	t.Cleanup(ts.Close)

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/stats", nil))

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// Health checks bypass the limiter
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", nil))
	assert.Equal(t, LimiterStats{Allowed: 1, Rejected: 1}, limiter.Stats())
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestRouter(t, &fakeManager{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNoWebSocketRouteWithoutHub(t *testing.T) {
	ts := newTestRouter(t, &fakeManager{})
	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
