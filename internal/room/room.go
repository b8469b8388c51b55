// Package room runs matches: a Room wraps one authoritative simulation and
// fans its events out to the players' connections; the Manager forms
// lobbies and promotes them into rooms.
package room

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"bomberman-arena/internal/config"
	"bomberman-arena/internal/game"
	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
)

// Status is the room lifecycle state
type Status string

const (
	StatusInitializing Status = "INITIALIZING"
	StatusInitialized  Status = "INITIALIZED"
	StatusPlaying      Status = "PLAYING"
	StatusFinished     Status = "FINISHED"
)

// End reasons reported in GAME_OVER
const (
	ReasonLastPlayerStanding = "last_player_standing"
	ReasonDraw               = "draw"
	ReasonNotEnoughPlayers   = "not_enough_players"
	ReasonServerShutdown     = "server_shutdown"
	ReasonInitFailed         = "initialization_failed"
)

var (
	ErrNotPlaying        = errors.New("room is not playing")
	ErrBadStatus         = errors.New("room is in the wrong state")
	ErrUnsupportedIntent = errors.New("intent is not handled by rooms")
)

// Connection is the transport seen by the core. Send must not block.
type Connection interface {
	PlayerID() string
	Send(msg protocol.Message) error
	Connected() bool
}

// Member is a roster entry carried from lobby to room
type Member struct {
	PlayerID string
	Nickname string
	Conn     Connection
}

// Options configures a new room
type Options struct {
	ID        string
	MapID     int
	Players   []Member
	Config    config.GameConfig
	Scheduler game.Scheduler
	Rand      *rand.Rand
}

// Summary is a read-only view for HTTP introspection
type Summary struct {
	ID         string     `json:"id"`
	MapID      int        `json:"mapId"`
	Status     Status     `json:"status"`
	Players    int        `json:"players"`
	Connected  int        `json:"connected"`
	Alive      int        `json:"alive"`
	Winner     *string    `json:"winner,omitempty"`
	EndReason  string     `json:"endReason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Room is one match. A single mutex guards everything, including
// bomb timer callbacks, so the simulation has exactly one writer.
type Room struct {
	mu sync.Mutex

	id      string
	mapID   int
	roster  []Member
	conns   map[string]Connection
	left    map[string]bool // Disconnected before the simulation existed
	cfg     config.GameConfig
	sched   game.Scheduler
	rng     *rand.Rand
	status  Status
	mapDef  *game.MapDefinition
	engine  *game.Engine
	state   *game.State
	winner  *string
	reason  string
	created time.Time
	started time.Time
	ended   time.Time
}

// New creates a room in INITIALIZING state with the roster's connections attached
func New(opts Options) *Room {
	sched := opts.Scheduler
	if sched == nil {
		sched = game.RealScheduler{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	r := &Room{
		id:      opts.ID,
		mapID:   opts.MapID,
		roster:  append([]Member(nil), opts.Players...),
		conns:   make(map[string]Connection, len(opts.Players)),
		left:    make(map[string]bool),
		cfg:     opts.Config,
		rng:     rng,
		status:  StatusInitializing,
		created: time.Now(),
	}
	r.sched = lockedScheduler{mu: &r.mu, inner: sched}

	for _, m := range opts.Players {
		if m.Conn != nil {
			r.conns[m.PlayerID] = m.Conn
		}
	}
	return r
}

// lockedScheduler runs callbacks under the room mutex
type lockedScheduler struct {
	mu    *sync.Mutex
	inner game.Scheduler
}

func (s lockedScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	return s.inner.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		f()
	})
}

// ID returns the room id
func (r *Room) ID() string { return r.id }

// MapID returns the map being played
func (r *Room) MapID() int { return r.mapID }

// Status returns the lifecycle state
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Initialize loads the map and builds the simulation
func (r *Room) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusInitializing {
		return fmt.Errorf("initialize: %w (%s)", ErrBadStatus, r.status)
	}

	def, err := game.LookupMap(r.mapID)
	if err != nil {
		return err
	}
	engine, err := game.NewEngine(r.cfg, def)
	if err != nil {
		return err
	}

	infos := make([]game.PlayerInfo, len(r.roster))
	for i, m := range r.roster {
		infos[i] = game.PlayerInfo{ID: m.PlayerID, Nickname: m.Nickname}
	}
	if err := engine.Initialize(infos); err != nil {
		return fmt.Errorf("room %s: %w", r.id, err)
	}
	for id := range r.left {
		engine.RemovePlayer(id)
	}

	r.mapDef = def
	r.engine = engine
	r.state = game.NewState(engine, r.sched, r.onEvent, r.rng)
	r.status = StatusInitialized
	return nil
}

// Start sends each player its own GAME_STARTED and opens the room for input.
// A room that lost players before starting ends at once below two connections.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusInitialized {
		return fmt.Errorf("start: %w (%s)", ErrBadStatus, r.status)
	}

	if len(r.conns) < 2 {
		r.status = StatusPlaying
		r.started = time.Now()
		r.endGameLocked(ReasonNotEnoughPlayers, r.lastConnectedAlive())
		return nil
	}

	snap := r.engine.SerializeFullState()
	for _, m := range r.roster {
		conn, ok := r.conns[m.PlayerID]
		if !ok || !conn.Connected() {
			continue
		}
		msg := protocol.GameStarted(r.id, r.mapDef, snap.Grid, snap.Players, m.PlayerID)
		if err := conn.Send(msg); err != nil {
			metrics.SendFailed()
			log.Printf("⚠️ Room %s: GAME_STARTED to %s failed: %v", r.id, m.PlayerID, err)
		}
	}

	r.status = StatusPlaying
	r.started = time.Now()
	log.Printf("🎮 Room %s started on map %d with %d players", r.id, r.mapID, len(r.roster))
	return nil
}

// Attach binds (or rebinds) a player's connection
func (r *Room) Attach(playerID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[playerID] = conn
}

// Detach drops a connection without touching the simulation.
// Returns true when no connections remain.
func (r *Room) Detach(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, playerID)
	return len(r.conns) == 0
}

// HandleInput applies a move or bomb intent. Illegal and stale intents are
// not errors: they return accepted=false.
func (r *Room) HandleInput(playerID string, intent protocol.Intent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPlaying {
		return false, ErrNotPlaying
	}

	var rej game.Rejection
	switch in := intent.(type) {
	case protocol.Move:
		rej = r.state.ApplyMove(playerID, in.Direction, in.SequenceNumber)
	case protocol.PlaceBomb:
		rej = r.state.ApplyBombPlacement(playerID)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedIntent, intent.Kind())
	}

	if rej != game.Accepted {
		metrics.IntentRejected(string(rej))
		return false, nil
	}
	return true, nil
}

// Chat relays a chat line to everyone in the room
func (r *Room) Chat(playerID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.member(playerID)
	if !ok {
		return fmt.Errorf("chat: %s is not in room %s", playerID, r.id)
	}
	r.broadcastLocked(protocol.ChatMessage(m.PlayerID, m.Nickname, text))
	return nil
}

// Broadcast sends msg to every connected player except the excluded ids
func (r *Room) Broadcast(msg protocol.Message, exclude ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(msg, exclude...)
}

// broadcastLocked is at-most-once: failed or closed connections are skipped
func (r *Room) broadcastLocked(msg protocol.Message, exclude ...string) {
	for _, m := range r.roster {
		if contains(exclude, m.PlayerID) {
			continue
		}
		conn, ok := r.conns[m.PlayerID]
		if !ok || !conn.Connected() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			metrics.SendFailed()
			log.Printf("⚠️ Room %s: send %s to %s failed: %v", r.id, msg.Type, m.PlayerID, err)
		}
	}
}

// HandlePlayerDisconnect removes a player's connection and eliminates them.
// Returns true when the room has no connections left.
func (r *Room) HandlePlayerDisconnect(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, had := r.conns[playerID]
	delete(r.conns, playerID)

	if had && r.status != StatusFinished {
		r.broadcastLocked(protocol.PlayerDisconnected(playerID))
	}
	if r.state != nil {
		r.state.RemovePlayer(playerID)
	} else if _, ok := r.member(playerID); ok {
		r.left[playerID] = true
	}

	if r.status == StatusPlaying && len(r.conns) < 2 {
		r.endGameLocked(ReasonNotEnoughPlayers, r.lastConnectedAlive())
	}

	log.Printf("👋 Room %s: %s disconnected (%d connections left)", r.id, playerID, len(r.conns))
	return len(r.conns) == 0
}

// EndGame finishes the room once; later calls are no-ops and return false
func (r *Room) EndGame(reason string, winner *string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endGameLocked(reason, winner)
}

func (r *Room) endGameLocked(reason string, winner *string) bool {
	if r.status == StatusFinished {
		return false
	}
	r.status = StatusFinished
	r.reason = reason
	r.winner = winner
	r.ended = time.Now()

	if r.state != nil {
		r.state.Stop()
	}

	r.broadcastLocked(protocol.GameOver(winner, reason))
	metrics.GameFinished(reason)

	w := "none"
	if winner != nil {
		w = *winner
	}
	log.Printf("🏁 Room %s finished (%s), winner: %s", r.id, reason, w)
	return true
}

// onEvent translates simulation events into broadcasts. It always runs
// under r.mu because State is only driven from locked paths.
func (r *Room) onEvent(ev game.Event) {
	switch p := ev.Payload.(type) {
	case game.GameOverPayload:
		reason := ReasonDraw
		if p.Winner != nil {
			reason = ReasonLastPlayerStanding
		}
		r.endGameLocked(reason, p.Winner)
		return
	case game.BombExplodedPayload:
		metrics.BombExploded()
	}

	if msg, ok := protocol.FromEvent(ev); ok {
		r.broadcastLocked(msg)
	}
}

// Snapshot returns a deep copy of the simulation for resync clients
func (r *Room) Snapshot() (game.FullState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return game.FullState{}, false
	}
	return r.engine.SerializeFullState(), true
}

// Summary returns a read-only overview
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		ID:        r.id,
		MapID:     r.mapID,
		Status:    r.status,
		Players:   len(r.roster),
		Connected: len(r.conns),
		Winner:    r.winner,
		EndReason: r.reason,
		CreatedAt: r.created,
	}
	if r.engine != nil {
		s.Alive = len(r.engine.AlivePlayers())
	}
	if !r.started.IsZero() {
		t := r.started
		s.StartedAt = &t
	}
	if !r.ended.IsZero() {
		t := r.ended
		s.FinishedAt = &t
	}
	return s
}

// ConnectionCount returns the number of attached connections
func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Room) member(playerID string) (Member, bool) {
	for _, m := range r.roster {
		if m.PlayerID == playerID {
			return m, true
		}
	}
	return Member{}, false
}

// lastConnectedAlive picks the winner when a match ends for lack of players
func (r *Room) lastConnectedAlive() *string {
	if r.engine == nil {
		return nil
	}
	for _, p := range r.engine.AlivePlayers() {
		if _, ok := r.conns[p.ID]; ok {
			id := p.ID
			return &id
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
