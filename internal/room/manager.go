package room

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bomberman-arena/internal/config"
	"bomberman-arena/internal/game"
	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
)

var (
	ErrAlreadyJoined    = errors.New("player already in a lobby or room")
	ErrNoRoom           = errors.New("player is not in an active room")
	ErrUnknownMap       = errors.New("unknown map")
	ErrNotInLobbyOrRoom = errors.New("player is not in a lobby or room")
	ErrManagerShutDown  = errors.New("manager is shut down")
)

// ManagerOptions injects the clock and randomness
type ManagerOptions struct {
	Scheduler game.Scheduler // Lobby timers and bomb timers; defaults to real time
	Rand      *rand.Rand     // Map picks and per-room seeds
	NewID     func() string  // Lobby and room ids; defaults to uuid
}

// Stats is a process-wide overview
type Stats struct {
	Lobbies          int `json:"lobbies"`
	Rooms            int `json:"rooms"`
	ActiveRooms      int `json:"activeRooms"`
	PlayersInLobbies int `json:"playersInLobbies"`
	PlayersInRooms   int `json:"playersInRooms"`
}

// Manager is the process-wide registry of lobbies and rooms. It holds its
// own mutex; rooms never call back into it, so the lock order is always
// manager then room.
type Manager struct {
	mu sync.Mutex

	game  config.GameConfig
	lobby config.LobbyConfig
	sched game.Scheduler
	rng   *rand.Rand
	newID func() string

	rooms       map[string]*Room
	playerRoom  map[string]string
	lobbies     map[string]*Lobby
	openLobby   map[int]*Lobby
	playerLobby map[string]string

	closed bool
}

// NewManager creates an empty manager
func NewManager(gameCfg config.GameConfig, lobbyCfg config.LobbyConfig, opts ManagerOptions) *Manager {
	if opts.Scheduler == nil {
		opts.Scheduler = game.RealScheduler{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if lobbyCfg.MaxPlayers <= 0 {
		lobbyCfg.MaxPlayers = config.DefaultLobby().MaxPlayers
	}
	if lobbyCfg.MinPlayers <= 0 {
		lobbyCfg.MinPlayers = config.DefaultLobby().MinPlayers
	}
	if lobbyCfg.Countdown <= 0 {
		lobbyCfg.Countdown = config.DefaultLobby().Countdown
	}

	return &Manager{
		game:        gameCfg,
		lobby:       lobbyCfg,
		sched:       opts.Scheduler,
		rng:         opts.Rand,
		newID:       opts.NewID,
		rooms:       make(map[string]*Room),
		playerRoom:  make(map[string]string),
		lobbies:     make(map[string]*Lobby),
		openLobby:   make(map[int]*Lobby),
		playerLobby: make(map[string]string),
	}
}

// =============================================================================
// LOBBIES
// =============================================================================

// JoinLobby puts a player in the open lobby for mapID, creating one when
// none is open, the open one is full, or it is already counting down.
func (m *Manager) JoinLobby(playerID, nickname string, mapID int, conn Connection) (*LobbyInfo, error) {
	if !game.ValidMapID(mapID) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMap, mapID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerShutDown
	}
	if _, ok := m.playerLobby[playerID]; ok {
		return nil, ErrAlreadyJoined
	}
	if roomID, ok := m.playerRoom[playerID]; ok {
		r := m.rooms[roomID]
		if r != nil && r.Status() != StatusFinished {
			return nil, ErrAlreadyJoined
		}
		// Leaving a finished match for a new one
		delete(m.playerRoom, playerID)
		if r != nil && r.Detach(playerID) {
			m.dropRoomLocked(roomID)
		}
	}

	info := m.admitLocked(mapID, Member{PlayerID: playerID, Nickname: nickname, Conn: conn})
	return &info, nil
}

// admitLocked seats a member in the open lobby for mapID and applies the
// wait and countdown rules
func (m *Manager) admitLocked(mapID int, mem Member) LobbyInfo {
	l := m.openLobby[mapID]
	if l == nil || l.count() >= m.lobby.MaxPlayers || l.Status == LobbyCountdown {
		l = newLobby(m.newID(), mapID)
		m.lobbies[l.ID] = l
		m.openLobby[mapID] = l
		metrics.SetLobbies(len(m.lobbies))
		log.Printf("🚪 Lobby %s opened for map %d", l.ID, mapID)
	}

	l.add(mem)
	m.playerLobby[mem.PlayerID] = l.ID
	count := l.count()

	if mem.Conn != nil {
		if err := mem.Conn.Send(protocol.LobbyJoined(mem.PlayerID, l.ID, l.MapID, count, m.lobby.MaxPlayers)); err != nil {
			metrics.SendFailed()
		}
	}
	l.broadcast(protocol.PlayerJoined(mem.PlayerID, mem.Nickname, count))

	switch {
	case count >= m.lobby.MaxPlayers:
		l.cancelWait()
		m.startCountdownLocked(l)
	case count >= m.lobby.MinPlayers && l.Status == LobbyWaiting && l.waitTimer == nil:
		m.startWaitLocked(l)
	}
	return l.info(m.lobby.MaxPlayers)
}

func (m *Manager) startWaitLocked(l *Lobby) {
	gen := l.waitGen
	l.waitTimer = m.sched.AfterFunc(m.lobby.WaitTimer, func() {
		m.onWaitTimer(l, gen)
	})
	log.Printf("⏳ Lobby %s: %d players, waiting %v for more", l.ID, l.count(), m.lobby.WaitTimer)
}

func (m *Manager) onWaitTimer(l *Lobby, gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lobbies[l.ID] != l || l.waitGen != gen {
		return
	}
	l.waitTimer = nil
	if l.Status == LobbyWaiting && l.count() >= m.lobby.MinPlayers {
		m.startCountdownLocked(l)
	}
}

func (m *Manager) startCountdownLocked(l *Lobby) {
	l.Status = LobbyCountdown
	l.remaining = m.lobby.Countdown
	if m.openLobby[l.MapID] == l {
		delete(m.openLobby, l.MapID)
	}

	l.broadcast(protocol.CountdownStart(m.lobby.Countdown))
	log.Printf("⏱️ Lobby %s: countdown started (%ds, %d players)", l.ID, m.lobby.Countdown, l.count())
	m.scheduleTickLocked(l)
}

func (m *Manager) scheduleTickLocked(l *Lobby) {
	gen := l.countdownGen
	l.countdownTimer = m.sched.AfterFunc(time.Second, func() {
		m.onCountdownTick(l, gen)
	})
}

func (m *Manager) onCountdownTick(l *Lobby, gen int) {
	m.mu.Lock()
	if m.lobbies[l.ID] != l || l.countdownGen != gen || l.Status != LobbyCountdown {
		m.mu.Unlock()
		return
	}

	l.remaining--
	l.broadcast(protocol.CountdownTick(l.remaining))
	if l.remaining > 0 {
		m.scheduleTickLocked(l)
		m.mu.Unlock()
		return
	}

	l.countdownTimer = nil
	var r *Room
	if l.count() >= m.lobby.MinPlayers {
		r = m.promoteLocked(l)
	} else {
		m.revertLocked(l)
	}
	m.mu.Unlock()

	// Room calls happen outside the manager lock
	if r != nil {
		m.startRoom(r)
	}
}

// revertLocked returns a lobby that lost players during its countdown to
// WAITING. When another lobby took its map slot meanwhile, the members move
// there instead.
func (m *Manager) revertLocked(l *Lobby) {
	l.Status = LobbyWaiting
	l.remaining = 0
	if _, taken := m.openLobby[l.MapID]; !taken {
		m.openLobby[l.MapID] = l
		log.Printf("↩️ Lobby %s: countdown ended with %d players, waiting again", l.ID, l.count())
		return
	}

	members := l.Members()
	for _, mem := range members {
		delete(m.playerLobby, mem.PlayerID)
	}
	m.dropLobbyLocked(l)
	log.Printf("↩️ Lobby %s: countdown ended with %d players, merging into the open lobby", l.ID, len(members))

	for _, mem := range members {
		m.admitLocked(l.MapID, mem)
	}
}

// promoteLocked turns a lobby into a room and moves every index over
func (m *Manager) promoteLocked(l *Lobby) *Room {
	mapID := l.MapID
	if mapID == game.RandomMap {
		mapID = game.RandomMapID(m.rng)
	}

	r := New(Options{
		ID:        m.newID(),
		MapID:     mapID,
		Players:   l.Members(),
		Config:    m.game,
		Scheduler: m.sched,
		Rand:      rand.New(rand.NewSource(m.rng.Int63())),
	})

	m.rooms[r.ID()] = r
	for _, mem := range l.members {
		m.playerRoom[mem.PlayerID] = r.ID()
		delete(m.playerLobby, mem.PlayerID)
	}
	m.dropLobbyLocked(l)
	metrics.SetRooms(len(m.rooms))

	log.Printf("🎯 Lobby %s promoted to room %s (map %d)", l.ID, r.ID(), mapID)
	return r
}

func (m *Manager) startRoom(r *Room) {
	if err := r.Initialize(); err != nil {
		log.Printf("❌ Room %s failed to initialize: %v", r.ID(), err)
		r.EndGame(ReasonInitFailed, nil)
		return
	}
	if err := r.Start(); err != nil {
		log.Printf("❌ Room %s failed to start: %v", r.ID(), err)
		r.EndGame(ReasonInitFailed, nil)
	}
}

func (m *Manager) dropLobbyLocked(l *Lobby) {
	l.cancelWait()
	l.cancelCountdown()
	delete(m.lobbies, l.ID)
	if m.openLobby[l.MapID] == l {
		delete(m.openLobby, l.MapID)
	}
	metrics.SetLobbies(len(m.lobbies))
}

func (m *Manager) dropRoomLocked(roomID string) {
	delete(m.rooms, roomID)
	metrics.SetRooms(len(m.rooms))
	log.Printf("🧹 Room %s removed", roomID)
}

// =============================================================================
// PLAYER ROUTING
// =============================================================================

// HandleDisconnect is the single exit path for QUIT_GAME and closed sockets
func (m *Manager) HandleDisconnect(playerID string) error {
	m.mu.Lock()

	if lobbyID, ok := m.playerLobby[playerID]; ok {
		defer m.mu.Unlock()
		delete(m.playerLobby, playerID)

		l := m.lobbies[lobbyID]
		if l == nil {
			return nil
		}
		l.remove(playerID)
		l.broadcast(protocol.PlayerLeft(playerID))

		switch {
		case l.count() == 0:
			m.dropLobbyLocked(l)
			log.Printf("🚪 Lobby %s closed (empty)", l.ID)
		case l.Status == LobbyWaiting && l.count() < m.lobby.MinPlayers:
			l.cancelWait()
		}
		return nil
	}

	roomID, ok := m.playerRoom[playerID]
	if !ok {
		m.mu.Unlock()
		return ErrNotInLobbyOrRoom
	}
	delete(m.playerRoom, playerID)
	r := m.rooms[roomID]
	m.mu.Unlock()

	if r == nil {
		return nil
	}
	if empty := r.HandlePlayerDisconnect(playerID); empty {
		m.mu.Lock()
		if m.rooms[roomID] == r {
			m.dropRoomLocked(roomID)
		}
		m.mu.Unlock()
	}
	return nil
}

// RoomForPlayer returns the room a player is mapped to
func (m *Manager) RoomForPlayer(playerID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.playerRoom[playerID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[roomID]
	return r, ok
}

// HandleInput routes a move or bomb intent to the player's room
func (m *Manager) HandleInput(playerID string, intent protocol.Intent) (bool, error) {
	r, ok := m.RoomForPlayer(playerID)
	if !ok {
		return false, ErrNoRoom
	}
	accepted, err := r.HandleInput(playerID, intent)
	if errors.Is(err, ErrNotPlaying) {
		return false, ErrNoRoom
	}
	return accepted, err
}

// Chat broadcasts a line to the sender's lobby or room
func (m *Manager) Chat(playerID, text string) error {
	m.mu.Lock()
	if lobbyID, ok := m.playerLobby[playerID]; ok {
		defer m.mu.Unlock()
		l := m.lobbies[lobbyID]
		if l == nil {
			return ErrNotInLobbyOrRoom
		}
		mem, _ := l.member(playerID)
		l.broadcast(protocol.ChatMessage(playerID, mem.Nickname, text))
		return nil
	}
	roomID, ok := m.playerRoom[playerID]
	r := m.rooms[roomID]
	m.mu.Unlock()

	if !ok || r == nil {
		return ErrNotInLobbyOrRoom
	}
	return r.Chat(playerID, text)
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// Room returns a room by id
func (m *Manager) Room(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Lobbies lists lobbies, oldest first
func (m *Manager) Lobbies() []LobbyInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]LobbyInfo, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		list = append(list, l.info(m.lobby.MaxPlayers))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// Rooms lists room summaries, oldest first
func (m *Manager) Rooms() []Summary {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	list := make([]Summary, len(rooms))
	for i, r := range rooms {
		list[i] = r.Summary()
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// Stats returns counts for the health endpoint
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	s := Stats{
		Lobbies:        len(m.lobbies),
		Rooms:          len(m.rooms),
		PlayersInRooms: len(m.playerRoom),
	}
	for _, l := range m.lobbies {
		s.PlayersInLobbies += l.count()
	}
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		if r.Status() == StatusPlaying {
			s.ActiveRooms++
		}
	}
	return s
}

// Shutdown stops every lobby timer and ends every room
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	for _, l := range m.lobbies {
		m.dropLobbyLocked(l)
	}
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		r.EndGame(ReasonServerShutdown, nil)
	}
	log.Printf("🛑 Room manager shut down (%d rooms ended)", len(rooms))
}
