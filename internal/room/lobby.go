package room

import (
	"log"
	"time"

	"bomberman-arena/internal/game"
	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
)

// LobbyStatus is the pre-game state
type LobbyStatus string

const (
	LobbyWaiting   LobbyStatus = "WAITING"
	LobbyCountdown LobbyStatus = "COUNTDOWN"
)

// LobbyInfo is a read-only view of a lobby
type LobbyInfo struct {
	ID          string      `json:"id"`
	MapID       int         `json:"mapId"`
	Status      LobbyStatus `json:"status"`
	PlayerCount int         `json:"playerCount"`
	MaxPlayers  int         `json:"maxPlayers"`
	Remaining   int         `json:"remaining,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Lobby collects players for one map until the countdown promotes it.
// Guarded by the manager mutex.
type Lobby struct {
	ID      string
	MapID   int
	Status  LobbyStatus
	members []Member

	waitTimer      game.Timer
	countdownTimer game.Timer
	remaining      int

	// Bumped whenever a timer is cancelled so late callbacks can tell
	waitGen      int
	countdownGen int

	createdAt time.Time
}

func newLobby(id string, mapID int) *Lobby {
	return &Lobby{ID: id, MapID: mapID, Status: LobbyWaiting, createdAt: time.Now()}
}

func (l *Lobby) count() int { return len(l.members) }

func (l *Lobby) add(m Member) { l.members = append(l.members, m) }

func (l *Lobby) remove(playerID string) (Member, bool) {
	for i, m := range l.members {
		if m.PlayerID == playerID {
			l.members = append(l.members[:i], l.members[i+1:]...)
			return m, true
		}
	}
	return Member{}, false
}

func (l *Lobby) member(playerID string) (Member, bool) {
	for _, m := range l.members {
		if m.PlayerID == playerID {
			return m, true
		}
	}
	return Member{}, false
}

// Members returns a copy of the roster in join order
func (l *Lobby) Members() []Member {
	return append([]Member(nil), l.members...)
}

func (l *Lobby) broadcast(msg protocol.Message, exclude ...string) {
	for _, m := range l.members {
		if contains(exclude, m.PlayerID) || m.Conn == nil || !m.Conn.Connected() {
			continue
		}
		if err := m.Conn.Send(msg); err != nil {
			metrics.SendFailed()
			log.Printf("⚠️ Lobby %s: send %s to %s failed: %v", l.ID, msg.Type, m.PlayerID, err)
		}
	}
}

func (l *Lobby) cancelWait() {
	if l.waitTimer != nil {
		l.waitTimer.Stop()
		l.waitTimer = nil
	}
	l.waitGen++
}

func (l *Lobby) cancelCountdown() {
	if l.countdownTimer != nil {
		l.countdownTimer.Stop()
		l.countdownTimer = nil
	}
	l.countdownGen++
}

func (l *Lobby) info(capacity int) LobbyInfo {
	info := LobbyInfo{
		ID:          l.ID,
		MapID:       l.MapID,
		Status:      l.Status,
		PlayerCount: l.count(),
		MaxPlayers:  capacity,
		CreatedAt:   l.createdAt,
	}
	if l.Status == LobbyCountdown {
		info.Remaining = l.remaining
	}
	return info
}
