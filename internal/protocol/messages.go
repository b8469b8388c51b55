package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bomberman-arena/internal/game"
)

// Server -> Client message types
const (
	TypeLobbyJoined        = "LOBBY_JOINED"
	TypePlayerJoined       = "PLAYER_JOINED"
	TypePlayerLeft         = "PLAYER_LEFT"
	TypeCountdownStart     = "COUNTDOWN_START"
	TypeCountdownTick      = "COUNTDOWN_TICK"
	TypeGameStarted        = "GAME_STARTED"
	TypePlayerMoved        = "PLAYER_MOVED"
	TypeBombPlaced         = "BOMB_PLACED"
	TypeBombExploded       = "BOMB_EXPLODED"
	TypePowerUpSpawned     = "POWERUP_SPAWNED"
	TypePowerUpCollected   = "POWERUP_COLLECTED"
	TypePlayerDamaged      = "PLAYER_DAMAGED"
	TypePlayerDied         = "PLAYER_DIED"
	TypePlayerDisconnected = "PLAYER_DISCONNECTED"
	TypeGameOver           = "GAME_OVER"
	TypeChatMessage        = "CHAT_MESSAGE"
	TypeError              = "ERROR"
)

// Now is the clock stamped on every outbound message, in unix milliseconds
var Now = defaultNow

func defaultNow() int64 { return time.Now().UnixMilli() }

// Message is one outbound frame. It marshals flat: payload fields sit
// next to "type" and "timestamp".
type Message struct {
	Type      string
	Timestamp int64
	Payload   any
}

// ErrReservedField is returned when a payload would shadow "type" or "timestamp"
var ErrReservedField = errors.New("payload field collides with envelope")

// MarshalJSON inlines the payload object
func (m Message) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if m.Payload != nil {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not an object: %w", m.Type, err)
		}
		for _, key := range []string{"type", "timestamp"} {
			if _, ok := fields[key]; ok {
				return nil, fmt.Errorf("%s payload defines %q: %w", m.Type, key, ErrReservedField)
			}
		}
	}

	typ, _ := json.Marshal(m.Type)
	ts, _ := json.Marshal(m.Timestamp)
	fields["type"] = typ
	fields["timestamp"] = ts
	return json.Marshal(fields)
}

func newMessage(typ string, payload any) Message {
	return Message{Type: typ, Timestamp: Now(), Payload: payload}
}

// Typed payloads for server -> client messages

// CellView is a grid coordinate on the wire
type CellView struct {
	GridX int `json:"gridX"`
	GridY int `json:"gridY"`
}

// PlayerView is the public state of one player
type PlayerView struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	GridX     int    `json:"gridX"`
	GridY     int    `json:"gridY"`
	Lives     int    `json:"lives"`
	Speed     int    `json:"speed"`
	MaxBombs  int    `json:"maxBombs"`
	BombRange int    `json:"bombRange"`
	Alive     bool   `json:"alive"`
}

// PowerUpView is a power-up on the wire
type PowerUpView struct {
	PowerUpID string           `json:"powerUpId"`
	Type      game.PowerUpType `json:"powerUpType"`
	GridX     int              `json:"gridX"`
	GridY     int              `json:"gridY"`
}

// MapView is the map section of GAME_STARTED
type MapView struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Grid   [][]int        `json:"grid"`
	Assets game.MapAssets `json:"assets"`
}

type LobbyJoinedPayload struct {
	PlayerID    string `json:"playerId"`
	LobbyID     string `json:"lobbyId"`
	MapID       int    `json:"mapId"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type PlayerJoinedPayload struct {
	PlayerID    string `json:"playerId"`
	Nickname    string `json:"nickname"`
	PlayerCount int    `json:"playerCount"`
}

type PlayerIDPayload struct {
	PlayerID string `json:"playerId"`
}

type CountdownStartPayload struct {
	Duration int `json:"duration"`
}

type CountdownTickPayload struct {
	Remaining int `json:"remaining"`
}

type GameStartedPayload struct {
	RoomID       string       `json:"roomId"`
	MapID        int          `json:"mapId"`
	Players      []PlayerView `json:"players"`
	YourPlayerID string       `json:"yourPlayerId"`
	Map          MapView      `json:"map"`
}

type PlayerMovedPayload struct {
	PlayerID       string         `json:"playerId"`
	X              int            `json:"x"`
	Y              int            `json:"y"`
	Direction      game.Direction `json:"direction"`
	SequenceNumber int64          `json:"sequenceNumber"`
}

type BombPlacedPayload struct {
	BombID   string `json:"bombId"`
	PlayerID string `json:"playerId"`
	GridX    int    `json:"gridX"`
	GridY    int    `json:"gridY"`
	Range    int    `json:"range"`
}

type BombExplodedPayload struct {
	BombID          string        `json:"bombId"`
	Explosions      []CellView    `json:"explosions"`
	DestroyedBlocks []CellView    `json:"destroyedBlocks"`
	DamagedPlayers  []string      `json:"damagedPlayers"`
	SpawnedPowerUp  *PowerUpView  `json:"spawnedPowerUp"`
	SpawnedPowerUps []PowerUpView `json:"spawnedPowerUps"`
}

type PowerUpCollectedPayload struct {
	PlayerID  string           `json:"playerId"`
	PowerUpID string           `json:"powerUpId"`
	Type      game.PowerUpType `json:"powerUpType"`
	NewStats  game.PlayerStats `json:"newStats"`
}

type PlayerDamagedPayload struct {
	PlayerID string `json:"playerId"`
	Lives    int    `json:"lives"`
}

type GameOverPayload struct {
	Winner *string `json:"winner"`
	Reason string  `json:"reason"`
}

type ChatMessagePayload struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

type ErrorPayload struct {
	ErrorCode Code   `json:"errorCode"`
	Message   string `json:"message"`
}
