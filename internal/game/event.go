package game

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerMoved
	EventTypeBombPlaced
	EventTypeBombExploded
	EventTypePowerUpSpawned
	EventTypePowerUpCollected
	EventTypePlayerDamaged
	EventTypePlayerDied
	EventTypeGameOver
)

// Event is emitted by State after every committed mutation
type Event struct {
	Type    EventType
	Payload any // One of the *Payload structs below, matching Type
}

// Emitter receives events in commit order. It runs under the room lock.
type Emitter func(Event)

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypePlayerMoved:
		return "player_moved"
	case EventTypeBombPlaced:
		return "bomb_placed"
	case EventTypeBombExploded:
		return "bomb_exploded"
	case EventTypePowerUpSpawned:
		return "powerup_spawned"
	case EventTypePowerUpCollected:
		return "powerup_collected"
	case EventTypePlayerDamaged:
		return "player_damaged"
	case EventTypePlayerDied:
		return "player_died"
	case EventTypeGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// PlayerMovedPayload echoes an accepted move
type PlayerMovedPayload struct {
	PlayerID       string
	X, Y           int
	Direction      Direction
	SequenceNumber int64
}

// BombPlacedPayload describes a new bomb
type BombPlacedPayload struct {
	BombID   string
	PlayerID string
	GridX    int
	GridY    int
	Range    int
}

// BombExplodedPayload summarizes one explosion pass
type BombExplodedPayload struct {
	BombID          string
	Explosions      []Cell
	DestroyedBlocks []Cell
	DamagedPlayers  []string
	SpawnedPowerUps []PowerUp
}

// SpawnedPowerUp returns the first power-up dropped by the explosion, or nil
func (p BombExplodedPayload) SpawnedPowerUp() *PowerUp {
	if len(p.SpawnedPowerUps) == 0 {
		return nil
	}
	pu := p.SpawnedPowerUps[0]
	return &pu
}

// PowerUpSpawnedPayload announces a dropped power-up
type PowerUpSpawnedPayload struct {
	PowerUp PowerUp
}

// PowerUpCollectedPayload reports a pickup and the resulting stats
type PowerUpCollectedPayload struct {
	PlayerID  string
	PowerUpID string
	Type      PowerUpType
	NewStats  PlayerStats
}

// PlayerDamagedPayload reports a hit that left the player alive
type PlayerDamagedPayload struct {
	PlayerID string
	Lives    int
}

// PlayerDiedPayload reports an elimination
type PlayerDiedPayload struct {
	PlayerID string
}

// GameOverPayload carries the sole survivor, nil for a draw
type GameOverPayload struct {
	Winner *string
}
