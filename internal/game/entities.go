package game

import (
	"math/rand"
	"time"
)

// Bomb is a placed bomb waiting for its timer
type Bomb struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"ownerId"`
	GridX     int           `json:"gridX"`
	GridY     int           `json:"gridY"`
	Range     int           `json:"range"`
	Timer     time.Duration `json:"-"`
	TimerMs   int64         `json:"timerMs"`
	CreatedAt time.Time     `json:"createdAt"`
}

// PowerUpType enumerates the pickups
type PowerUpType string

const (
	PowerUpSpeed     PowerUpType = "SPEED"
	PowerUpBombCount PowerUpType = "BOMB_COUNT"
	PowerUpBombRange PowerUpType = "BOMB_RANGE"
)

var powerUpTypes = []PowerUpType{PowerUpSpeed, PowerUpBombCount, PowerUpBombRange}

// RandomPowerUpType picks one of the three types uniformly
func RandomPowerUpType(rng *rand.Rand) PowerUpType {
	return powerUpTypes[rng.Intn(len(powerUpTypes))]
}

// PowerUp lies on a floor cell until a player steps on it
type PowerUp struct {
	ID        string      `json:"id"`
	Type      PowerUpType `json:"type"`
	GridX     int         `json:"gridX"`
	GridY     int         `json:"gridY"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Apply bumps the matching stat, capped at the player's maximum
func (pu *PowerUp) Apply(p *Player) {
	switch pu.Type {
	case PowerUpSpeed:
		p.bump(&p.Speed)
	case PowerUpBombCount:
		p.bump(&p.MaxBombs)
	case PowerUpBombRange:
		p.bump(&p.BombRange)
	}
}
