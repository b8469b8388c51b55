package game

import "bomberman-arena/internal/config"

// Direction is a cardinal move direction
type Direction string

const (
	Up    Direction = "UP"
	Down  Direction = "DOWN"
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
)

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the unit step for d
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// PlayerInfo is a roster entry handed to the engine at initialization
type PlayerInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// PlayerStats are the stats exposed after a power-up pickup
type PlayerStats struct {
	Speed     int `json:"speed"`
	MaxBombs  int `json:"maxBombs"`
	BombRange int `json:"bombRange"`
	Lives     int `json:"lives"`
}

// Player is a combatant inside one room's simulation
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`

	// Pixel position; GridX/GridY are always floor(pixel / blockSize)
	X     int `json:"x"`
	Y     int `json:"y"`
	GridX int `json:"gridX"`
	GridY int `json:"gridY"`

	Lives       int  `json:"lives"`
	Speed       int  `json:"speed"`
	MaxBombs    int  `json:"maxBombs"`
	ActiveBombs int  `json:"activeBombs"`
	BombRange   int  `json:"bombRange"`
	Alive       bool `json:"alive"`

	LastSequence int64 `json:"lastSequence"`

	order   int // Join order, used for stable listings
	maxStat int
}

// NewPlayer creates a living player with the configured starting stats
func NewPlayer(info PlayerInfo, cfg config.GameConfig) *Player {
	p := &Player{
		ID:        info.ID,
		Nickname:  info.Nickname,
		Lives:     max(cfg.StartLives, 1),
		Speed:     cfg.StartSpeed,
		MaxBombs:  cfg.StartBombs,
		BombRange: cfg.StartRange,
		Alive:     true,
		maxStat:   max(cfg.MaxStat, 1),
	}
	p.Speed = clamp(p.Speed, 1, p.maxStat)
	p.MaxBombs = clamp(p.MaxBombs, 1, p.maxStat)
	p.BombRange = clamp(p.BombRange, 1, p.maxStat)
	return p
}

// SetPixel commits a pixel position and the cell it falls in
func (p *Player) SetPixel(x, y, blockSize int) {
	p.X = x
	p.Y = y
	p.GridX = floorDiv(x, blockSize)
	p.GridY = floorDiv(y, blockSize)
}

// PlaceAt puts the player at the top-left pixel of a cell
func (p *Player) PlaceAt(c Cell, blockSize int) {
	p.SetPixel(c.X*blockSize, c.Y*blockSize, blockSize)
}

// Damage removes one life. Returns true when that was the last one.
func (p *Player) Damage() (died bool) {
	if !p.Alive {
		return false
	}
	if p.Lives > 0 {
		p.Lives--
	}
	if p.Lives == 0 {
		p.Alive = false
		return true
	}
	return false
}

// Kill marks the player dead without touching lives (disconnect path)
func (p *Player) Kill() bool {
	if !p.Alive {
		return false
	}
	p.Alive = false
	return true
}

// CanPlaceBomb checks the active bomb budget
func (p *Player) CanPlaceBomb() bool {
	return p.Alive && p.ActiveBombs < p.MaxBombs
}

// Stats returns the current stat block
func (p *Player) Stats() PlayerStats {
	return PlayerStats{
		Speed:     p.Speed,
		MaxBombs:  p.MaxBombs,
		BombRange: p.BombRange,
		Lives:     p.Lives,
	}
}

func (p *Player) bump(stat *int) {
	*stat = clamp(*stat+1, 1, p.maxStat)
}

// floorDiv rounds toward negative infinity so that pixel -1 lands in cell -1
func floorDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	q := a / b
	if (a%b != 0) && (a < 0) {
		q--
	}
	return q
}
