package game

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"bomberman-arena/internal/config"
)

// ErrNoFreeCell is returned when a spawn cannot be resolved
var ErrNoFreeCell = errors.New("map has no free cell")

// Engine owns the entities of one room: players, bombs, power-ups and the
// mutable grid. It is not locked; the owning room serializes access.
type Engine struct {
	cfg    config.GameConfig
	mapDef *MapDefinition
	grid   *Grid

	players  map[string]*Player
	bombs    map[string]*Bomb
	powerUps map[string]*PowerUp

	// Cell indexes, kept in step with the maps above
	bombAt    map[Cell]string
	powerUpAt map[Cell]string

	newID func() string
	now   func() time.Time
}

// NewEngine creates an engine over a fresh copy of the map's grid
func NewEngine(cfg config.GameConfig, mapDef *MapDefinition) (*Engine, error) {
	if mapDef == nil {
		return nil, fmt.Errorf("%w: nil map", ErrUnknownMap)
	}
	grid, err := mapDef.Grid()
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", mapDef.ID, err)
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = config.DefaultGame().BlockSize
	}

	return &Engine{
		cfg:       cfg,
		mapDef:    mapDef,
		grid:      grid,
		players:   make(map[string]*Player),
		bombs:     make(map[string]*Bomb),
		powerUps:  make(map[string]*PowerUp),
		bombAt:    make(map[Cell]string),
		powerUpAt: make(map[Cell]string),
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// Initialize places the roster on the map's spawn points. Player i takes
// spawn i (wrapping), resolved to the nearest free cell; soft blocks around
// every spawn are then cleared.
func (e *Engine) Initialize(roster []PlayerInfo) error {
	spawns := e.mapDef.Spawns
	if len(spawns) == 0 {
		spawns = []Cell{{X: 1, Y: 1}}
	}

	resolved := make([]Cell, 0, len(roster))
	for i, info := range roster {
		want := spawns[i%len(spawns)]
		cell, ok := e.grid.FindNearestFreeCell(want.X, want.Y)
		if !ok {
			return fmt.Errorf("spawn for %s: %w", info.ID, ErrNoFreeCell)
		}

		p := NewPlayer(info, e.cfg)
		p.order = i
		p.PlaceAt(cell, e.cfg.BlockSize)
		e.players[p.ID] = p
		resolved = append(resolved, cell)
	}

	for _, c := range resolved {
		e.grid.ClearArea(c.X, c.Y, e.cfg.SpawnClear)
	}
	return nil
}

// Config returns the rule set the engine was built with
func (e *Engine) Config() config.GameConfig { return e.cfg }

// Map returns the static map definition
func (e *Engine) Map() *MapDefinition { return e.mapDef }

// Grid returns the live grid
func (e *Engine) Grid() *Grid { return e.grid }

// Player looks up a player by id
func (e *Engine) Player(id string) (*Player, bool) {
	p, ok := e.players[id]
	return p, ok
}

// Players returns every player, dead or alive, in join order
func (e *Engine) Players() []*Player {
	list := make([]*Player, 0, len(e.players))
	for _, p := range e.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })
	return list
}

// AlivePlayers returns the living players in join order
func (e *Engine) AlivePlayers() []*Player {
	var alive []*Player
	for _, p := range e.Players() {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// Bomb looks up a bomb by id
func (e *Engine) Bomb(id string) (*Bomb, bool) {
	b, ok := e.bombs[id]
	return b, ok
}

// BombAt returns the bomb occupying a cell
func (e *Engine) BombAt(x, y int) (*Bomb, bool) {
	id, ok := e.bombAt[Cell{X: x, Y: y}]
	if !ok {
		return nil, false
	}
	return e.bombs[id], true
}

// BombCount returns the number of live bombs
func (e *Engine) BombCount() int { return len(e.bombs) }

// PowerUpAt returns the power-up lying on a cell
func (e *Engine) PowerUpAt(x, y int) (*PowerUp, bool) {
	id, ok := e.powerUpAt[Cell{X: x, Y: y}]
	if !ok {
		return nil, false
	}
	return e.powerUps[id], true
}

// IsValidPosition reports whether a player may stand on the cell
func (e *Engine) IsValidPosition(gridX, gridY int) bool {
	return e.grid.IsFreeCell(gridX, gridY)
}

// RemovePlayer marks the player dead. The entry stays so the roster and
// any bombs they own keep resolving.
func (e *Engine) RemovePlayer(id string) bool {
	p, ok := e.players[id]
	if !ok {
		return false
	}
	return p.Kill()
}

func (e *Engine) addBomb(owner *Player) *Bomb {
	b := &Bomb{
		ID:        e.newID(),
		OwnerID:   owner.ID,
		GridX:     owner.GridX,
		GridY:     owner.GridY,
		Range:     owner.BombRange,
		Timer:     e.cfg.BombTimer,
		TimerMs:   e.cfg.BombTimer.Milliseconds(),
		CreatedAt: e.now(),
	}
	e.bombs[b.ID] = b
	e.bombAt[Cell{X: b.GridX, Y: b.GridY}] = b.ID
	return b
}

func (e *Engine) removeBomb(b *Bomb) {
	delete(e.bombs, b.ID)
	c := Cell{X: b.GridX, Y: b.GridY}
	if e.bombAt[c] == b.ID {
		delete(e.bombAt, c)
	}
}

func (e *Engine) addPowerUp(c Cell, t PowerUpType) *PowerUp {
	// A cell holds one power-up; a newer drop replaces the older one
	if old, ok := e.PowerUpAt(c.X, c.Y); ok {
		e.removePowerUp(old)
	}
	pu := &PowerUp{
		ID:        e.newID(),
		Type:      t,
		GridX:     c.X,
		GridY:     c.Y,
		CreatedAt: e.now(),
	}
	e.powerUps[pu.ID] = pu
	e.powerUpAt[c] = pu.ID
	return pu
}

func (e *Engine) removePowerUp(pu *PowerUp) {
	delete(e.powerUps, pu.ID)
	c := Cell{X: pu.GridX, Y: pu.GridY}
	if e.powerUpAt[c] == pu.ID {
		delete(e.powerUpAt, c)
	}
}
