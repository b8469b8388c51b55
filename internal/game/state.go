package game

import (
	"math/rand"
	"time"
)

// Rejection explains why an intent was not applied. Empty means accepted.
type Rejection string

const (
	Accepted        Rejection = ""
	RejectStale     Rejection = "stale"
	RejectUnknown   Rejection = "unknown_player"
	RejectDead      Rejection = "dead"
	RejectBlocked   Rejection = "blocked"
	RejectBombLimit Rejection = "bomb_limit"
	RejectOccupied  Rejection = "cell_occupied"
	RejectGameOver  Rejection = "game_over"
)

// State is the authoritative state machine of one room. Every mutation of
// players, bombs, power-ups and the grid goes through it. It is not locked:
// the owning room must serialize calls, including scheduler callbacks.
type State struct {
	engine *Engine
	sched  Scheduler
	emit   Emitter
	rng    *rand.Rand

	timers map[string]Timer // Pending explosions by bomb id
	over   bool
}

// NewState wires an initialized engine to a scheduler and an emitter
func NewState(engine *Engine, sched Scheduler, emit Emitter, rng *rand.Rand) *State {
	if sched == nil {
		sched = RealScheduler{}
	}
	if emit == nil {
		emit = func(Event) {}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &State{
		engine: engine,
		sched:  sched,
		emit:   emit,
		rng:    rng,
		timers: make(map[string]Timer),
	}
}

// Engine exposes the underlying entity store for reads
func (s *State) Engine() *Engine { return s.engine }

// Over reports whether the win condition has fired or the state was stopped
func (s *State) Over() bool { return s.over }

// PendingExplosions returns the number of armed bomb timers
func (s *State) PendingExplosions() int { return len(s.timers) }

// ValidatePlayerMove applies a move intent and reports whether it was accepted
func (s *State) ValidatePlayerMove(playerID string, dir Direction, seq int64) bool {
	return s.ApplyMove(playerID, dir, seq) == Accepted
}

// ApplyMove is ValidatePlayerMove with the rejection reason.
// Reject-or-commit: a rejected move leaves position and sequence untouched.
func (s *State) ApplyMove(playerID string, dir Direction, seq int64) Rejection {
	if s.over {
		return RejectGameOver
	}

	p, ok := s.engine.Player(playerID)
	if ok && seq <= p.LastSequence {
		return RejectStale
	}
	if !ok {
		return RejectUnknown
	}
	if !p.Alive {
		return RejectDead
	}

	dx, dy := dir.Delta()
	if dx == 0 && dy == 0 {
		return RejectBlocked
	}

	blockSize := s.engine.cfg.BlockSize
	nx := p.X + dx*p.Speed
	ny := p.Y + dy*p.Speed
	if !s.engine.IsValidPosition(floorDiv(nx, blockSize), floorDiv(ny, blockSize)) {
		return RejectBlocked
	}

	p.SetPixel(nx, ny, blockSize)
	p.LastSequence = seq

	s.emit(Event{Type: EventTypePlayerMoved, Payload: PlayerMovedPayload{
		PlayerID:       p.ID,
		X:              p.X,
		Y:              p.Y,
		Direction:      dir,
		SequenceNumber: seq,
	}})

	s.checkPowerUpCollection(p)
	return Accepted
}

// ValidateBombPlacement drops a bomb on the player's cell if allowed
func (s *State) ValidateBombPlacement(playerID string) bool {
	return s.ApplyBombPlacement(playerID) == Accepted
}

// ApplyBombPlacement is ValidateBombPlacement with the rejection reason
func (s *State) ApplyBombPlacement(playerID string) Rejection {
	if s.over {
		return RejectGameOver
	}

	p, ok := s.engine.Player(playerID)
	if !ok {
		return RejectUnknown
	}
	if !p.Alive {
		return RejectDead
	}
	if !p.CanPlaceBomb() {
		return RejectBombLimit
	}
	if _, taken := s.engine.BombAt(p.GridX, p.GridY); taken {
		return RejectOccupied
	}

	b := s.engine.addBomb(p)
	p.ActiveBombs++

	s.emit(Event{Type: EventTypeBombPlaced, Payload: BombPlacedPayload{
		BombID:   b.ID,
		PlayerID: p.ID,
		GridX:    b.GridX,
		GridY:    b.GridY,
		Range:    b.Range,
	}})

	bombID := b.ID
	s.timers[bombID] = s.sched.AfterFunc(b.Timer, func() {
		s.ProcessBombExplosion(bombID)
	})
	return Accepted
}

// ProcessBombExplosion resolves one bomb. Missing bombs and finished games
// are a no-op, so a duplicate callback does nothing.
func (s *State) ProcessBombExplosion(bombID string) {
	if s.over {
		return
	}
	b, ok := s.engine.Bomb(bombID)
	if !ok {
		return
	}
	delete(s.timers, bombID)

	grid := s.engine.grid
	cfg := s.engine.cfg
	blast := grid.BlastCells(b.GridX, b.GridY, b.Range)

	result := BombExplodedPayload{
		BombID:          b.ID,
		Explosions:      blast,
		DestroyedBlocks: []Cell{},
		DamagedPlayers:  []string{},
		SpawnedPowerUps: []PowerUp{},
	}

	for _, c := range blast {
		if !grid.DestroyBlock(c.X, c.Y) {
			continue
		}
		result.DestroyedBlocks = append(result.DestroyedBlocks, c)

		if s.rng.Float64() < cfg.PowerUpChance {
			pu := s.engine.addPowerUp(c, RandomPowerUpType(s.rng))
			result.SpawnedPowerUps = append(result.SpawnedPowerUps, *pu)
			s.emit(Event{Type: EventTypePowerUpSpawned, Payload: PowerUpSpawnedPayload{PowerUp: *pu}})
		}
	}

	// One life per player per explosion, however many blast cells they touch
	inBlast := make(map[Cell]bool, len(blast))
	for _, c := range blast {
		inBlast[c] = true
	}
	for _, p := range s.engine.AlivePlayers() {
		if !inBlast[Cell{X: p.GridX, Y: p.GridY}] {
			continue
		}
		result.DamagedPlayers = append(result.DamagedPlayers, p.ID)
		if p.Damage() {
			s.emit(Event{Type: EventTypePlayerDied, Payload: PlayerDiedPayload{PlayerID: p.ID}})
		} else {
			s.emit(Event{Type: EventTypePlayerDamaged, Payload: PlayerDamagedPayload{PlayerID: p.ID, Lives: p.Lives}})
		}
	}

	s.engine.removeBomb(b)
	if owner, ok := s.engine.Player(b.OwnerID); ok && owner.ActiveBombs > 0 {
		owner.ActiveBombs--
	}

	s.emit(Event{Type: EventTypeBombExploded, Payload: result})
	s.checkWinCondition()
}

// RemovePlayer eliminates a player outside of combat (disconnect).
// It goes through the same win check as an explosion.
func (s *State) RemovePlayer(playerID string) bool {
	changed := s.engine.RemovePlayer(playerID)
	s.checkWinCondition()
	return changed
}

// Stop latches the state as over and cancels every armed bomb
func (s *State) Stop() {
	s.over = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *State) checkPowerUpCollection(p *Player) {
	pu, ok := s.engine.PowerUpAt(p.GridX, p.GridY)
	if !ok {
		return
	}
	pu.Apply(p)
	s.engine.removePowerUp(pu)

	s.emit(Event{Type: EventTypePowerUpCollected, Payload: PowerUpCollectedPayload{
		PlayerID:  p.ID,
		PowerUpID: pu.ID,
		Type:      pu.Type,
		NewStats:  p.Stats(),
	}})
}

func (s *State) checkWinCondition() {
	if s.over {
		return
	}
	alive := s.engine.AlivePlayers()
	if len(alive) > 1 {
		return
	}
	s.over = true

	var winner *string
	if len(alive) == 1 {
		id := alive[0].ID
		winner = &id
	}
	s.emit(Event{Type: EventTypeGameOver, Payload: GameOverPayload{Winner: winner}})
}
