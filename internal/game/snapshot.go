package game

import "sort"

// FullState is a deep copy of a room's simulation for resync clients.
// Value types only, so mutating it never reaches the engine.
type FullState struct {
	MapID    int       `json:"mapId"`
	Players  []Player  `json:"players"`
	Bombs    []Bomb    `json:"bombs"`
	PowerUps []PowerUp `json:"powerUps"`
	Grid     [][]int   `json:"grid"`
}

// SerializeFullState snapshots every entity and the grid
func (e *Engine) SerializeFullState() FullState {
	state := FullState{
		MapID:    e.mapDef.ID,
		Players:  make([]Player, 0, len(e.players)),
		Bombs:    make([]Bomb, 0, len(e.bombs)),
		PowerUps: make([]PowerUp, 0, len(e.powerUps)),
		Grid:     e.grid.Rows(),
	}

	for _, p := range e.Players() {
		state.Players = append(state.Players, *p)
	}
	for _, b := range e.bombs {
		state.Bombs = append(state.Bombs, *b)
	}
	for _, pu := range e.powerUps {
		state.PowerUps = append(state.PowerUps, *pu)
	}

	// Map iteration order is random; keep snapshots stable
	sort.Slice(state.Bombs, func(i, j int) bool {
		return state.Bombs[i].CreatedAt.Before(state.Bombs[j].CreatedAt) ||
			(state.Bombs[i].CreatedAt.Equal(state.Bombs[j].CreatedAt) && state.Bombs[i].ID < state.Bombs[j].ID)
	})
	sort.Slice(state.PowerUps, func(i, j int) bool {
		a, b := state.PowerUps[i], state.PowerUps[j]
		if a.GridY != b.GridY {
			return a.GridY < b.GridY
		}
		return a.GridX < b.GridX
	})

	return state
}
