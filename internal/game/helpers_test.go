package game

import (
	"strings"
	"testing"
	"time"

	"bomberman-arena/internal/config"
)

// manualTimer is a timer that fires only when the test says so
type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the i-th scheduled callback if it is still armed
func (s *manualScheduler) fire(i int) {
	t := s.timers[i]
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.f()
}

func (s *manualScheduler) pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type recorder struct {
	events []Event
}

func (r *recorder) emit(e Event) { r.events = append(r.events, e) }

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() config.GameConfig {
	cfg := config.DefaultGame()
	cfg.PowerUpChance = 0
	return cfg
}

// openMap returns an 11x11 map with border walls and a floor interior.
// blocks lists extra soft blocks, walls extra walls.
func openMap(blocks, walls []Cell) *MapDefinition {
	rows := make([][]byte, 11)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", 11))
		for x := range rows[y] {
			if x == 0 || y == 0 || x == 10 || y == 10 {
				rows[y][x] = '#'
			}
		}
	}
	for _, c := range blocks {
		rows[c.Y][c.X] = '+'
	}
	for _, c := range walls {
		rows[c.Y][c.X] = '#'
	}
	layout := make([]string, len(rows))
	for i, r := range rows {
		layout[i] = string(r)
	}
	return &MapDefinition{
		ID:     99,
		Name:   "test",
		Layout: layout,
		Spawns: []Cell{{1, 1}, {9, 9}, {9, 1}, {1, 9}},
	}
}

type fixture struct {
	engine *Engine
	state  *State
	sched  *manualScheduler
	rec    *recorder
}

func newFixture(t *testing.T, cfg config.GameConfig, def *MapDefinition, ids ...string) *fixture {
	t.Helper()

	engine, err := NewEngine(cfg, def)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	roster := make([]PlayerInfo, len(ids))
	for i, id := range ids {
		roster[i] = PlayerInfo{ID: id, Nickname: strings.ToUpper(id)}
	}
	if err := engine.Initialize(roster); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	f := &fixture{engine: engine, sched: &manualScheduler{}, rec: &recorder{}}
	f.state = NewState(engine, f.sched, f.rec.emit, nil)
	return f
}

// put moves a player to the top-left pixel of a cell
func (f *fixture) put(t *testing.T, id string, x, y int) *Player {
	t.Helper()
	p, ok := f.engine.Player(id)
	if !ok {
		t.Fatalf("player %s not found", id)
	}
	p.PlaceAt(Cell{X: x, Y: y}, f.engine.Config().BlockSize)
	return p
}
