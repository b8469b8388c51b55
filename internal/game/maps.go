package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ErrUnknownMap is returned for ids outside the catalog
var ErrUnknownMap = errors.New("unknown map")

// RandomMap asks the lobby to pick any catalog map at promotion time
const RandomMap = 0

// MapAssets are client-side asset paths shipped with GAME_STARTED
type MapAssets struct {
	Floor      string `json:"floor"`
	Wall       string `json:"wall"`
	Block      string `json:"block"`
	Background string `json:"background"`
}

// MapDefinition is a static map layout.
// Layout characters: '#' wall, '+' soft block, '.' floor.
type MapDefinition struct {
	ID     int
	Name   string
	Layout []string
	Spawns []Cell // Configured spawn points, resolved through FindNearestFreeCell
	Assets MapAssets
}

var cornerSpawns = []Cell{{1, 1}, {13, 11}, {13, 1}, {1, 11}}

var catalog = map[int]*MapDefinition{
	1: {
		ID:   1,
		Name: "Classic",
		Layout: []string{
			"###############",
			"#..+++++++++..#",
			"#.#+#+#+#+#+#.#",
			"#+++++++++++++#",
			"#+#+#+#+#+#+#+#",
			"#+++++++++++++#",
			"#+#+#+#+#+#+#+#",
			"#+++++++++++++#",
			"#+#+#+#+#+#+#+#",
			"#+++++++++++++#",
			"#.#+#+#+#+#+#.#",
			"#..+++++++++..#",
			"###############",
		},
		Spawns: cornerSpawns,
		Assets: assetsFor("classic"),
	},
	2: {
		ID:   2,
		Name: "Open Field",
		Layout: []string{
			"###############",
			"#...+...+.....#",
			"#.#+#.#+#.#+#.#",
			"#.+...+...+...#",
			"#+#.#+#.#+#.#+#",
			"#...+...+...+.#",
			"#.#+#.#+#.#+#.#",
			"#.+...+...+...#",
			"#+#.#+#.#+#.#+#",
			"#...+...+...+.#",
			"#.#+#.#+#.#+#.#",
			"#.....+...+...#",
			"###############",
		},
		Spawns: cornerSpawns,
		Assets: assetsFor("field"),
	},
	3: {
		ID:   3,
		Name: "Fortress",
		Layout: []string{
			"###############",
			"#..+++++++++..#",
			"#.#+#+#+#+#+#.#",
			"#+++++++++++++#",
			"#+#+###+###+#+#",
			"#+++#.....#+++#",
			"#+#++.#+#.++#+#",
			"#+++#.....#+++#",
			"#+#+###+###+#+#",
			"#+++++++++++++#",
			"#.#+#+#+#+#+#.#",
			"#..+++++++++..#",
			"###############",
		},
		Spawns: cornerSpawns,
		Assets: assetsFor("fortress"),
	},
	4: {
		ID:   4,
		Name: "Crossroads",
		Layout: []string{
			"###############",
			"#..+...+...+..#",
			"#.#+#.#+#.#+#.#",
			"#+++++++++++++#",
			"#.#+#.#+#.#+#.#",
			"#..+...+...+..#",
			"#+#+#+#+#+#+#+#",
			"#..+...+...+..#",
			"#.#+#.#+#.#+#.#",
			"#+++++++++++++#",
			"#.#+#.#+#.#+#.#",
			"#..+...+...+..#",
			"###############",
		},
		Spawns: cornerSpawns,
		Assets: assetsFor("crossroads"),
	},
}

func assetsFor(theme string) MapAssets {
	base := "/assets/maps/" + theme + "/"
	return MapAssets{
		Floor:      base + "floor.png",
		Wall:       base + "wall.png",
		Block:      base + "block.png",
		Background: base + "background.png",
	}
}

// MapIDs returns the catalog ids in ascending order
func MapIDs() []int {
	ids := make([]int, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LookupMap returns the definition for id
func LookupMap(id int) (*MapDefinition, error) {
	def, ok := catalog[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMap, id)
	}
	return def, nil
}

// LoadMap returns the definition for id and a freshly parsed grid
func LoadMap(id int) (*MapDefinition, *Grid, error) {
	def, err := LookupMap(id)
	if err != nil {
		return nil, nil, err
	}
	grid, err := def.Grid()
	if err != nil {
		return nil, nil, fmt.Errorf("map %d: %w", id, err)
	}
	return def, grid, nil
}

// ValidMapID reports whether id may be requested by a client
func ValidMapID(id int) bool {
	if id == RandomMap {
		return true
	}
	_, ok := catalog[id]
	return ok
}

// RandomMapID picks a catalog id uniformly
func RandomMapID(rng *rand.Rand) int {
	ids := MapIDs()
	return ids[rng.Intn(len(ids))]
}

// Grid parses the layout into a fresh mutable grid
func (m *MapDefinition) Grid() (*Grid, error) {
	return ParseLayout(m.Layout)
}

// ParseLayout converts layout strings into a grid
func ParseLayout(layout []string) (*Grid, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	g := NewGrid(len(layout[0]), len(layout))
	for y, row := range layout {
		if len(row) != g.Width() {
			return nil, ErrEmptyGrid
		}
		for x, ch := range row {
			switch ch {
			case '#':
				g.Set(x, y, Wall)
			case '+':
				g.Set(x, y, SoftBlock)
			case '.':
				g.Set(x, y, Floor)
			default:
				return nil, fmt.Errorf("layout (%d,%d): unknown tile %q", x, y, ch)
			}
		}
	}
	return g, nil
}
