package game

import (
	"errors"
	"fmt"
)

// CellType is the code stored in each grid cell
type CellType int

const (
	Floor     CellType = iota // Walkable
	Wall                      // Indestructible
	SoftBlock                 // Destroyed by blasts, may drop a power-up
)

// ErrEmptyGrid is returned when a layout has no rows or ragged rows
var ErrEmptyGrid = errors.New("grid must be a non-empty rectangle")

// Cell is a grid coordinate
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// cardinal directions in blast order: up, down, left, right
var cardinals = [4]Cell{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// Grid is a fixed-size 2D array of cell codes, indexed [y][x].
// Only DestroyBlock mutates it after construction.
type Grid struct {
	width  int
	height int
	cells  [][]CellType
}

// NewGrid creates a grid filled with floor
func NewGrid(width, height int) *Grid {
	cells := make([][]CellType, height)
	for y := range cells {
		cells[y] = make([]CellType, width)
	}
	return &Grid{width: width, height: height, cells: cells}
}

// GridFromRows builds a grid from raw cell codes
func GridFromRows(rows [][]int) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.width {
			return nil, ErrEmptyGrid
		}
		for x, code := range row {
			if code < int(Floor) || code > int(SoftBlock) {
				return nil, fmt.Errorf("cell (%d,%d): unknown code %d", x, y, code)
			}
			g.cells[y][x] = CellType(code)
		}
	}
	return g, nil
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x,y) lies inside the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// At returns the cell code; out-of-bounds reads as Wall
func (g *Grid) At(x, y int) CellType {
	if !g.InBounds(x, y) {
		return Wall
	}
	return g.cells[y][x]
}

// Set overwrites a cell. Used while loading maps only.
func (g *Grid) Set(x, y int, t CellType) {
	if g.InBounds(x, y) {
		g.cells[y][x] = t
	}
}

// IsWall reports an indestructible cell
func (g *Grid) IsWall(x, y int) bool {
	return g.InBounds(x, y) && g.cells[y][x] == Wall
}

// IsSoftBlock reports a destructible cell
func (g *Grid) IsSoftBlock(x, y int) bool {
	return g.InBounds(x, y) && g.cells[y][x] == SoftBlock
}

// IsFreeCell is true iff (x,y) is in bounds and neither wall nor block
func (g *Grid) IsFreeCell(x, y int) bool {
	return g.InBounds(x, y) && g.cells[y][x] == Floor
}

// DestroyBlock turns a soft block into floor. Walls are never removed.
func (g *Grid) DestroyBlock(x, y int) bool {
	if !g.IsSoftBlock(x, y) {
		return false
	}
	g.cells[y][x] = Floor
	return true
}

// CellsInBlastLine walks up to rng cells from the origin along (dx,dy).
// Out of bounds and walls stop the line (exclusive); the first soft block
// is included and then stops it. The origin itself is never part of the line.
func (g *Grid) CellsInBlastLine(originX, originY, dx, dy, rng int) []Cell {
	cells := make([]Cell, 0, max(rng, 0))
	for step := 1; step <= rng; step++ {
		x, y := originX+dx*step, originY+dy*step
		if !g.InBounds(x, y) {
			break
		}
		switch g.cells[y][x] {
		case Wall:
			return cells
		case SoftBlock:
			return append(cells, Cell{X: x, Y: y})
		}
		cells = append(cells, Cell{X: x, Y: y})
	}
	return cells
}

// BlastCells returns the deduplicated blast set of a bomb: the origin
// followed by the four cardinal lines.
func (g *Grid) BlastCells(originX, originY, rng int) []Cell {
	origin := Cell{X: originX, Y: originY}
	seen := map[Cell]bool{origin: true}
	cells := []Cell{origin}
	for _, d := range cardinals {
		for _, c := range g.CellsInBlastLine(originX, originY, d.X, d.Y, rng) {
			if !seen[c] {
				seen[c] = true
				cells = append(cells, c)
			}
		}
	}
	return cells
}

// FindNearestFreeCell runs a BFS over the 4-neighbourhood from the clamped
// (x,y) and returns the first free cell. The walk crosses walls and blocks so
// it terminates on any grid that has at least one free cell.
func (g *Grid) FindNearestFreeCell(x, y int) (Cell, bool) {
	start := Cell{X: clamp(x, 0, g.width-1), Y: clamp(y, 0, g.height-1)}

	visited := make([]bool, g.width*g.height)
	queue := make([]Cell, 0, g.width*g.height)
	queue = append(queue, start)
	visited[start.Y*g.width+start.X] = true

	for head := 0; head < len(queue); head++ {
		c := queue[head]
		if g.IsFreeCell(c.X, c.Y) {
			return c, true
		}
		for _, d := range cardinals {
			n := Cell{X: c.X + d.X, Y: c.Y + d.Y}
			if !g.InBounds(n.X, n.Y) || visited[n.Y*g.width+n.X] {
				continue
			}
			visited[n.Y*g.width+n.X] = true
			queue = append(queue, n)
		}
	}
	return Cell{}, false
}

// ClearArea turns every soft block in the (2r+1)² square around (cx,cy) into floor
func (g *Grid) ClearArea(cx, cy, radius int) int {
	cleared := 0
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if g.DestroyBlock(x, y) {
				cleared++
			}
		}
	}
	return cleared
}

// Rows returns a deep copy of the cell codes for serialization
func (g *Grid) Rows() [][]int {
	rows := make([][]int, g.height)
	for y := range g.cells {
		rows[y] = make([]int, g.width)
		for x, c := range g.cells[y] {
			rows[y][x] = int(c)
		}
	}
	return rows
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.width, g.height)
	for y := range g.cells {
		copy(c.cells[y], g.cells[y])
	}
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
