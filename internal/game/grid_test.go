package game

import (
	"reflect"
	"testing"
)

func mustLayout(t *testing.T, layout ...string) *Grid {
	t.Helper()
	g, err := ParseLayout(layout)
	if err != nil {
		t.Fatalf("ParseLayout failed: %v", err)
	}
	return g
}

func TestCellsInBlastLine(t *testing.T) {
	g := mustLayout(t,
		"#######",
		"#..+..#",
		"#.....#",
		"#.#...#",
		"#######",
	)

	tests := []struct {
		name   string
		x, y   int
		dx, dy int
		rng    int
		want   []Cell
	}{
		{"stops before wall", 1, 1, 0, -1, 3, []Cell{}},
		{"includes soft block then stops", 1, 1, 1, 0, 5, []Cell{{2, 1}, {3, 1}}},
		{"limited by range", 4, 2, 1, 0, 1, []Cell{{5, 2}}},
		{"range reaches border", 4, 2, 1, 0, 9, []Cell{{5, 2}}},
		{"interior wall exclusive", 2, 1, 0, 1, 4, []Cell{{2, 2}}},
		{"zero range", 3, 2, 1, 0, 0, []Cell{}},
		{"negative range", 3, 2, 1, 0, -2, []Cell{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.CellsInBlastLine(tt.x, tt.y, tt.dx, tt.dy, tt.rng)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// Every line respects range and bounds and only its last cell may be a block
func TestBlastLineTerminationAllCells(t *testing.T) {
	for _, id := range MapIDs() {
		_, g, err := LoadMap(id)
		if err != nil {
			t.Fatalf("LoadMap(%d) failed: %v", id, err)
		}
		for y := 0; y < g.Height(); y++ {
			for x := 0; x < g.Width(); x++ {
				for _, d := range cardinals {
					for r := 1; r <= 5; r++ {
						line := g.CellsInBlastLine(x, y, d.X, d.Y, r)
						if len(line) > r {
							t.Fatalf("map %d (%d,%d) r=%d: %d cells", id, x, y, r, len(line))
						}
						for i, c := range line {
							if !g.InBounds(c.X, c.Y) {
								t.Fatalf("map %d: out of bounds cell %v", id, c)
							}
							if g.IsWall(c.X, c.Y) {
								t.Fatalf("map %d: wall %v in blast line", id, c)
							}
							if g.IsSoftBlock(c.X, c.Y) && i != len(line)-1 {
								t.Fatalf("map %d: blast continued past block %v", id, c)
							}
						}
					}
				}
			}
		}
	}
}

func TestBlastCellsOrderAndDedup(t *testing.T) {
	g := NewGrid(5, 5)
	got := g.BlastCells(2, 2, 1)
	want := []Cell{{2, 2}, {2, 1}, {2, 3}, {1, 2}, {3, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	seen := map[Cell]bool{}
	for _, c := range g.BlastCells(2, 2, 4) {
		if seen[c] {
			t.Errorf("Duplicate blast cell %v", c)
		}
		seen[c] = true
	}
}

func TestDestroyBlock(t *testing.T) {
	g := mustLayout(t, "#+.")

	if g.DestroyBlock(0, 0) {
		t.Error("Walls must never be destroyed")
	}
	if !g.IsWall(0, 0) {
		t.Error("Wall changed after DestroyBlock")
	}
	if !g.DestroyBlock(1, 0) {
		t.Error("Expected soft block to be destroyed")
	}
	if g.At(1, 0) != Floor {
		t.Errorf("Expected floor, got %d", g.At(1, 0))
	}
	if g.DestroyBlock(2, 0) {
		t.Error("Floor is not destroyable")
	}
	if g.DestroyBlock(7, 7) {
		t.Error("Out of bounds is not destroyable")
	}
}

func TestIsFreeCell(t *testing.T) {
	g := mustLayout(t, "#+.")

	if g.IsFreeCell(0, 0) || g.IsFreeCell(1, 0) {
		t.Error("Wall and block must not be free")
	}
	if !g.IsFreeCell(2, 0) {
		t.Error("Floor must be free")
	}
	if g.IsFreeCell(-1, 0) || g.IsFreeCell(3, 0) {
		t.Error("Out of bounds must not be free")
	}
	if g.At(-1, 0) != Wall {
		t.Error("Out of bounds should read as wall")
	}
}

func TestFindNearestFreeCell(t *testing.T) {
	g := mustLayout(t,
		"#####",
		"#+++#",
		"#+++#",
		"#++.#",
		"#####",
	)

	tests := []struct {
		name string
		x, y int
		want Cell
	}{
		{"already free", 3, 3, Cell{3, 3}},
		{"through blocks", 1, 1, Cell{3, 3}},
		{"clamped from outside", 40, 40, Cell{3, 3}},
		{"negative clamps", -5, -5, Cell{3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.FindNearestFreeCell(tt.x, tt.y)
			if !ok {
				t.Fatal("Expected a free cell")
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	full := mustLayout(t, "###", "#+#", "###")
	if _, ok := full.FindNearestFreeCell(1, 1); ok {
		t.Error("Expected no free cell on a map without floor")
	}
}

func TestClearArea(t *testing.T) {
	g := mustLayout(t,
		"#####",
		"#+++#",
		"#+++#",
		"#+++#",
		"#####",
	)

	if n := g.ClearArea(1, 1, 1); n != 4 {
		t.Errorf("Expected 4 cleared blocks, got %d", n)
	}
	for _, c := range []Cell{{1, 1}, {2, 1}, {1, 2}, {2, 2}} {
		if !g.IsFreeCell(c.X, c.Y) {
			t.Errorf("Expected %v cleared", c)
		}
	}
	if !g.IsSoftBlock(3, 3) {
		t.Error("Block outside the area was cleared")
	}
	if !g.IsWall(0, 0) {
		t.Error("Wall cleared by ClearArea")
	}
}

func TestRowsIsDeepCopy(t *testing.T) {
	g := mustLayout(t, "#.+")
	rows := g.Rows()
	rows[0][1] = int(Wall)

	if g.At(1, 0) != Floor {
		t.Error("Mutating Rows() changed the grid")
	}
	if !reflect.DeepEqual(g.Rows(), [][]int{{1, 0, 2}}) {
		t.Errorf("Unexpected rows %v", g.Rows())
	}
}

func TestGridFromRows(t *testing.T) {
	if _, err := GridFromRows(nil); err == nil {
		t.Error("Expected error for empty rows")
	}
	if _, err := GridFromRows([][]int{{0, 1}, {0}}); err == nil {
		t.Error("Expected error for ragged rows")
	}
	if _, err := GridFromRows([][]int{{0, 7}}); err == nil {
		t.Error("Expected error for unknown cell code")
	}

	g, err := GridFromRows([][]int{{1, 0}, {2, 0}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !g.IsSoftBlock(0, 1) || !g.IsWall(0, 0) {
		t.Error("Cells not loaded")
	}
	c := g.Clone()
	c.DestroyBlock(0, 1)
	if !g.IsSoftBlock(0, 1) {
		t.Error("Clone shares storage with the original")
	}
}
