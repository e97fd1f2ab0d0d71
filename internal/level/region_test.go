package level

import (
	"testing"

	"github.com/dtoblo/swtiles/internal/manifest"
)

func lShapeConfig() *Config {
	// S4: L-shape {(0,0),(0,1),(1,0),(5,5)}.
	tiles := map[RowCol]manifest.Placement{
		{0, 0}: {Path: "00.png"},
		{0, 1}: {Path: "01.png"},
		{1, 0}: {Path: "10.png"},
		{5, 5}: {Path: "55.png"},
	}
	return &Config{GridRows: 10, GridCols: 10, Tiles: tiles}
}

func TestSelect_UnpinnedPicksDenserWindow(t *testing.T) {
	cfg := lShapeConfig()

	got := Select(cfg, 3, nil)

	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	for rc := range got {
		if rc.Row == 5 && rc.Col == 5 {
			t.Fatal("selected the isolated (5,5) cell instead of the dense 2x2 block")
		}
	}
}

func TestSelect_PinnedAnchor(t *testing.T) {
	cfg := lShapeConfig()

	got := Select(cfg, 2, &RowCol{Row: 5, Col: 5})

	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (only (5,5) populated in that window)", len(got))
	}
	if _, ok := got[RowCol{5, 5}]; !ok {
		t.Error("expected (5,5) to be selected")
	}
}

func TestSelect_ClipsToGrid(t *testing.T) {
	tiles := map[RowCol]manifest.Placement{
		{9, 9}: {Path: "corner.png"},
	}
	cfg := &Config{GridRows: 10, GridCols: 10, Tiles: tiles}

	got := Select(cfg, 4, &RowCol{Row: 9, Col: 9})

	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
}

func TestSelect_DoesNotMutateGridDimensions(t *testing.T) {
	cfg := lShapeConfig()
	Select(cfg, 2, nil)

	if cfg.GridRows != 10 || cfg.GridCols != 10 {
		t.Error("Select must not mutate GridRows/GridCols")
	}
}
