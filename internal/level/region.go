package level

import (
	"math"

	"github.com/dtoblo/swtiles/internal/manifest"
)

// Select implements the dense-region selection used by test-subset mode
// (§4.2). When anchor is non-nil, the caller pins the window's top-left
// corner; otherwise the window position maximizing populated-cell count is
// found by sliding across the bounding box of populated cells, with ties
// broken by the lowest (row, col) and early termination once any window
// reaches n.
//
// The returned map never mutates cfg; it is meant to replace cfg.Tiles when
// test mode is active. Selection does not change GridCols/GridRows.
func Select(cfg *Config, n int, anchor *RowCol) map[RowCol]manifest.Placement {
	if n <= 0 || len(cfg.Tiles) == 0 {
		return map[RowCol]manifest.Placement{}
	}

	s := int(math.Ceil(math.Sqrt(float64(n))))

	var windowRow, windowCol int
	if anchor != nil {
		windowRow, windowCol = anchor.Row, anchor.Col
	} else {
		windowRow, windowCol = bestWindow(cfg.Tiles, s, n)
	}

	return collectWindow(cfg, windowRow, windowCol, s, n)
}

// bestWindow scans the bounding box of populated cells in row-major order,
// returning the top-left corner of the s×s window containing the most
// placements. Ties keep the first (lowest row, then col) window found;
// scanning stops as soon as a window reaches n.
func bestWindow(tiles map[RowCol]manifest.Placement, s, n int) (row, col int) {
	minRow, maxRow, minCol, maxCol := boundingBox(tiles)

	bestCount := -1
	bestRow, bestCol := minRow, minCol

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			count := countInWindow(tiles, r, c, s)
			if count > bestCount {
				bestCount, bestRow, bestCol = count, r, c
			}
			if bestCount >= n {
				return bestRow, bestCol
			}
		}
	}
	return bestRow, bestCol
}

func boundingBox(tiles map[RowCol]manifest.Placement) (minRow, maxRow, minCol, maxCol int) {
	first := true
	for rc := range tiles {
		if first {
			minRow, maxRow, minCol, maxCol = rc.Row, rc.Row, rc.Col, rc.Col
			first = false
			continue
		}
		if rc.Row < minRow {
			minRow = rc.Row
		}
		if rc.Row > maxRow {
			maxRow = rc.Row
		}
		if rc.Col < minCol {
			minCol = rc.Col
		}
		if rc.Col > maxCol {
			maxCol = rc.Col
		}
	}
	return
}

func countInWindow(tiles map[RowCol]manifest.Placement, row, col, s int) int {
	count := 0
	for r := row; r < row+s; r++ {
		for c := col; c < col+s; c++ {
			if _, ok := tiles[RowCol{Row: r, Col: c}]; ok {
				count++
			}
		}
	}
	return count
}

// collectWindow gathers up to n placements from the s×s window anchored at
// (row, col), clipped to the level's grid, in row-major order.
func collectWindow(cfg *Config, row, col, s, n int) map[RowCol]manifest.Placement {
	result := make(map[RowCol]manifest.Placement)

	rowEnd := row + s
	if uint32(rowEnd) > cfg.GridRows {
		rowEnd = int(cfg.GridRows)
	}
	colEnd := col + s
	if uint32(colEnd) > cfg.GridCols {
		colEnd = int(cfg.GridCols)
	}

	for r := row; r < rowEnd; r++ {
		for c := col; c < colEnd; c++ {
			if len(result) >= n {
				return result
			}
			rc := RowCol{Row: r, Col: c}
			if p, ok := cfg.Tiles[rc]; ok {
				result[rc] = p
			}
		}
	}
	return result
}
