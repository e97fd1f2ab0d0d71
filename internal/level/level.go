// Package level converts a manifest's placement set plus a chosen tile-edge
// length into a LevelConfig: origin, metric tile extent, grid dimensions,
// and a mapping from (row, col) to placement.
package level

import (
	"github.com/dtoblo/swtiles/internal/manifest"
)

// RowCol addresses one grid cell.
type RowCol struct {
	Row, Col int
}

// Config describes one resolution level, ready to be handed to the
// archive writer.
type Config struct {
	LevelID     uint8
	ResolutionM float32
	TileExtentM float32
	OriginE     float64
	OriginN     float64
	GridCols    uint32
	GridRows    uint32
	TilePx      uint16
	Tiles       map[RowCol]manifest.Placement
}

// Build derives a Config from a parsed manifest and a chosen tile-edge
// length in pixels. grid_cols/grid_rows are rounded up to cover the full
// raster; the last row/column of the grid may be partially populated or
// empty. Placements that collide on (row, col) after division: the later
// one (in manifest source order) overwrites the earlier.
func Build(info *manifest.Info, tilePx uint16, levelID uint8) *Config {
	gridCols := ceilDiv(info.RasterX, int(tilePx))
	gridRows := ceilDiv(info.RasterY, int(tilePx))

	tiles := make(map[RowCol]manifest.Placement, len(info.Placements))
	for _, p := range info.Placements {
		rc := RowCol{Row: p.YOff / int(tilePx), Col: p.XOff / int(tilePx)}
		tiles[rc] = p // last one wins
	}

	return &Config{
		LevelID:     levelID,
		ResolutionM: float32(info.PixelSize),
		TileExtentM: float32(float64(tilePx) * info.PixelSize),
		OriginE:     info.OriginE,
		OriginN:     info.OriginN,
		GridCols:    uint32(gridCols),
		GridRows:    uint32(gridRows),
		TilePx:      tilePx,
		Tiles:       tiles,
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// TileCount returns the number of populated cells.
func (c *Config) TileCount() int {
	return len(c.Tiles)
}

// InBounds reports whether (row, col) is within the level's declared grid.
func (c *Config) InBounds(row, col int) bool {
	return row >= 0 && uint32(row) < c.GridRows && col >= 0 && uint32(col) < c.GridCols
}
