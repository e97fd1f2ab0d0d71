package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dtoblo/swtiles/internal/level"
)

// WriterOptions configures a one-shot archive write.
type WriterOptions struct {
	DataType uint8
	CRSCode  uint32

	// Progress, if non-nil, receives progress events during the write.
	Progress ProgressFunc

	// ReadPayload fetches the bytes for a placement's path. Defaults to
	// os.ReadFile. Tests substitute an in-memory stand-in.
	ReadPayload func(path string) ([]byte, error)
}

// Summary reports non-fatal conditions encountered during a write.
type Summary struct {
	TilesWritten          int
	BytesWritten          int64
	PayloadUnavailable    int
	PayloadUnavailablePaths []string
}

// Write assembles an archive at outputPath from one or more level configs
// using the plan-then-overwrite writer protocol: header and level table are
// reserved as zero bytes, each level's index and payload are written to a
// running cursor, and the header and level table are then rewritten with
// their real values. Levels are reordered coarsest-to-finest by resolution
// regardless of input order.
//
// Fatal errors (a payload exceeding the 24-bit length limit, or any I/O
// failure) abort the write and leave whatever was written on disk in
// place; the caller is responsible for removing a partial file. A payload
// that cannot be read is non-fatal: its index slot is left zero, the write
// continues, and the condition is counted in the returned Summary.
func Write(outputPath string, levels []*level.Config, opts WriterOptions) (Summary, error) {
	var summary Summary

	if len(levels) == 0 {
		return summary, fmt.Errorf("archive: at least one level is required")
	}

	readPayload := opts.ReadPayload
	if readPayload == nil {
		readPayload = os.ReadFile
	}

	ordered := make([]*level.Config, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ResolutionM > ordered[j].ResolutionM // coarsest (largest) first
	})

	imageFormat := detectImageFormat(ordered)

	out, err := os.Create(outputPath)
	if err != nil {
		return summary, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer out.Close()

	numLevels := len(ordered)
	levelTableOffset := int64(HeaderSize)
	levelTableLength := int64(numLevels) * LevelEntrySize

	// Reserve header and level table with zero bytes (step 4).
	if _, err := out.Write(make([]byte, HeaderSize)); err != nil {
		return summary, fmt.Errorf("reserving header: %w", err)
	}
	if _, err := out.Write(make([]byte, levelTableLength)); err != nil {
		return summary, fmt.Errorf("reserving level table: %w", err)
	}

	levelEntries := make([]LevelEntry, numLevels)
	cursor := levelTableOffset + levelTableLength

	var boundsSet bool
	var boundsMinE, boundsMinN, boundsMaxE, boundsMaxN float64

	for i, lvl := range ordered {
		if opts.Progress != nil {
			opts.Progress(Event{Phase: PhaseLevelStart, LevelID: lvl.LevelID, TilesTotal: lvl.TileCount()})
		}

		rcs := sortedRowCols(lvl)
		indexLength := int64(lvl.GridCols) * int64(lvl.GridRows) * IndexEntrySize
		indexOffset := cursor
		dataOffset := indexOffset + indexLength

		indexBuf := make([]byte, indexLength)

		if _, err := out.Seek(dataOffset, io.SeekStart); err != nil {
			return summary, fmt.Errorf("seeking to level %d data region: %w", lvl.LevelID, err)
		}

		var relOffset uint64
		tileCount := 0
		haveExtent := false
		var minRow, maxRow, minCol, maxCol int

		for _, rc := range rcs {
			placement := lvl.Tiles[rc]

			data, err := readPayload(placement.Path)
			if err != nil {
				summary.PayloadUnavailable++
				summary.PayloadUnavailablePaths = append(summary.PayloadUnavailablePaths, placement.Path)
				continue // index slot stays zero
			}

			if len(data) > MaxPayloadLength {
				return summary, fmt.Errorf("%w: level %d tile (%d,%d) %s is %d bytes (max %d)",
					ErrPayloadTooLarge, lvl.LevelID, rc.Row, rc.Col, placement.Path, len(data), MaxPayloadLength)
			}
			if relOffset > MaxPayloadOffset {
				return summary, fmt.Errorf("archive: level %d payload region exceeds %d bytes", lvl.LevelID, MaxPayloadOffset)
			}

			n, err := out.Write(data)
			if err != nil {
				return summary, fmt.Errorf("writing tile (%d,%d) for level %d: %w", rc.Row, rc.Col, lvl.LevelID, err)
			}

			entryIdx := rc.Row*int(lvl.GridCols) + rc.Col
			serializeIndexEntry(indexBuf[entryIdx*IndexEntrySize:(entryIdx+1)*IndexEntrySize], relOffset, uint32(n))

			relOffset += uint64(n)
			tileCount++
			summary.TilesWritten++
			summary.BytesWritten += int64(n)

			if !haveExtent {
				minRow, maxRow, minCol, maxCol = rc.Row, rc.Row, rc.Col, rc.Col
				haveExtent = true
			} else {
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

			if opts.Progress != nil {
				opts.Progress(Event{Phase: PhaseTile, LevelID: lvl.LevelID, TilesDone: tileCount, TilesTotal: lvl.TileCount()})
			}
		}

		if _, err := out.Seek(indexOffset, io.SeekStart); err != nil {
			return summary, fmt.Errorf("seeking to level %d index: %w", lvl.LevelID, err)
		}
		if _, err := out.Write(indexBuf); err != nil {
			return summary, fmt.Errorf("writing level %d index: %w", lvl.LevelID, err)
		}

		// Next level's index_offset starts at the end of this level's
		// payload region.
		cursor = dataOffset + int64(relOffset)

		levelEntries[i] = LevelEntry{
			LevelID:     lvl.LevelID,
			ResolutionM: lvl.ResolutionM,
			TileExtentM: lvl.TileExtentM,
			OriginE:     lvl.OriginE,
			OriginN:     lvl.OriginN,
			GridCols:    lvl.GridCols,
			GridRows:    lvl.GridRows,
			TileCount:   uint32(tileCount),
			IndexOffset: uint64(indexOffset),
			IndexLength: uint64(indexLength),
			DataOffset:  uint64(dataOffset),
		}

		if haveExtent {
			extent := float64(lvl.TileExtentM)
			levelMinE := lvl.OriginE + float64(minCol)*extent
			levelMaxN := lvl.OriginN - float64(minRow)*extent
			levelMaxE := lvl.OriginE + float64(maxCol+1)*extent
			levelMinN := lvl.OriginN - float64(maxRow+1)*extent

			if !boundsSet {
				boundsMinE, boundsMinN, boundsMaxE, boundsMaxN = levelMinE, levelMinN, levelMaxE, levelMaxN
				boundsSet = true
			} else {
				boundsMinE = minF64(boundsMinE, levelMinE)
				boundsMinN = minF64(boundsMinN, levelMinN)
				boundsMaxE = maxF64(boundsMaxE, levelMaxE)
				boundsMaxN = maxF64(boundsMaxN, levelMaxN)
			}
		}

		if opts.Progress != nil {
			opts.Progress(Event{Phase: PhaseLevelEnd, LevelID: lvl.LevelID, TilesDone: tileCount, TilesTotal: lvl.TileCount()})
		}
	}

	header := Header{
		DataType:         opts.DataType,
		ImageFormat:      imageFormat,
		CRSCode:          opts.CRSCode,
		BoundsMinE:       boundsMinE,
		BoundsMinN:       boundsMinN,
		BoundsMaxE:       boundsMaxE,
		BoundsMaxN:       boundsMaxN,
		TilePx:           ordered[0].TilePx,
		NumLevels:        uint8(numLevels),
		LevelTableOffset: uint64(levelTableOffset),
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return summary, fmt.Errorf("seeking to header: %w", err)
	}
	if _, err := out.Write(header.Serialize()); err != nil {
		return summary, fmt.Errorf("writing header: %w", err)
	}

	if _, err := out.Seek(levelTableOffset, io.SeekStart); err != nil {
		return summary, fmt.Errorf("seeking to level table: %w", err)
	}
	for _, e := range levelEntries {
		if _, err := out.Write(e.Serialize()); err != nil {
			return summary, fmt.Errorf("writing level table: %w", err)
		}
	}

	if opts.Progress != nil {
		opts.Progress(Event{Phase: PhaseDone, TilesDone: summary.TilesWritten, TilesTotal: summary.TilesWritten + summary.PayloadUnavailable})
	}

	return summary, nil
}

// sortedRowCols returns a level's populated cells in row-major order.
func sortedRowCols(lvl *level.Config) []level.RowCol {
	rcs := make([]level.RowCol, 0, len(lvl.Tiles))
	for rc := range lvl.Tiles {
		rcs = append(rcs, rc)
	}
	sort.Slice(rcs, func(i, j int) bool {
		if rcs[i].Row != rcs[j].Row {
			return rcs[i].Row < rcs[j].Row
		}
		return rcs[i].Col < rcs[j].Col
	})
	return rcs
}

// detectImageFormat infers the image_format header byte from the file
// extension of the first placement of the first (coarsest) level that has
// any tiles. Unknown extensions, and the no-placements case, default to PNG.
func detectImageFormat(ordered []*level.Config) uint8 {
	for _, lvl := range ordered {
		rcs := sortedRowCols(lvl)
		if len(rcs) == 0 {
			continue
		}
		ext := strings.ToLower(filepath.Ext(lvl.Tiles[rcs[0]].Path))
		switch ext {
		case ".webp":
			return ImageFormatWebP
		case ".png":
			return ImageFormatPNG
		case ".jpg", ".jpeg":
			return ImageFormatJPEG
		case ".avif":
			return ImageFormatAVIF
		default:
			return ImageFormatPNG
		}
	}
	return ImageFormatPNG
}

func minF64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
