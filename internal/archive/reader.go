package archive

import (
	"fmt"
	"io"
	"math"
	"os"
)

// Reader provides read access to an existing tile archive: header and
// level table are parsed once at open; every tile lookup after that is a
// pair of direct reads (one index entry, one payload).
type Reader struct {
	file      *os.File
	header    Header
	levels    []LevelEntry
	levelByID map[uint8]int
	size      int64
}

// OpenReader opens path, verifies the magic and version, and parses the
// header and level table.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := fi.Size()

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading header of %s: %v", ErrHeaderCorrupt, path, err)
	}

	header, err := DeserializeHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	tableLength := int64(header.NumLevels) * LevelEntrySize
	if int64(header.LevelTableOffset)+tableLength > size {
		f.Close()
		return nil, fmt.Errorf("%w: %s: level table extends past EOF", ErrHeaderCorrupt, path)
	}

	tableBuf := make([]byte, tableLength)
	if _, err := f.ReadAt(tableBuf, int64(header.LevelTableOffset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading level table of %s: %v", ErrHeaderCorrupt, path, err)
	}

	levels := make([]LevelEntry, header.NumLevels)
	levelByID := make(map[uint8]int, header.NumLevels)
	for i := range levels {
		e, err := DeserializeLevelEntry(tableBuf[i*LevelEntrySize : (i+1)*LevelEntrySize])
		if err != nil {
			f.Close()
			return nil, err
		}
		levels[i] = e
		levelByID[e.LevelID] = i
	}

	return &Reader{file: f, header: header, levels: levels, levelByID: levelByID, size: size}, nil
}

// Close releases the reader's file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Header returns the parsed archive header.
func (r *Reader) Header() Header {
	return r.header
}

// Levels returns the parsed level table, in file order.
func (r *Reader) Levels() []LevelEntry {
	out := make([]LevelEntry, len(r.levels))
	copy(out, r.levels)
	return out
}

func (r *Reader) levelEntry(levelID uint8) (LevelEntry, error) {
	i, ok := r.levelByID[levelID]
	if !ok {
		return LevelEntry{}, fmt.Errorf("%w: level %d", ErrInvalidLevel, levelID)
	}
	return r.levels[i], nil
}

// ReadTile returns the payload bytes stored at (row, col) in levelID, or
// (nil, nil) if the cell is absent.
func (r *Reader) ReadTile(levelID uint8, row, col int) ([]byte, error) {
	lvl, err := r.levelEntry(levelID)
	if err != nil {
		return nil, err
	}
	if !inBounds(lvl, row, col) {
		return nil, fmt.Errorf("%w: level %d (%d,%d), grid is %dx%d", ErrOutOfBounds, levelID, row, col, lvl.GridRows, lvl.GridCols)
	}

	entryOffset := int64(lvl.IndexOffset) + (int64(row)*int64(lvl.GridCols)+int64(col))*IndexEntrySize
	if entryOffset+IndexEntrySize > r.size {
		return nil, fmt.Errorf("%w: level %d index entry (%d,%d)", ErrTruncatedIndex, levelID, row, col)
	}

	entryBuf := make([]byte, IndexEntrySize)
	if _, err := r.file.ReadAt(entryBuf, entryOffset); err != nil {
		return nil, fmt.Errorf("%w: level %d index entry (%d,%d): %v", ErrTruncatedIndex, levelID, row, col, err)
	}

	relOffset, length := deserializeIndexEntry(entryBuf)
	if length == 0 {
		return nil, nil
	}

	absOffset := int64(lvl.DataOffset) + int64(relOffset)
	if absOffset+int64(length) > r.size {
		return nil, fmt.Errorf("%w: level %d tile (%d,%d)", ErrTruncatedPayload, levelID, row, col)
	}

	data := make([]byte, length)
	if _, err := r.file.ReadAt(data, absOffset); err != nil {
		return nil, fmt.Errorf("%w: level %d tile (%d,%d): %v", ErrTruncatedPayload, levelID, row, col, err)
	}
	return data, nil
}

// CoverageEntry is one populated cell reported by ScanLevel.
type CoverageEntry struct {
	Row, Col int
	Offset   uint64 // relative to the level's data_offset
	Length   uint32
}

// ScanLevel reads a level's entire index in one sequential read and yields
// every populated cell, in row-major order.
func (r *Reader) ScanLevel(levelID uint8) ([]CoverageEntry, error) {
	lvl, err := r.levelEntry(levelID)
	if err != nil {
		return nil, err
	}

	cols := int64(lvl.GridCols)
	rows := int64(lvl.GridRows)
	indexLength := cols * rows * IndexEntrySize

	if int64(lvl.IndexOffset)+indexLength > r.size {
		return nil, fmt.Errorf("%w: level %d index", ErrTruncatedIndex, levelID)
	}

	buf := make([]byte, indexLength)
	if indexLength > 0 {
		if _, err := r.file.ReadAt(buf, int64(lvl.IndexOffset)); err != nil {
			return nil, fmt.Errorf("%w: level %d index: %v", ErrTruncatedIndex, levelID, err)
		}
	}

	var entries []CoverageEntry
	numEntries := int(indexLength / IndexEntrySize)
	for k := 0; k < numEntries; k++ {
		off, length := deserializeIndexEntry(buf[k*IndexEntrySize : (k+1)*IndexEntrySize])
		if length == 0 {
			continue
		}
		entries = append(entries, CoverageEntry{
			Row:    k / int(cols),
			Col:    k % int(cols),
			Offset: off,
			Length: length,
		})
	}
	return entries, nil
}

// CoordToRowCol maps an easting/northing to a (row, col) in levelID.
func (r *Reader) CoordToRowCol(levelID uint8, e, n float64) (row, col int, err error) {
	lvl, err := r.levelEntry(levelID)
	if err != nil {
		return 0, 0, err
	}
	extent := float64(lvl.TileExtentM)
	col = int(math.Floor((e - lvl.OriginE) / extent))
	row = int(math.Floor((lvl.OriginN - n) / extent))
	return row, col, nil
}

// RowColToCoord returns the (min easting, max northing) corner of (row,
// col) in levelID, along with the level's tile extent in metres.
func (r *Reader) RowColToCoord(levelID uint8, row, col int) (minE, maxN, extent float64, err error) {
	lvl, err := r.levelEntry(levelID)
	if err != nil {
		return 0, 0, 0, err
	}
	extent = float64(lvl.TileExtentM)
	minE = lvl.OriginE + float64(col)*extent
	maxN = lvl.OriginN - float64(row)*extent
	return minE, maxN, extent, nil
}

// CountTilesInBounds clips the (e_min, n_min)-(e_max, n_max) rectangle to
// the level's grid and probes every index entry inside it, returning the
// total number of cells in the clipped rectangle and how many are present.
func (r *Reader) CountTilesInBounds(levelID uint8, eMin, nMin, eMax, nMax float64) (total, present int, err error) {
	lvl, err := r.levelEntry(levelID)
	if err != nil {
		return 0, 0, err
	}

	extent := float64(lvl.TileExtentM)
	colMin := int(math.Floor((eMin - lvl.OriginE) / extent))
	colMax := int(math.Floor((eMax - lvl.OriginE) / extent))
	rowMin := int(math.Floor((lvl.OriginN - nMax) / extent))
	rowMax := int(math.Floor((lvl.OriginN - nMin) / extent))

	if colMin < 0 {
		colMin = 0
	}
	if rowMin < 0 {
		rowMin = 0
	}
	if colMax > int(lvl.GridCols)-1 {
		colMax = int(lvl.GridCols) - 1
	}
	if rowMax > int(lvl.GridRows)-1 {
		rowMax = int(lvl.GridRows) - 1
	}
	if colMax < colMin || rowMax < rowMin {
		return 0, 0, nil
	}

	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			total++
			entryOffset := int64(lvl.IndexOffset) + (int64(row)*int64(lvl.GridCols)+int64(col))*IndexEntrySize
			entryBuf := make([]byte, IndexEntrySize)
			if _, err := r.file.ReadAt(entryBuf, entryOffset); err != nil {
				return 0, 0, fmt.Errorf("%w: level %d index entry (%d,%d): %v", ErrTruncatedIndex, levelID, row, col, err)
			}
			_, length := deserializeIndexEntry(entryBuf)
			if length != 0 {
				present++
			}
		}
	}
	return total, present, nil
}

func inBounds(lvl LevelEntry, row, col int) bool {
	return row >= 0 && uint32(row) < lvl.GridRows && col >= 0 && uint32(col) < lvl.GridCols
}
