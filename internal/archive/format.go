// Package archive implements the tile archive codec: a fixed 256-byte
// header, a level table of fixed 64-byte entries, and per-level dense
// row-major tile indexes, plus the writer and reader that operate on them.
package archive

import (
	"encoding/binary"
	"fmt"
)

// File layout constants.
const (
	Magic = "SWTILES\x00"

	CurrentVersion = uint16(2)

	HeaderSize     = 256
	LevelEntrySize = 64
	IndexEntrySize = 8

	// MaxPayloadLength is the largest payload a 24-bit length field can hold.
	MaxPayloadLength = 1<<24 - 1
	// MaxPayloadOffset is the largest relative offset a 40-bit field can hold.
	MaxPayloadOffset = 1<<40 - 1
)

// Data type byte values.
const (
	DataTypeRaster  uint8 = 1
	DataTypeTerrain uint8 = 2
	DataTypeOther   uint8 = 3
)

// Image format byte values.
const (
	ImageFormatWebP uint8 = 1
	ImageFormatPNG  uint8 = 2
	ImageFormatJPEG uint8 = 3
	ImageFormatAVIF uint8 = 4
)

// Header is the 256-byte fixed header at offset 0.
type Header struct {
	DataType         uint8
	ImageFormat      uint8
	CRSCode          uint32
	BoundsMinE       float64
	BoundsMinN       float64
	BoundsMaxE       float64
	BoundsMaxN       float64
	TilePx           uint16
	NumLevels        uint8
	LevelTableOffset uint64
}

// Serialize writes the 256-byte header. Reserved bytes are left zero.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint16(buf[8:10], CurrentVersion)
	buf[10] = h.DataType
	buf[11] = h.ImageFormat
	binary.LittleEndian.PutUint32(buf[12:16], h.CRSCode)
	binary.LittleEndian.PutUint64(buf[16:24], float64bits(h.BoundsMinE))
	binary.LittleEndian.PutUint64(buf[24:32], float64bits(h.BoundsMinN))
	binary.LittleEndian.PutUint64(buf[32:40], float64bits(h.BoundsMaxE))
	binary.LittleEndian.PutUint64(buf[40:48], float64bits(h.BoundsMaxN))
	binary.LittleEndian.PutUint16(buf[48:50], h.TilePx)
	buf[50] = h.NumLevels
	// buf[51] reserved, left zero
	binary.LittleEndian.PutUint64(buf[52:60], h.LevelTableOffset)

	return buf
}

// DeserializeHeader parses a 256-byte header, failing with ErrHeaderCorrupt
// on a bad magic and ErrUnsupportedVersion on an unsupported version.
func DeserializeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, need %d", ErrHeaderCorrupt, len(buf), HeaderSize)
	}
	if string(buf[0:8]) != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrHeaderCorrupt, buf[0:8])
	}

	version := binary.LittleEndian.Uint16(buf[8:10])
	if version != CurrentVersion {
		return Header{}, fmt.Errorf("%w: version %d (this reader supports %d)", ErrUnsupportedVersion, version, CurrentVersion)
	}

	h := Header{
		DataType:         buf[10],
		ImageFormat:      buf[11],
		CRSCode:          binary.LittleEndian.Uint32(buf[12:16]),
		BoundsMinE:       float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
		BoundsMinN:       float64frombits(binary.LittleEndian.Uint64(buf[24:32])),
		BoundsMaxE:       float64frombits(binary.LittleEndian.Uint64(buf[32:40])),
		BoundsMaxN:       float64frombits(binary.LittleEndian.Uint64(buf[40:48])),
		TilePx:           binary.LittleEndian.Uint16(buf[48:50]),
		NumLevels:        buf[50],
		LevelTableOffset: binary.LittleEndian.Uint64(buf[52:60]),
	}
	return h, nil
}

// LevelEntry is one 64-byte entry in the level table.
type LevelEntry struct {
	LevelID     uint8
	ResolutionM float32
	TileExtentM float32
	OriginE     float64
	OriginN     float64
	GridCols    uint32
	GridRows    uint32
	TileCount   uint32
	IndexOffset uint64
	IndexLength uint64
	DataOffset  uint64
}

// Serialize writes the 64-byte level table entry.
func (e *LevelEntry) Serialize() []byte {
	buf := make([]byte, LevelEntrySize)

	buf[0] = e.LevelID
	// buf[1] reserved
	binary.LittleEndian.PutUint32(buf[2:6], float32bits(e.ResolutionM))
	binary.LittleEndian.PutUint32(buf[6:10], float32bits(e.TileExtentM))
	// buf[10:12] reserved
	binary.LittleEndian.PutUint64(buf[12:20], float64bits(e.OriginE))
	binary.LittleEndian.PutUint64(buf[20:28], float64bits(e.OriginN))
	binary.LittleEndian.PutUint32(buf[28:32], e.GridCols)
	binary.LittleEndian.PutUint32(buf[32:36], e.GridRows)
	binary.LittleEndian.PutUint32(buf[36:40], e.TileCount)
	binary.LittleEndian.PutUint64(buf[40:48], e.IndexOffset)
	binary.LittleEndian.PutUint64(buf[48:56], e.IndexLength)
	binary.LittleEndian.PutUint64(buf[56:64], e.DataOffset)

	return buf
}

// DeserializeLevelEntry parses one 64-byte level table entry.
func DeserializeLevelEntry(buf []byte) (LevelEntry, error) {
	if len(buf) < LevelEntrySize {
		return LevelEntry{}, fmt.Errorf("%w: level entry is %d bytes, need %d", ErrHeaderCorrupt, len(buf), LevelEntrySize)
	}
	return LevelEntry{
		LevelID:     buf[0],
		ResolutionM: float32frombits(binary.LittleEndian.Uint32(buf[2:6])),
		TileExtentM: float32frombits(binary.LittleEndian.Uint32(buf[6:10])),
		OriginE:     float64frombits(binary.LittleEndian.Uint64(buf[12:20])),
		OriginN:     float64frombits(binary.LittleEndian.Uint64(buf[20:28])),
		GridCols:    binary.LittleEndian.Uint32(buf[28:32]),
		GridRows:    binary.LittleEndian.Uint32(buf[32:36]),
		TileCount:   binary.LittleEndian.Uint32(buf[36:40]),
		IndexOffset: binary.LittleEndian.Uint64(buf[40:48]),
		IndexLength: binary.LittleEndian.Uint64(buf[48:56]),
		DataOffset:  binary.LittleEndian.Uint64(buf[56:64]),
	}, nil
}

// serializeIndexEntry packs a (relative offset, length) pair into the
// packed 5-byte-offset + 3-byte-length index entry format.
func serializeIndexEntry(buf []byte, offset uint64, length uint32) {
	// 5-byte little-endian offset.
	buf[0] = byte(offset)
	buf[1] = byte(offset >> 8)
	buf[2] = byte(offset >> 16)
	buf[3] = byte(offset >> 24)
	buf[4] = byte(offset >> 32)
	// 3-byte little-endian length.
	buf[5] = byte(length)
	buf[6] = byte(length >> 8)
	buf[7] = byte(length >> 16)
}

// deserializeIndexEntry unpacks a (relative offset, length) pair.
func deserializeIndexEntry(buf []byte) (offset uint64, length uint32) {
	offset = uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 | uint64(buf[4])<<32
	length = uint32(buf[5]) | uint32(buf[6])<<8 | uint32(buf[7])<<16
	return offset, length
}
