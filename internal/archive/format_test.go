package archive

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestHeaderSerialize_MagicAndVersion(t *testing.T) {
	h := Header{DataType: DataTypeRaster, ImageFormat: ImageFormatWebP, TilePx: 512, NumLevels: 2, LevelTableOffset: 256}
	buf := h.Serialize()

	if len(buf) != HeaderSize {
		t.Fatalf("header size = %d, want %d", len(buf), HeaderSize)
	}
	if string(buf[0:8]) != Magic {
		t.Errorf("magic = %q, want %q", buf[0:8], Magic)
	}
	if v := binary.LittleEndian.Uint16(buf[8:10]); v != CurrentVersion {
		t.Errorf("version = %d, want %d", v, CurrentVersion)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		DataType:         DataTypeTerrain,
		ImageFormat:      ImageFormatPNG,
		CRSCode:          3006,
		BoundsMinE:       100000.5,
		BoundsMinN:       6100000.25,
		BoundsMaxE:       200000.75,
		BoundsMaxN:       6200000.125,
		TilePx:           256,
		NumLevels:        3,
		LevelTableOffset: 256,
	}

	got, err := DeserializeHeader(h.Serialize())
	if err != nil {
		t.Fatalf("DeserializeHeader: %v", err)
	}
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}

func TestDeserializeHeader_BadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], "NOTSWTIL")

	_, err := DeserializeHeader(buf)
	if !errors.Is(err, ErrHeaderCorrupt) {
		t.Fatalf("err = %v, want ErrHeaderCorrupt", err)
	}
}

func TestDeserializeHeader_Truncated(t *testing.T) {
	_, err := DeserializeHeader(make([]byte, HeaderSize-1))
	if !errors.Is(err, ErrHeaderCorrupt) {
		t.Fatalf("err = %v, want ErrHeaderCorrupt", err)
	}
}

func TestDeserializeHeader_UnsupportedVersion(t *testing.T) {
	h := Header{}
	buf := h.Serialize()
	binary.LittleEndian.PutUint16(buf[8:10], CurrentVersion+1)

	_, err := DeserializeHeader(buf)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestLevelEntryRoundTrip(t *testing.T) {
	e := LevelEntry{
		LevelID:     7,
		ResolutionM: 0.5,
		TileExtentM: 256,
		OriginE:     123456.75,
		OriginN:     6543210.5,
		GridCols:    10,
		GridRows:    20,
		TileCount:   150,
		IndexOffset: 1024,
		IndexLength: 1600,
		DataOffset:  2624,
	}

	got, err := DeserializeLevelEntry(e.Serialize())
	if err != nil {
		t.Fatalf("DeserializeLevelEntry: %v", err)
	}
	if got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestLevelEntrySerialize_Size(t *testing.T) {
	e := LevelEntry{}
	if got := len(e.Serialize()); got != LevelEntrySize {
		t.Errorf("level entry size = %d, want %d", got, LevelEntrySize)
	}
}

func TestIndexEntryRoundTrip(t *testing.T) {
	tests := []struct {
		offset uint64
		length uint32
	}{
		{0, 0},
		{1, 1},
		{MaxPayloadOffset, MaxPayloadLength},
		{1 << 39, 1 << 20},
	}

	for _, tt := range tests {
		buf := make([]byte, IndexEntrySize)
		serializeIndexEntry(buf, tt.offset, tt.length)
		gotOffset, gotLength := deserializeIndexEntry(buf)
		if gotOffset != tt.offset || gotLength != tt.length {
			t.Errorf("round trip (%d,%d) = (%d,%d)", tt.offset, tt.length, gotOffset, gotLength)
		}
	}
}

func TestIndexEntryZero_MeansAbsent(t *testing.T) {
	buf := make([]byte, IndexEntrySize)
	offset, length := deserializeIndexEntry(buf)
	if offset != 0 || length != 0 {
		t.Errorf("zero buffer = (%d,%d), want (0,0)", offset, length)
	}
}
