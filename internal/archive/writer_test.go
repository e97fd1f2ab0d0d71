package archive

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dtoblo/swtiles/internal/level"
	"github.com/dtoblo/swtiles/internal/manifest"
)

func fakePayloads(payloads map[string][]byte) func(path string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := payloads[path]
		if !ok {
			return nil, fmt.Errorf("no such payload: %s", path)
		}
		return data, nil
	}
}

func TestWriter_SingleTileRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "single.swtiles")

	cfg := &level.Config{
		LevelID:     0,
		ResolutionM: 1.0,
		TileExtentM: 256,
		OriginE:     100000,
		OriginN:     6200000,
		GridCols:    1,
		GridRows:    1,
		TilePx:      256,
		Tiles: map[level.RowCol]manifest.Placement{
			{Row: 0, Col: 0}: {Path: "tile.webp"},
		},
	}

	payloads := map[string][]byte{"tile.webp": []byte("fake-webp-bytes")}

	summary, err := Write(outPath, []*level.Config{cfg}, WriterOptions{
		DataType:    DataTypeRaster,
		CRSCode:     3006,
		ReadPayload: fakePayloads(payloads),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if summary.TilesWritten != 1 {
		t.Errorf("TilesWritten = %d, want 1", summary.TilesWritten)
	}
	if summary.PayloadUnavailable != 0 {
		t.Errorf("PayloadUnavailable = %d, want 0", summary.PayloadUnavailable)
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.Header().NumLevels != 1 {
		t.Errorf("NumLevels = %d, want 1", r.Header().NumLevels)
	}
	if r.Header().ImageFormat != ImageFormatWebP {
		t.Errorf("ImageFormat = %d, want %d", r.Header().ImageFormat, ImageFormatWebP)
	}
	if r.Header().CRSCode != 3006 {
		t.Errorf("CRSCode = %d, want 3006", r.Header().CRSCode)
	}

	data, err := r.ReadTile(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if !bytes.Equal(data, payloads["tile.webp"]) {
		t.Errorf("ReadTile = %q, want %q", data, payloads["tile.webp"])
	}
}

func TestWriter_SparseGrid_AbsentTilesReadAsNil(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "sparse.swtiles")

	cfg := &level.Config{
		LevelID:     0,
		ResolutionM: 2.0,
		TileExtentM: 512,
		OriginE:     0,
		OriginN:     1000000,
		GridCols:    3,
		GridRows:    3,
		TilePx:      256,
		Tiles: map[level.RowCol]manifest.Placement{
			{Row: 0, Col: 0}: {Path: "a.png"},
			{Row: 2, Col: 2}: {Path: "b.png"},
		},
	}

	payloads := map[string][]byte{
		"a.png": []byte("AAAA"),
		"b.png": []byte("BBBBBB"),
	}

	_, err := Write(outPath, []*level.Config{cfg}, WriterOptions{
		DataType:    DataTypeRaster,
		ReadPayload: fakePayloads(payloads),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadTile(0, 0, 0)
	if err != nil || !bytes.Equal(got, []byte("AAAA")) {
		t.Errorf("ReadTile(0,0) = %q, %v", got, err)
	}

	absent, err := r.ReadTile(0, 1, 1)
	if err != nil {
		t.Fatalf("ReadTile(1,1): %v", err)
	}
	if absent != nil {
		t.Errorf("ReadTile(1,1) = %q, want nil (absent)", absent)
	}

	got, err = r.ReadTile(0, 2, 2)
	if err != nil || !bytes.Equal(got, []byte("BBBBBB")) {
		t.Errorf("ReadTile(2,2) = %q, %v", got, err)
	}
}

func TestWriter_MultiLevel_OrderedCoarsestFirst(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "levels.swtiles")

	fine := &level.Config{
		LevelID: 1, ResolutionM: 0.5, TileExtentM: 128,
		OriginE: 0, OriginN: 1000,
		GridCols: 1, GridRows: 1, TilePx: 256,
		Tiles: map[level.RowCol]manifest.Placement{{Row: 0, Col: 0}: {Path: "fine.png"}},
	}
	coarse := &level.Config{
		LevelID: 2, ResolutionM: 2.0, TileExtentM: 512,
		OriginE: 0, OriginN: 1000,
		GridCols: 1, GridRows: 1, TilePx: 256,
		Tiles: map[level.RowCol]manifest.Placement{{Row: 0, Col: 0}: {Path: "coarse.png"}},
	}

	payloads := map[string][]byte{"fine.png": []byte("fine-data"), "coarse.png": []byte("coarse-data")}

	// Pass levels in fine-then-coarse order; Write must reorder coarsest-first.
	_, err := Write(outPath, []*level.Config{fine, coarse}, WriterOptions{
		ReadPayload: fakePayloads(payloads),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	levels := r.Levels()
	if len(levels) != 2 {
		t.Fatalf("len(levels) = %d, want 2", len(levels))
	}
	if levels[0].LevelID != 2 {
		t.Errorf("levels[0].LevelID = %d, want 2 (coarsest first)", levels[0].LevelID)
	}
	if levels[1].LevelID != 1 {
		t.Errorf("levels[1].LevelID = %d, want 1", levels[1].LevelID)
	}
}

func TestWriter_PayloadUnavailable_NonFatal(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "missing.swtiles")

	cfg := &level.Config{
		LevelID: 0, ResolutionM: 1, TileExtentM: 256,
		OriginE: 0, OriginN: 0,
		GridCols: 2, GridRows: 1, TilePx: 256,
		Tiles: map[level.RowCol]manifest.Placement{
			{Row: 0, Col: 0}: {Path: "present.png"},
			{Row: 0, Col: 1}: {Path: "missing.png"},
		},
	}
	payloads := map[string][]byte{"present.png": []byte("ok")}

	summary, err := Write(outPath, []*level.Config{cfg}, WriterOptions{ReadPayload: fakePayloads(payloads)})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if summary.PayloadUnavailable != 1 {
		t.Errorf("PayloadUnavailable = %d, want 1", summary.PayloadUnavailable)
	}
	if len(summary.PayloadUnavailablePaths) != 1 || summary.PayloadUnavailablePaths[0] != "missing.png" {
		t.Errorf("PayloadUnavailablePaths = %v, want [missing.png]", summary.PayloadUnavailablePaths)
	}

	r, err := OpenReader(outPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	absent, err := r.ReadTile(0, 0, 1)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if absent != nil {
		t.Errorf("ReadTile(0,1) = %q, want nil", absent)
	}
}

func TestWriter_PayloadTooLarge_IsFatal(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "toolarge.swtiles")

	cfg := &level.Config{
		LevelID: 0, ResolutionM: 1, TileExtentM: 256,
		OriginE: 0, OriginN: 0,
		GridCols: 1, GridRows: 1, TilePx: 256,
		Tiles: map[level.RowCol]manifest.Placement{{Row: 0, Col: 0}: {Path: "huge.png"}},
	}
	payloads := map[string][]byte{"huge.png": make([]byte, MaxPayloadLength+1)}

	_, err := Write(outPath, []*level.Config{cfg}, WriterOptions{ReadPayload: fakePayloads(payloads)})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestWriter_NoLevels_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "empty.swtiles")

	_, err := Write(outPath, nil, WriterOptions{})
	if err == nil {
		t.Fatal("Write with no levels should error")
	}
}

func TestWriter_ProgressCallback_ReportsEachTile(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "progress.swtiles")

	cfg := &level.Config{
		LevelID: 0, ResolutionM: 1, TileExtentM: 256,
		OriginE: 0, OriginN: 0,
		GridCols: 2, GridRows: 1, TilePx: 256,
		Tiles: map[level.RowCol]manifest.Placement{
			{Row: 0, Col: 0}: {Path: "a.png"},
			{Row: 0, Col: 1}: {Path: "b.png"},
		},
	}
	payloads := map[string][]byte{"a.png": []byte("a"), "b.png": []byte("b")}

	var events []Event
	_, err := Write(outPath, []*level.Config{cfg}, WriterOptions{
		ReadPayload: fakePayloads(payloads),
		Progress:    func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var tileEvents, doneEvents int
	for _, e := range events {
		switch e.Phase {
		case PhaseTile:
			tileEvents++
		case PhaseDone:
			doneEvents++
		}
	}
	if tileEvents != 2 {
		t.Errorf("tile events = %d, want 2", tileEvents)
	}
	if doneEvents != 1 {
		t.Errorf("done events = %d, want 1", doneEvents)
	}
}
