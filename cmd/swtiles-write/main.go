package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dtoblo/swtiles/internal/archive"
	"github.com/dtoblo/swtiles/internal/level"
	"github.com/dtoblo/swtiles/internal/manifest"
	"github.com/dtoblo/swtiles/internal/progress"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		tilePx      int
		levelID     int
		dataType    string
		testCount   int
		testRow     int
		testCol     int
		dryRun      bool
		verbose     bool
		showVersion bool
	)

	flag.IntVar(&tilePx, "tile-px", 500, "Pixel edge length assumed for all tiles in this level")
	flag.IntVar(&levelID, "level", 0, "Level ID assigned to the level built from this manifest")
	flag.StringVar(&dataType, "data-type", "raster", "Data type: raster or terrain")
	flag.IntVar(&testCount, "test", 0, "Select a dense subset of N tiles instead of the full grid (0 = disabled)")
	flag.IntVar(&testRow, "test-row", -1, "Pin the test subset's anchor row (requires -test-col)")
	flag.IntVar(&testCol, "test-col", -1, "Pin the test subset's anchor column (requires -test-row)")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the manifest and payload existence; do not write an archive")
	flag.BoolVar(&verbose, "verbose", false, "Print a progress bar while writing")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: swtiles-write [flags] <manifest.vrt> <output.swtiles>\n\n")
		fmt.Fprintf(os.Stderr, "Assemble a tile archive from a mosaic manifest.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("swtiles-write %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	manifestPath, outputPath := args[0], args[1]

	var dataTypeByte uint8
	switch dataType {
	case "raster":
		dataTypeByte = archive.DataTypeRaster
	case "terrain":
		dataTypeByte = archive.DataTypeTerrain
	default:
		log.Fatalf("Unknown -data-type %q (want raster or terrain)", dataType)
	}

	if (testRow >= 0) != (testCol >= 0) {
		log.Fatal("-test-row and -test-col must be given together")
	}

	info, err := manifest.Parse(manifestPath)
	if err != nil {
		log.Fatalf("Parsing manifest: %v", err)
	}
	if verbose {
		log.Printf("Manifest: raster %dx%d, CRS:%d, pixel size %g, %d placement(s)",
			info.RasterX, info.RasterY, info.CRSCode, info.PixelSize, len(info.Placements))
	}

	cfg := level.Build(info, uint16(tilePx), uint8(levelID))
	if verbose {
		log.Printf("Level %d: grid %dx%d, %d populated cell(s)", cfg.LevelID, cfg.GridCols, cfg.GridRows, cfg.TileCount())
	}

	if testCount > 0 {
		var anchor *level.RowCol
		if testRow >= 0 {
			anchor = &level.RowCol{Row: testRow, Col: testCol}
		}
		cfg.Tiles = level.Select(cfg, testCount, anchor)
		if verbose {
			log.Printf("Test subset: selected %d cell(s)", len(cfg.Tiles))
		}
	}

	if dryRun {
		missing := 0
		for rc, p := range cfg.Tiles {
			if _, err := os.Stat(p.Path); err != nil {
				log.Printf("Missing payload for (%d,%d): %s", rc.Row, rc.Col, p.Path)
				missing++
			}
		}
		fmt.Printf("Dry run: %d cell(s), %d missing payload(s)\n", cfg.TileCount(), missing)
		if missing > 0 {
			os.Exit(1)
		}
		return
	}

	opts := archive.WriterOptions{
		DataType: dataTypeByte,
		CRSCode:  uint32(info.CRSCode),
	}
	if verbose {
		opts.Progress = progress.Terminal()
	}

	start := time.Now()
	summary, err := archive.Write(outputPath, []*level.Config{cfg}, opts)
	if err != nil {
		os.Remove(outputPath)
		log.Fatalf("Writing archive: %v", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Printf("Wrote %d tile(s), %d byte(s) in %v -> %s\n", summary.TilesWritten, summary.BytesWritten, elapsed, outputPath)
	if summary.PayloadUnavailable > 0 {
		fmt.Printf("Warning: %d payload(s) unavailable and omitted:\n", summary.PayloadUnavailable)
		for _, p := range summary.PayloadUnavailablePaths {
			fmt.Printf("  %s\n", p)
		}
	}
}
