package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/dtoblo/swtiles/internal/archive"
	"github.com/dtoblo/swtiles/internal/imagefmt"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: swtiles-read <archive.swtiles> <command> [args...]\n")
		fmt.Fprintf(os.Stderr, "       swtiles-read version    Print version and exit\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  info                      Print header and level table summary\n")
		fmt.Fprintf(os.Stderr, "  tile <level> <row> <col>  Dump one tile's payload length and leading bytes\n")
		fmt.Fprintf(os.Stderr, "  scan <level>              List every populated (row, col) in a level\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) >= 1 && args[0] == "version" {
		fmt.Printf("swtiles-read %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	archivePath, cmd := args[0], args[1]
	rest := args[2:]

	r, err := archive.OpenReader(archivePath)
	if err != nil {
		log.Fatalf("Opening %s: %v", archivePath, err)
	}
	defer r.Close()

	switch cmd {
	case "info":
		runInfo(r)
	case "tile":
		runTile(r, rest)
	case "scan":
		runScan(r, rest)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func runInfo(r *archive.Reader) {
	h := r.Header()
	fmt.Printf("crs_code:     %d\n", h.CRSCode)
	fmt.Printf("data_type:    %d\n", h.DataType)
	fmt.Printf("image_format: %s\n", imagefmt.Name(h.ImageFormat))
	fmt.Printf("tile_px:      %d\n", h.TilePx)
	fmt.Printf("bounds:       [%g, %g] - [%g, %g]\n", h.BoundsMinE, h.BoundsMinN, h.BoundsMaxE, h.BoundsMaxN)
	fmt.Printf("num_levels:   %d\n\n", h.NumLevels)

	for _, lvl := range r.Levels() {
		fmt.Printf("level %d: resolution=%g tile_extent=%g grid=%dx%d tiles=%d\n",
			lvl.LevelID, lvl.ResolutionM, lvl.TileExtentM, lvl.GridCols, lvl.GridRows, lvl.TileCount)
	}
}

func runTile(r *archive.Reader, args []string) {
	if len(args) != 3 {
		log.Fatal("Usage: swtiles-read <archive> tile <level> <row> <col>")
	}
	levelID := mustParseUint8(args[0])
	row := mustParseInt(args[1])
	col := mustParseInt(args[2])

	data, err := r.ReadTile(levelID, row, col)
	if err != nil {
		log.Fatalf("ReadTile(%d,%d,%d): %v", levelID, row, col, err)
	}
	if data == nil {
		fmt.Printf("(%d,%d) is absent\n", row, col)
		return
	}

	n := len(data)
	preview := n
	if preview > 32 {
		preview = 32
	}
	fmt.Printf("(%d,%d): %d byte(s), leading bytes: %s\n", row, col, n, hex.EncodeToString(data[:preview]))
}

func runScan(r *archive.Reader, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: swtiles-read <archive> scan <level>")
	}
	levelID := mustParseUint8(args[0])

	entries, err := r.ScanLevel(levelID)
	if err != nil {
		log.Fatalf("ScanLevel(%d): %v", levelID, err)
	}
	for _, e := range entries {
		fmt.Printf("(%d,%d) offset=%d length=%d\n", e.Row, e.Col, e.Offset, e.Length)
	}
	fmt.Printf("%d populated cell(s)\n", len(entries))
}

func mustParseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid integer %q: %v", s, err)
	}
	return v
}

func mustParseUint8(s string) uint8 {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		log.Fatalf("invalid level id %q: %v", s, err)
	}
	return uint8(v)
}
