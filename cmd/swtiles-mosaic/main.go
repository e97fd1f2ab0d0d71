package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

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
	var (
		scale       int
		debug       bool
		showVersion bool
	)

	flag.IntVar(&scale, "scale", 1, "Downscale factor applied to the composited overview (1 = full resolution)")
	flag.BoolVar(&debug, "debug", false, "Overlay a grid with populated/absent cell markers")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: swtiles-mosaic [flags] <archive.swtiles> <level> <output.png>\n\n")
		fmt.Fprintf(os.Stderr, "Reconstruct a spatially correct overview image of one level, for\n")
		fmt.Fprintf(os.Stderr, "visual verification. This is a diagnostic tool, not part of the codec.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("swtiles-mosaic %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 3 {
		flag.Usage()
		os.Exit(1)
	}
	archivePath := args[0]
	levelID, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		log.Fatalf("invalid level id %q: %v", args[1], err)
	}
	outputPath := args[2]
	if scale < 1 {
		log.Fatal("-scale must be >= 1")
	}

	r, err := archive.OpenReader(archivePath)
	if err != nil {
		log.Fatalf("Opening %s: %v", archivePath, err)
	}
	defer r.Close()

	lvl, err := levelByID(r, uint8(levelID))
	if err != nil {
		log.Fatal(err)
	}

	img, populated, err := buildMosaic(r, lvl, scale)
	if err != nil {
		log.Fatalf("Building mosaic: %v", err)
	}

	if debug {
		img = overlayGrid(img, lvl, populated)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("Creating %s: %v", outputPath, err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		log.Fatalf("Encoding PNG: %v", err)
	}

	fmt.Printf("Wrote %s (%dx%d)\n", outputPath, img.Bounds().Dx(), img.Bounds().Dy())
}

func levelByID(r *archive.Reader, id uint8) (archive.LevelEntry, error) {
	for _, lvl := range r.Levels() {
		if lvl.LevelID == id {
			return lvl, nil
		}
	}
	return archive.LevelEntry{}, fmt.Errorf("no such level: %d", id)
}

// buildMosaic decodes every populated tile in lvl and composites it into a
// single canvas at its grid position, downscaled by scale. It also returns
// the set of (row, col) cells it drew, for overlayGrid's benefit; a
// populated cell whose payload fails to decode is not in the set.
func buildMosaic(r *archive.Reader, lvl archive.LevelEntry, scale int) (image.Image, map[[2]int]bool, error) {
	tilePx := r.Header().TilePx
	cellPx := int(tilePx) / scale
	if cellPx < 1 {
		cellPx = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, int(lvl.GridCols)*cellPx, int(lvl.GridRows)*cellPx))
	populated := make(map[[2]int]bool)

	entries, err := r.ScanLevel(lvl.LevelID)
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		data, err := r.ReadTile(lvl.LevelID, e.Row, e.Col)
		if err != nil {
			return nil, nil, fmt.Errorf("reading tile (%d,%d): %w", e.Row, e.Col, err)
		}
		if data == nil {
			continue
		}

		tileImg, err := imagefmt.Decode(data, r.Header().ImageFormat)
		if err != nil {
			log.Printf("Warning: skipping (%d,%d), decode failed: %v", e.Row, e.Col, err)
			continue
		}

		dstX := e.Col * cellPx
		dstY := e.Row * cellPx
		dstRect := image.Rect(dstX, dstY, dstX+cellPx, dstY+cellPx)
		draw.CatmullRom.Scale(canvas, dstRect, tileImg, tileImg.Bounds(), draw.Over, nil)
		populated[[2]int{e.Row, e.Col}] = true
	}

	return canvas, populated, nil
}

// overlayGrid draws cell boundaries over img and shades undrawn cells red,
// for visual verification of coverage.
func overlayGrid(img image.Image, lvl archive.LevelEntry, populated map[[2]int]bool) image.Image {
	b := img.Bounds()
	dc := gg.NewContextForImage(img)

	cellW := float64(b.Dx()) / float64(lvl.GridCols)
	cellH := float64(b.Dy()) / float64(lvl.GridRows)

	dc.SetColor(color.RGBA{R: 255, A: 80})
	for row := 0; row < int(lvl.GridRows); row++ {
		for col := 0; col < int(lvl.GridCols); col++ {
			if populated[[2]int{row, col}] {
				continue
			}
			dc.DrawRectangle(float64(col)*cellW, float64(row)*cellH, cellW, cellH)
			dc.Fill()
		}
	}

	dc.SetLineWidth(1)
	dc.SetColor(color.RGBA{A: 120})
	for col := 0; col <= int(lvl.GridCols); col++ {
		x := float64(col) * cellW
		dc.DrawLine(x, 0, x, float64(b.Dy()))
	}
	for row := 0; row <= int(lvl.GridRows); row++ {
		y := float64(row) * cellH
		dc.DrawLine(0, y, float64(b.Dx()), y)
	}
	dc.Stroke()

	return dc.Image()
}
