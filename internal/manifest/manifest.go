// Package manifest parses a mosaic manifest (a VRT-style XML document
// describing a virtual mosaic of source rasters) into a normalized list of
// tile placements.
package manifest

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrManifestMalformed is returned when required elements are missing,
// numeric attributes are non-numeric, or the spatial reference cannot be
// reduced to a positive integer CRS code.
var ErrManifestMalformed = fmt.Errorf("manifest malformed")

// Placement is one source entry: a payload reference plus its pixel
// position within the mosaic's pixel grid.
type Placement struct {
	Path string // resolved absolute path
	XOff int    // pixel offset within the mosaic, x axis
	YOff int    // pixel offset within the mosaic, y axis
}

// Info is the normalized result of parsing a manifest.
type Info struct {
	RasterX    int
	RasterY    int
	OriginE    float64 // easting of the mosaic's left edge
	OriginN    float64 // northing of the mosaic's top edge
	PixelSize  float64 // absolute value, metres per pixel
	CRSCode    int
	Placements []Placement
}

// vrtDataset mirrors the subset of VRT XML this package cares about.
// Struct shape and xml tags follow the same unmarshal-then-flatten idiom
// used for WMTS capabilities parsing: a typed tree via xml.Unmarshal,
// flattened into caller-facing values afterward.
type vrtDataset struct {
	XMLName      xml.Name   `xml:"VRTDataset"`
	RasterXSize  string     `xml:"rasterXSize,attr"`
	RasterYSize  string     `xml:"rasterYSize,attr"`
	SRS          string     `xml:"SRS"`
	GeoTransform string     `xml:"GeoTransform"`
	Bands        []vrtBand  `xml:"VRTRasterBand"`
}

type vrtBand struct {
	Sources []vrtSimpleSource `xml:"SimpleSource"`
}

type vrtSimpleSource struct {
	SourceFilename vrtSourceFilename `xml:"SourceFilename"`
	DstRect        *vrtRect          `xml:"DstRect"`
}

type vrtSourceFilename struct {
	RelativeToVRT string `xml:"relativeToVRT,attr"`
	Path          string `xml:",chardata"`
}

type vrtRect struct {
	XOff string `xml:"xOff,attr"`
	YOff string `xml:"yOff,attr"`
}

// Parse reads the manifest at path and returns its normalized Info.
func Parse(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var doc vrtDataset
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: parsing XML: %v", ErrManifestMalformed, path, err)
	}

	rasterX, err := strconv.Atoi(doc.RasterXSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: rasterXSize %q is not numeric", ErrManifestMalformed, path, doc.RasterXSize)
	}
	rasterY, err := strconv.Atoi(doc.RasterYSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: rasterYSize %q is not numeric", ErrManifestMalformed, path, doc.RasterYSize)
	}

	crsCode, err := extractCRS(doc.SRS)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestMalformed, path, err)
	}

	originE, _, originN, pixelSize, err := parseGeoTransform(doc.GeoTransform)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestMalformed, path, err)
	}

	baseDir := filepath.Dir(path)
	var placements []Placement
	for _, band := range doc.Bands {
		for _, src := range band.Sources {
			srcPath := strings.TrimSpace(src.SourceFilename.Path)
			if srcPath == "" || src.DstRect == nil {
				continue // §6.1: entries missing SourceFilename or DstRect are skipped silently
			}

			xOff, err := strconv.Atoi(src.DstRect.XOff)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: DstRect xOff %q is not numeric", ErrManifestMalformed, path, src.DstRect.XOff)
			}
			yOff, err := strconv.Atoi(src.DstRect.YOff)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: DstRect yOff %q is not numeric", ErrManifestMalformed, path, src.DstRect.YOff)
			}

			resolved := srcPath
			if src.SourceFilename.RelativeToVRT == "1" && !filepath.IsAbs(srcPath) {
				resolved = filepath.Join(baseDir, srcPath)
			}
			if abs, err := filepath.Abs(resolved); err == nil {
				resolved = abs
			}

			placements = append(placements, Placement{Path: resolved, XOff: xOff, YOff: yOff})
		}
	}

	return &Info{
		RasterX:    rasterX,
		RasterY:    rasterY,
		OriginE:    originE,
		OriginN:    originN,
		PixelSize:  pixelSize,
		CRSCode:    crsCode,
		Placements: placements,
	}, nil
}

// parseGeoTransform parses the six comma-separated GeoTransform doubles
// (origin_e, px_x, row_x, origin_n, col_y, px_y) and returns origin_e,
// px_x, origin_n, and the pixel size (|px_x|, which must equal |px_y|).
func parseGeoTransform(raw string) (originE, pxX, originN, pixelSize float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 6 {
		return 0, 0, 0, 0, fmt.Errorf("GeoTransform has %d components, want 6", len(parts))
	}

	vals := make([]float64, 6)
	for i, p := range parts {
		v, perr := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if perr != nil {
			return 0, 0, 0, 0, fmt.Errorf("GeoTransform component %d (%q) is not numeric", i, p)
		}
		vals[i] = v
	}

	originE, pxX, originN, pxY := vals[0], vals[1], vals[3], vals[5]
	if math.Abs(math.Abs(pxX)-math.Abs(pxY)) > 1e-9 {
		return 0, 0, 0, 0, fmt.Errorf("GeoTransform pixel size mismatch: |px_x|=%g, |px_y|=%g", math.Abs(pxX), math.Abs(pxY))
	}

	return originE, pxX, originN, math.Abs(pxX), nil
}

var authorityRe = regexp.MustCompile(`AUTHORITY\s*\[\s*"[^"]*"\s*,\s*"?(\d+)"?\s*\]`)
var crsTagRe = regexp.MustCompile(`CRS:(\d+)`)

// extractCRS resolves a spatial reference string to a positive integer CRS
// code, in rule order: explicit authority-code clause, bare CRS:NNNN
// substring, domain heuristic (SWEREF99 TM → 3006). The first rule that
// matches wins.
func extractCRS(srs string) (int, error) {
	if m := authorityRe.FindStringSubmatch(srs); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil && code > 0 {
			return code, nil
		}
	}

	if m := crsTagRe.FindStringSubmatch(srs); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil && code > 0 {
			return code, nil
		}
	}

	if strings.Contains(srs, "SWEREF99 TM") {
		return 3006, nil
	}

	return 0, fmt.Errorf("could not resolve SRS %q to a CRS code", srs)
}
