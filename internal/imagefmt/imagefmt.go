// Package imagefmt decodes tile payload bytes into an image.Image for the
// mosaic and debug-overlay tools. The archive codec itself never decodes
// payloads; it treats them as opaque byte blobs.
package imagefmt

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/webp"

	"github.com/dtoblo/swtiles/internal/archive"
)

// Decode decodes tile bytes according to the archive's image_format byte.
func Decode(data []byte, format uint8) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case archive.ImageFormatPNG:
		return png.Decode(r)
	case archive.ImageFormatJPEG:
		return jpeg.Decode(r)
	case archive.ImageFormatWebP:
		return webp.Decode(r)
	case archive.ImageFormatAVIF:
		return nil, fmt.Errorf("imagefmt: AVIF decode is not supported")
	default:
		return nil, fmt.Errorf("imagefmt: unknown image_format byte %d", format)
	}
}

// Name returns the human-readable name of an image_format byte, for
// logging and CLI output.
func Name(format uint8) string {
	switch format {
	case archive.ImageFormatPNG:
		return "png"
	case archive.ImageFormatJPEG:
		return "jpeg"
	case archive.ImageFormatWebP:
		return "webp"
	case archive.ImageFormatAVIF:
		return "avif"
	default:
		return fmt.Sprintf("unknown(%d)", format)
	}
}
