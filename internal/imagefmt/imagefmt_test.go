package imagefmt

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/dtoblo/swtiles/internal/archive"
)

func TestDecode_PNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	got, err := Decode(buf.Bytes(), archive.ImageFormatPNG)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", got.Bounds(), img.Bounds())
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	if _, err := Decode([]byte("whatever"), 99); err == nil {
		t.Fatal("Decode with unknown format should error")
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		format uint8
		want   string
	}{
		{archive.ImageFormatPNG, "png"},
		{archive.ImageFormatJPEG, "jpeg"},
		{archive.ImageFormatWebP, "webp"},
		{archive.ImageFormatAVIF, "avif"},
	}
	for _, tt := range tests {
		if got := Name(tt.format); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
