package camera

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an image file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// ErrUnsupportedFormat reports an image format other than png, tiff or bmp.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseFormat accepts a format name or a file extension with or without
// the dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png", "":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveImage writes img to path, choosing the format from the extension and
// creating the parent directory if needed.
func SaveImage(path string, img image.Image) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := Encode(file, img, format); err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return file.Close()
}

// SaveFrame writes the color layer of f to path.
func SaveFrame(path string, f *Frame) error {
	return SaveImage(path, f.Color)
}

// SaveDepth writes the linear depth of f as a 16-bit grayscale image,
// mapping near to black and far to white.
func SaveDepth(path string, f *Frame, near, far float64) error {
	return SaveImage(path, DepthImage(f, near, far))
}

// SaveSegmentation writes the segmentation mask of f with one color per
// body and link.
func SaveSegmentation(path string, f *Frame) error {
	return SaveImage(path, f.Segmentation.Image())
}

// DepthImage scales linear depth into a 16-bit grayscale image.
func DepthImage(f *Frame, near, far float64) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	span := far - near
	for i, d := range f.Depth {
		v := (float64(d) - near) / span
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		img.SetGray16(i%f.Width, i/f.Width, color.Gray16{Y: uint16(v * 0xffff)})
	}
	return img
}
