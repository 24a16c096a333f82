package camera

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/bulletkit/pkg/sim"
)

// Frame is one captured image. All three layers have Width*Height pixels
// stored row by row from the top-left corner.
type Frame struct {
	Width  int
	Height int

	Color *image.RGBA
	// Depth is the distance along the view axis in world units.
	Depth []float32
	// RawDepth is the engine's non-linear depth buffer.
	RawDepth []float32

	Segmentation Mask
}

// DepthAt returns the linear depth of pixel (x, y).
func (f *Frame) DepthAt(x, y int) float32 {
	return f.Depth[y*f.Width+x]
}

// Checksum hashes the color, depth and segmentation layers. Two frames of
// an unchanged scene have the same checksum.
func (f *Frame) Checksum() uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(buf[4:], uint32(f.Height))
	_, _ = h.Write(buf[:])
	if f.Color != nil {
		_, _ = h.Write(f.Color.Pix)
	}
	for _, d := range f.RawDepth {
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(d))
		_, _ = h.Write(buf[:4])
	}
	for _, v := range f.Segmentation.Values {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
		_, _ = h.Write(buf[:4])
	}
	return h.Sum64()
}

// Mask is a segmentation image. Each value encodes the body and link seen
// at a pixel, or -1 for none.
type Mask struct {
	Width  int
	Height int
	Values []int32
}

// At decodes pixel (x, y). ok is false when no body is visible.
func (m Mask) At(x, y int) (body sim.BodyID, link sim.LinkIndex, ok bool) {
	return sim.DecodeSegment(m.Values[y*m.Width+x])
}

// Bodies returns the visible bodies in ascending order.
func (m Mask) Bodies() []sim.BodyID {
	seen := make(map[sim.BodyID]bool)
	for _, v := range m.Values {
		if body, _, ok := sim.DecodeSegment(v); ok {
			seen[body] = true
		}
	}
	out := make([]sim.BodyID, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Coverage returns the fraction of pixels showing body.
func (m Mask) Coverage(body sim.BodyID) float64 {
	if len(m.Values) == 0 {
		return 0
	}
	n := 0
	for _, v := range m.Values {
		if b, _, ok := sim.DecodeSegment(v); ok && b == body {
			n++
		}
	}
	return float64(n) / float64(len(m.Values))
}

// Image paints each body and link in a stable color and the background
// black.
func (m Mask) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		if v < 0 {
			img.SetRGBA(i%m.Width, i/m.Width, color.RGBA{A: 255})
			continue
		}
		img.SetRGBA(i%m.Width, i/m.Width, segmentColor(v))
	}
	return img
}

func segmentColor(v int32) color.RGBA {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	h := xxhash.Sum64(buf[:])
	// Every component is at least 0x40, never black.
	return color.RGBA{R: uint8(h) | 0x40, G: uint8(h>>8) | 0x40, B: uint8(h>>16) | 0x40, A: 255}
}
