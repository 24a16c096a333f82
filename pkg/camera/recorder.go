package camera

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RecorderOptions controls what a Recorder writes.
type RecorderOptions struct {
	Format        Format // frame file format, png when empty
	Depth         bool   // also write a depth image per frame
	Segmentation  bool   // also write a segmentation image per frame
	Label         bool   // draw the frame label in the top-left corner
	GIF           bool   // collect frames into animation.gif on Close
	GIFDelay      int    // delay between GIF frames in 1/100 s
	SkipUnchanged bool   // drop frames whose checksum matches the previous one
}

// Recorder writes captured frames into a fresh session directory.
type Recorder struct {
	dir     string
	session uuid.UUID
	opts    RecorderOptions
	near    float64
	far     float64
	log     *zap.Logger

	count   int
	last    uint64
	hasLast bool
	anim    *gif.GIF
}

// NewRecorder creates outputDir/<session id>. near and far scale the
// depth images.
func NewRecorder(outputDir string, near, far float64, opts RecorderOptions, log *zap.Logger) (*Recorder, error) {
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	session := uuid.New()
	dir := filepath.Join(outputDir, session.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}

	r := &Recorder{dir: dir, session: session, opts: opts, near: near, far: far, log: log}
	if opts.GIF {
		r.anim = &gif.GIF{}
	}
	log.Info("recording frames", zap.String("dir", dir), zap.String("format", string(opts.Format)))
	return r, nil
}

// Dir returns the session directory.
func (r *Recorder) Dir() string { return r.dir }

// Session returns the session id.
func (r *Recorder) Session() uuid.UUID { return r.session }

// Count returns the number of frames written.
func (r *Recorder) Count() int { return r.count }

// Record writes f and returns the path of its color image. The path is
// empty when the frame was skipped as unchanged.
func (r *Recorder) Record(f *Frame, label string) (string, error) {
	sum := f.Checksum()
	if r.opts.SkipUnchanged && r.hasLast && sum == r.last {
		r.log.Debug("frame unchanged, skipped", zap.String("label", label))
		return "", nil
	}
	r.last, r.hasLast = sum, true

	colorImg := f.Color
	if r.opts.Label && label != "" {
		colorImg = drawLabel(f.Color, label)
	}

	base := filepath.Join(r.dir, fmt.Sprintf("frame_%05d", r.count))
	path := base + r.opts.Format.Ext()
	if err := SaveImage(path, colorImg); err != nil {
		return "", err
	}
	if r.opts.Depth {
		if err := SaveImage(base+"_depth"+r.opts.Format.Ext(), DepthImage(f, r.near, r.far)); err != nil {
			return "", err
		}
	}
	if r.opts.Segmentation {
		if err := SaveImage(base+"_seg"+r.opts.Format.Ext(), f.Segmentation.Image()); err != nil {
			return "", err
		}
	}
	if r.anim != nil {
		r.anim.Image = append(r.anim.Image, toPaletted(colorImg))
		r.anim.Delay = append(r.anim.Delay, r.opts.GIFDelay)
	}

	r.count++
	r.log.Debug("frame recorded", zap.String("path", path), zap.Uint64("checksum", sum))
	return path, nil
}

// Close writes the GIF animation, if enabled.
func (r *Recorder) Close() error {
	if r.anim == nil || len(r.anim.Image) == 0 {
		return nil
	}
	path := filepath.Join(r.dir, "animation.gif")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := gif.EncodeAll(file, r.anim); err != nil {
		return fmt.Errorf("encoding GIF: %w", err)
	}
	r.log.Info("animation written", zap.String("path", path), zap.Int("frames", len(r.anim.Image)))
	return file.Close()
}

func toPaletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	p := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(p, b, img, b.Min)
	return p
}

// drawLabel returns a copy of img with text on a dark strip at the top.
func drawLabel(img *image.RGBA, text string) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)

	face := basicfont.Face7x13
	strip := image.Rect(0, 0, img.Bounds().Dx(), face.Height+4)
	draw.Draw(out, strip, image.NewUniform(color.RGBA{A: 200}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(2, face.Ascent+2),
	}
	d.DrawString(text)
	return out
}
