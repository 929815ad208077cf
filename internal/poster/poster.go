// Package poster burns an overlay.Spec onto poster bytes.
//
// Compositing is strictly best effort: whatever goes wrong, the caller gets
// the original bytes back and the poster is served as it was.
package poster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"ratingposter/internal/logging"
	"ratingposter/internal/overlay"
)

// ErrImageDecode covers undecodable bytes and images without dimensions.
var ErrImageDecode = errors.New("poster: undecodable image")

// BandColor is the band background: black at 75% opacity.
var BandColor = color.NRGBA{R: 0, G: 0, B: 0, A: 191}

// DefaultJPEGQuality is used when re-encoding JPEG (and non-PNG) posters.
const DefaultJPEGQuality = 90

var boldFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// Compositor draws rating bands onto posters. It is safe for concurrent use.
type Compositor struct {
	quality int
	log     *zap.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithJPEGQuality sets the JPEG encode quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(c *Compositor) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// WithLogger sets the logger used to report skipped composites.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{quality: DefaultJPEGQuality, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dimensions reads the image size from its header.
func Dimensions(src []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: missing dimensions", ErrImageDecode)
	}
	return cfg.Width, cfg.Height, nil
}

// Composite returns src with spec burned in and true, or src itself and
// false when spec is empty or anything about the image prevents drawing it.
// It never fails.
func (c *Compositor) Composite(src []byte, spec overlay.Spec) ([]byte, bool) {
	if spec.Empty() {
		return src, false
	}
	out, err := c.composite(src, spec)
	if err != nil {
		logging.OrNop(c.log).Warn("poster left unchanged", zap.Error(err))
		return src, false
	}
	return out, true
}

func (c *Compositor) composite(src []byte, spec overlay.Spec) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: missing dimensions", ErrImageDecode)
	}
	if b.Dx() != spec.Width || b.Dy() != spec.Height {
		return nil, fmt.Errorf("poster: overlay laid out for %dx%d, image is %dx%d", spec.Width, spec.Height, b.Dx(), b.Dy())
	}
	if spec.BandHeight <= 0 || spec.BandHeight > spec.Height {
		return nil, fmt.Errorf("poster: band height %d does not fit image height %d", spec.BandHeight, spec.Height)
	}
	if spec.ItemHeight <= 0 {
		return nil, fmt.Errorf("poster: %dpx wide image is too small for badges", spec.Width)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	top := spec.BandTop()
	draw.Draw(canvas, image.Rect(0, top, spec.Width, spec.Height), image.NewUniform(BandColor), image.Point{}, draw.Over)

	face, err := scoreFace(spec.ItemHeight)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	size := spec.ItemHeight
	for _, badge := range spec.Badges {
		x, y := badge.X, top+badge.Y
		if err := drawAsset(canvas, badge.Asset, image.Rect(x, y, x+size, y+size)); err != nil {
			return nil, err
		}
		d := font.Drawer{
			Dst:  canvas,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(x+size+size/3, y+size),
		}
		d.DrawString(badge.Score)
	}

	quality := c.quality
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, canvas)
	} else {
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("poster: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func scoreFace(px int) (font.Face, error) {
	f, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("poster: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("poster: font face: %w", err)
	}
	return face, nil
}

// drawAsset rasterizes the badge SVG into r.
func drawAsset(dst *image.RGBA, asset overlay.Asset, r image.Rectangle) error {
	src, err := asset.SVG()
	if err != nil {
		return err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(src), oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("poster: parse badge %q: %w", asset, err)
	}
	icon.SetTarget(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return nil
}
