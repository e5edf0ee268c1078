// Package warp resamples rasters from camera space into projector space
// through a homography.
//
// Every destination pixel centre is mapped back through the inverse
// transform into the source raster. Samples that land outside the source are
// written fully transparent; nothing is clamped or wrapped, so the border of a
// stencil never grows false content.
package warp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/homography"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

var (
	// ErrDegenerateTransform is returned when the homography cannot be inverted.
	ErrDegenerateTransform = errors.New("degenerate transform")
	// ErrInvalidSize is returned for non-positive destination sizes.
	ErrInvalidSize = errors.New("invalid destination size")
	// ErrUnknownMode is returned for a Kind outside the defined modes.
	ErrUnknownMode = errors.New("unknown warp mode")
)

// Kind selects how source samples become destination pixels.
type Kind int

const (
	// KindCopy bilinearly samples source colour, used for surface previews.
	KindCopy Kind = iota
	// KindBinarizeAlpha turns source alpha above Threshold into opaque white
	// and everything else into transparent, used for stencils.
	KindBinarizeAlpha
)

// String returns the mode name used in config and logs.
func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindBinarizeAlpha:
		return "binarize"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode is a sampling mode together with its parameters.
type Mode struct {
	Kind      Kind
	Threshold uint8
}

// ModeCopy returns the colour-preserving mode.
func ModeCopy() Mode { return Mode{Kind: KindCopy} }

// ModeBinarize returns the stencil mode with the given alpha threshold.
func ModeBinarize(threshold uint8) Mode {
	return Mode{Kind: KindBinarizeAlpha, Threshold: threshold}
}

// Resampler warps images. Implementations must produce identical pixels for
// identical inputs.
type Resampler interface {
	Warp(ctx context.Context, src image.Image, h homography.Homography, dstW, dstH int, mode Mode) (*image.NRGBA, error)
	Close() error
}

// job is one prepared warp: normalised source, inverse transform and output.
type job struct {
	src  *image.NRGBA
	inv  homography.Homography
	dst  *image.NRGBA
	mode Mode
}

// prepare validates inputs and allocates the destination.
func prepare(src image.Image, h homography.Homography, dstW, dstH int, mode Mode) (job, error) {
	if src == nil {
		return job{}, errors.New("warp: nil source image")
	}
	if dstW <= 0 || dstH <= 0 {
		return job{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, dstW, dstH)
	}
	if mode.Kind != KindCopy && mode.Kind != KindBinarizeAlpha {
		return job{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode.Kind)
	}
	inv, err := h.Invert()
	if err != nil {
		return job{}, fmt.Errorf("%w: %w", ErrDegenerateTransform, err)
	}
	return job{
		src:  toNRGBA(src),
		inv:  inv,
		dst:  image.NewNRGBA(image.Rect(0, 0, dstW, dstH)),
		mode: mode,
	}, nil
}

// toNRGBA returns src as a zero-origin *image.NRGBA, copying only when needed.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(src)
}

// sourceCoord maps the centre of destination pixel (x, y) into continuous
// source coordinates, where source pixel i covers [i, i+1).
func sourceCoord(inv homography.Homography, x, y int) (float64, float64, bool) {
	p, ok := inv.ApplyOK(geometry.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	return p.X, p.Y, ok
}

// inSource reports whether (sx, sy) lies inside a w x h raster, i.e. the
// normalised coordinate is within [0,1) on both axes.
func inSource(sx, sy float64, w, h int) bool {
	return sx >= 0 && sy >= 0 && sx < float64(w) && sy < float64(h)
}

// rows renders destination rows [y0, y1).
func (j job) rows(y0, y1 int) {
	sw, sh := j.src.Rect.Dx(), j.src.Rect.Dy()
	dw := j.dst.Rect.Dx()
	for y := y0; y < y1; y++ {
		row := j.dst.Pix[y*j.dst.Stride : y*j.dst.Stride+dw*4]
		for x := range dw {
			sx, sy, ok := sourceCoord(j.inv, x, y)
			if !ok || !inSource(sx, sy, sw, sh) {
				continue // destination starts transparent
			}
			o := x * 4
			switch j.mode.Kind {
			case KindBinarizeAlpha:
				if nearestAlpha(j.src, sx, sy) > j.mode.Threshold {
					row[o], row[o+1], row[o+2], row[o+3] = 0xff, 0xff, 0xff, 0xff
				}
			case KindCopy:
				r, g, b, a := bilinearSample(j.src, sx-0.5, sy-0.5)
				row[o], row[o+1], row[o+2], row[o+3] = r, g, b, a
			}
		}
	}
}

func nearestAlpha(src *image.NRGBA, sx, sy float64) uint8 {
	return src.Pix[int(sy)*src.Stride+int(sx)*4+3]
}

// bilinearSample interpolates the four pixels around (x, y). Neighbours past
// the last row or column reuse the edge pixel; callers have already rejected
// coordinates outside the raster.
func bilinearSample(src *image.NRGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	x = math.Max(0, x)
	y = math.Max(0, y)
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	x0, y0 = min(x0, w-1), min(y0, h-1)
	fx := x - float64(x0)
	fy := y - float64(y0)
	if fx < 0 {
		fx = 0
	}
	if fy < 0 {
		fy = 0
	}

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]
	var out [4]uint8
	for c := range 4 {
		top := lerp(float64(p00[c]), float64(p10[c]), fx)
		bottom := lerp(float64(p01[c]), float64(p11[c]), fx)
		out[c] = uint8(lerp(top, bottom, fy) + 0.5)
	}
	return out[0], out[1], out[2], out[3]
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Warp resamples src into a dstW x dstH raster. h maps source coordinates to
// destination coordinates. This is the sequential reference implementation.
func Warp(src image.Image, h homography.Homography, dstW, dstH int, mode Mode) (*image.NRGBA, error) {
	return CPU{}.Warp(context.Background(), src, h, dstW, dstH, mode)
}

// WarpMask resamples a stencil mask, binarising at threshold: source alpha
// above threshold becomes 255, everything else 0.
func WarpMask(src raster.Mask, h homography.Homography, dstW, dstH int, threshold uint8) (raster.Mask, error) {
	if err := src.Validate(); err != nil {
		return raster.Mask{}, fmt.Errorf("warp mask: %w", err)
	}
	if dstW <= 0 || dstH <= 0 {
		return raster.Mask{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, dstW, dstH)
	}
	inv, err := h.Invert()
	if err != nil {
		return raster.Mask{}, fmt.Errorf("%w: %w", ErrDegenerateTransform, err)
	}
	out := raster.New(dstW, dstH)
	for y := range dstH {
		for x := range dstW {
			sx, sy, ok := sourceCoord(inv, x, y)
			if !ok || !inSource(sx, sy, src.Width, src.Height) {
				continue
			}
			if src.Pix[int(sy)*src.Width+int(sx)] > threshold {
				out.Pix[y*dstW+x] = 0xff
			}
		}
	}
	return out, nil
}

// CPU is the sequential resampler. It holds no resources.
type CPU struct{}

// cpuCheckRows is how many rows CPU renders between context checks.
const cpuCheckRows = 64

// Warp implements Resampler.
func (CPU) Warp(ctx context.Context, src image.Image, h homography.Homography, dstW, dstH int, mode Mode) (*image.NRGBA, error) {
	j, err := prepare(src, h, dstW, dstH, mode)
	if err != nil {
		return nil, err
	}
	for y := 0; y < dstH; y += cpuCheckRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j.rows(y, min(y+cpuCheckRows, dstH))
	}
	return j.dst, nil
}

// Close implements Resampler.
func (CPU) Close() error { return nil }
