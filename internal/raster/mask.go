// Package raster provides the single-channel stencil masks exchanged between
// the resampler and the shape classifier.
package raster

import (
	"fmt"
	"image"
	"image/color"
)

// ForegroundCutoff is the fixed alpha level above which a pixel is foreground.
const ForegroundCutoff uint8 = 127

// Mask is a width x height grid of 8-bit alpha values stored row-major.
// A Mask is treated as immutable once handed to another stage.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// New returns an empty (fully background) mask.
func New(w, h int) Mask {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// Len returns the number of pixels.
func (m Mask) Len() int { return m.Width * m.Height }

// In reports whether (x, y) lies inside the mask.
func (m Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the alpha at (x, y), or 0 outside the mask.
func (m Mask) At(x, y int) uint8 {
	if !m.In(x, y) {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the alpha at (x, y); writes outside the mask are dropped.
func (m Mask) Set(x, y int, v uint8) {
	if m.In(x, y) {
		m.Pix[y*m.Width+x] = v
	}
}

// Foreground reports whether (x, y) is above ForegroundCutoff.
func (m Mask) Foreground(x, y int) bool { return m.At(x, y) > ForegroundCutoff }

// Count returns the number of foreground pixels.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v > ForegroundCutoff {
			n++
		}
	}
	return n
}

// Equal reports whether both masks have identical size and contents.
func (m Mask) Equal(o Mask) bool {
	if m.Width != o.Width || m.Height != o.Height || len(m.Pix) != len(o.Pix) {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Validate checks that Pix matches the declared dimensions.
func (m Mask) Validate() error {
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("negative mask size %dx%d", m.Width, m.Height)
	}
	if len(m.Pix) != m.Width*m.Height {
		return fmt.Errorf("mask has %d pixels, expected %dx%d", len(m.Pix), m.Width, m.Height)
	}
	return nil
}

// FromImage extracts a mask from img. The alpha channel is used when the
// image carries any transparency; fully opaque images fall back to luminance
// so plain black-and-white stencils work too.
func FromImage(img image.Image) Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	opaque := true
	for y := range m.Height {
		for x := range m.Width {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.Pix[y*m.Width+x] = uint8(a >> 8)
			if a>>8 != 0xff {
				opaque = false
			}
		}
	}
	if !opaque {
		return m
	}
	for y := range m.Height {
		for x := range m.Width {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Pix[y*m.Width+x] = g.Y
		}
	}
	return m
}

// Image renders the mask as white with the mask as alpha.
func (m Mask) Image() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		o := i * 4
		out.Pix[o] = 0xff
		out.Pix[o+1] = 0xff
		out.Pix[o+2] = 0xff
		out.Pix[o+3] = v
	}
	return out
}

// FromAlpha copies the alpha channel of img without the luminance fallback.
func FromAlpha(img *image.NRGBA) Mask {
	b := img.Rect
	m := New(b.Dx(), b.Dy())
	for y := range m.Height {
		row := img.Pix[y*img.Stride:]
		for x := range m.Width {
			m.Pix[y*m.Width+x] = row[x*4+3]
		}
	}
	return m
}
