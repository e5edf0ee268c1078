package shapes

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette holds the preview colours of the three panel partitions.
type Palette struct {
	Islands colorful.Color
	Land    colorful.Color
	Water   colorful.Color
}

// DefaultPalette returns green islands, sand land and blue water.
func DefaultPalette() Palette {
	p, _ := ParsePalette("#2ecc71", "#c2a36b", "#1f4e79")
	return p
}

// ParsePalette parses three hex colours.
func ParsePalette(islands, land, water string) (Palette, error) {
	var p Palette
	for _, f := range []struct {
		name string
		hex  string
		dst  *colorful.Color
	}{
		{"islands", islands, &p.Islands},
		{"land", land, &p.Land},
		{"water", water, &p.Water},
	} {
		c, err := colorful.Hex(f.hex)
		if err != nil {
			return Palette{}, fmt.Errorf("invalid %s colour %q: %w", f.name, f.hex, err)
		}
		*f.dst = c
	}
	return p, nil
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

// Preview renders the three partitions of r in the palette colours.
func (r PanelResult) Preview(p Palette) *image.NRGBA {
	w, h := r.Water.Width, r.Water.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	islands, land, water := toNRGBA(p.Islands), toNRGBA(p.Land), toNRGBA(p.Water)
	for i := range r.Water.Pix {
		c := water
		switch {
		case r.Islands.Pix[i] != 0:
			c = islands
		case r.Land.Pix[i] != 0:
			c = land
		}
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = c.R, c.G, c.B, c.A
	}
	return out
}
