package testutil

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

// Stencil draws opaque white shapes onto a transparent canvas, the same form
// a segmentation service hands back.
type Stencil struct {
	dc *gg.Context
}

// NewStencil returns an empty w x h stencil.
func NewStencil(w, h int) *Stencil {
	dc := gg.NewContext(w, h)
	dc.SetRGBA(1, 1, 1, 1)
	return &Stencil{dc: dc}
}

// Rect fills the axis-aligned rectangle with top-left (x, y).
func (s *Stencil) Rect(x, y, w, h float64) *Stencil {
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
	return s
}

// Disk fills a circle of radius r centred at (cx, cy).
func (s *Stencil) Disk(cx, cy, r float64) *Stencil {
	s.dc.DrawCircle(cx, cy, r)
	s.dc.Fill()
	return s
}

// Ellipse fills an axis-aligned ellipse.
func (s *Stencil) Ellipse(cx, cy, rx, ry float64) *Stencil {
	s.dc.DrawEllipse(cx, cy, rx, ry)
	s.dc.Fill()
	return s
}

// Quad fills the quadrilateral q.
func (s *Stencil) Quad(q geometry.Quad) *Stencil {
	c := q.Corners()
	s.dc.MoveTo(c[0].X, c[0].Y)
	for _, p := range c[1:] {
		s.dc.LineTo(p.X, p.Y)
	}
	s.dc.ClosePath()
	s.dc.Fill()
	return s
}

// Image returns the drawn canvas.
func (s *Stencil) Image() image.Image { return s.dc.Image() }

// Mask returns the canvas alpha as a raster mask.
func (s *Stencil) Mask() raster.Mask { return raster.FromImage(s.dc.Image()) }

// SaveImage writes img as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// SaveStencil writes s into dir under name and returns the path.
func SaveStencil(t *testing.T, s *Stencil, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	SaveImage(t, s.Image(), path)
	return path
}
