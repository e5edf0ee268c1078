package markers

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pompom/internal/geometry"
)

// LayoutEntry places one marker ID in projector space.
type LayoutEntry struct {
	ID int     `yaml:"id" json:"id"`
	X  float64 `yaml:"x" json:"x"`
	Y  float64 `yaml:"y" json:"y"`
}

// Layout is the caller-known projector-space position of each marker.
type Layout struct {
	Width   int           `yaml:"width" json:"width"`
	Height  int           `yaml:"height" json:"height"`
	Markers []LayoutEntry `yaml:"markers" json:"markers"`
}

// DefaultLayout places IDs 0..3 clockwise from the top-left corner of a
// w x h output, inset from the edges.
func DefaultLayout(w, h int, inset float64) Layout {
	fw, fh := float64(w), float64(h)
	return Layout{
		Width:  w,
		Height: h,
		Markers: []LayoutEntry{
			{ID: 0, X: inset, Y: inset},
			{ID: 1, X: fw - inset, Y: inset},
			{ID: 2, X: fw - inset, Y: fh - inset},
			{ID: 3, X: inset, Y: fh - inset},
		},
	}
}

// Position returns the projector-space position of id.
func (l Layout) Position(id int) (geometry.Point, bool) {
	for _, e := range l.Markers {
		if e.ID == id {
			return geometry.Point{X: e.X, Y: e.Y}, true
		}
	}
	return geometry.Point{}, false
}

// Validate rejects layouts with too few or duplicate markers.
func (l Layout) Validate() error {
	if len(l.Markers) < 4 {
		return fmt.Errorf("layout needs at least 4 markers, has %d", len(l.Markers))
	}
	ids := make([]int, len(l.Markers))
	for i, e := range l.Markers {
		ids[i] = e.ID
	}
	sort.Ints(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return fmt.Errorf("layout lists marker %d twice", ids[i])
		}
	}
	return nil
}

// LoadLayout reads a YAML layout file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-provided layout file is expected
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read layout file: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("failed to parse layout file: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	return l, nil
}

// SaveLayout writes l as YAML.
func SaveLayout(path string, l Layout) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	return nil
}
