package shapes

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/mempool"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

// Kind discriminates the Region variants.
type Kind int

const (
	// KindPanel regions carry the panel-shape verdict.
	KindPanel Kind = iota
	// KindBlob regions carry radius and circularity.
	KindBlob
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindBlob {
		return "blob"
	}
	return "panel"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "panel":
		*k = KindPanel
	case "blob":
		*k = KindBlob
	default:
		return fmt.Errorf("unknown region kind %q", text)
	}
	return nil
}

// Region is the classifier output for one component. Kind selects which of
// the variant fields are meaningful.
type Region struct {
	Component
	Kind Kind `json:"kind"`

	// Panel variant.
	IsPanelShape bool `json:"is_panel_shape,omitempty"`

	// Blob variant.
	EstimatedRadius float64 `json:"estimated_radius,omitempty"`
	Circularity     float64 `json:"circularity,omitempty"`
	IsBlobShape     bool    `json:"is_blob_shape,omitempty"`
}

// Center returns the centre of the region's bounding box.
func (r Region) Center() geometry.Point { return r.Box.Center() }

// PanelProfile describes the near-rectangular "island" target shape.
type PanelProfile struct {
	TargetAspect      float64 `json:"target_aspect"`
	AspectTolerance   float64 `json:"aspect_tolerance"`
	MinRectangularity float64 `json:"min_rectangularity"`
	MinArea           int     `json:"min_area"`
	MaxAreaRatio      float64 `json:"max_area_ratio"`
}

// DefaultPanelProfile returns the standard island thresholds.
func DefaultPanelProfile() PanelProfile {
	return PanelProfile{
		TargetAspect:      1.5,
		AspectTolerance:   0.4,
		MinRectangularity: 0.6,
		MinArea:           2000,
		MaxAreaRatio:      0.15,
	}
}

// Validate checks the profile for usable values.
func (p PanelProfile) Validate() error {
	switch {
	case p.TargetAspect < 1:
		return fmt.Errorf("panel target aspect %.2f must be >= 1", p.TargetAspect)
	case p.AspectTolerance <= 0:
		return errors.New("panel aspect tolerance must be positive")
	case p.MinRectangularity < 0 || p.MinRectangularity > 1:
		return fmt.Errorf("panel min rectangularity %.2f must be within [0,1]", p.MinRectangularity)
	case p.MinArea < 0:
		return fmt.Errorf("panel min area %d must not be negative", p.MinArea)
	case p.MaxAreaRatio <= 0 || p.MaxAreaRatio > 1:
		return fmt.Errorf("panel max area ratio %.2f must be within (0,1]", p.MaxAreaRatio)
	}
	return nil
}

// Passes reports whether c matches the profile within an image of total pixels.
func (p PanelProfile) Passes(c Component, total int) bool {
	if total <= 0 {
		return false
	}
	return math.Abs(c.AspectRatio-p.TargetAspect) < p.AspectTolerance &&
		c.Rectangularity >= p.MinRectangularity &&
		c.PixelCount >= p.MinArea &&
		float64(c.PixelCount)/float64(total) <= p.MaxAreaRatio
}

// BlobProfile describes the near-circular "pom-pom" target shape.
type BlobProfile struct {
	MinRadius      float64 `json:"min_radius"`
	MaxRadius      float64 `json:"max_radius"`
	MinCircularity float64 `json:"min_circularity"`
}

// StrictBlobProfile returns thresholds for clean, well-separated blobs.
func StrictBlobProfile() BlobProfile {
	return BlobProfile{MinRadius: 10, MaxRadius: 100, MinCircularity: 0.6}
}

// LenientBlobProfile returns thresholds that also accept small or ragged blobs.
func LenientBlobProfile() BlobProfile {
	return BlobProfile{MinRadius: 3, MaxRadius: 200, MinCircularity: 0.3}
}

// Validate checks the profile for usable values.
func (p BlobProfile) Validate() error {
	switch {
	case p.MinRadius < 0:
		return fmt.Errorf("blob min radius %.1f must not be negative", p.MinRadius)
	case p.MaxRadius < p.MinRadius:
		return fmt.Errorf("blob max radius %.1f below min radius %.1f", p.MaxRadius, p.MinRadius)
	case p.MinCircularity < 0 || p.MinCircularity > 1:
		return fmt.Errorf("blob min circularity %.2f must be within [0,1]", p.MinCircularity)
	}
	return nil
}

// blobBoxRatio bounds w/h for blobs, exclusive.
const (
	blobMinBoxRatio = 0.4
	blobMaxBoxRatio = 2.5
)

// Evaluate computes the blob features of c and whether it passes.
func (p BlobProfile) Evaluate(c Component) Region {
	r := float64(c.Width+c.Height) / 4
	circ := 0.0
	if r > 0 {
		circ = math.Min(1, float64(c.PixelCount)/(math.Pi*r*r))
	}
	ratio := float64(c.Width) / float64(c.Height)
	pass := r >= p.MinRadius && r <= p.MaxRadius &&
		circ >= p.MinCircularity &&
		ratio > blobMinBoxRatio && ratio < blobMaxBoxRatio
	return Region{
		Component:       c,
		Kind:            KindBlob,
		EstimatedRadius: r,
		Circularity:     circ,
		IsBlobShape:     pass,
	}
}

// PanelResult is the panel classification of one stencil. Islands, Land and
// Water are mutually exclusive and together cover every pixel exactly once.
type PanelResult struct {
	Regions []Region
	Islands raster.Mask // foreground in passing components
	Land    raster.Mask // foreground in failing components
	Water   raster.Mask // background
}

// Panels returns only the regions that passed.
func (r PanelResult) Panels() []Region {
	return filter(r.Regions, func(reg Region) bool { return reg.IsPanelShape })
}

// BlobResult is the blob classification of one stencil.
type BlobResult struct {
	Regions []Region
	Blobs   raster.Mask // foreground in passing components
}

// Passing returns only the regions that passed.
func (r BlobResult) Passing() []Region {
	return filter(r.Regions, func(reg Region) bool { return reg.IsBlobShape })
}

func filter(regions []Region, keep func(Region) bool) []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// ClassifyPanels labels m and classifies every component against p.
func ClassifyPanels(m raster.Mask, p PanelProfile) PanelResult {
	l := Label(m)
	comps := Measure(l)
	total := m.Len()

	regions := make([]Region, len(comps))
	pass := mempool.GetUint8(len(comps) + 1)
	defer mempool.PutUint8(pass)
	for i, c := range comps {
		ok := p.Passes(c, total)
		regions[i] = Region{Component: c, Kind: KindPanel, IsPanelShape: ok}
		if ok {
			pass[c.Label] = 1
		}
	}

	res := PanelResult{
		Regions: regions,
		Islands: raster.New(m.Width, m.Height),
		Land:    raster.New(m.Width, m.Height),
		Water:   raster.New(m.Width, m.Height),
	}
	for i, lab := range l.Labels {
		switch {
		case lab == 0:
			res.Water.Pix[i] = 0xff
		case pass[lab] != 0:
			res.Islands.Pix[i] = 0xff
		default:
			res.Land.Pix[i] = 0xff
		}
	}
	return res
}

// ClassifyBlobs labels m and evaluates every component against p.
func ClassifyBlobs(m raster.Mask, p BlobProfile) BlobResult {
	l := Label(m)
	comps := Measure(l)

	regions := make([]Region, len(comps))
	pass := make([]bool, len(comps)+1)
	for i, c := range comps {
		regions[i] = p.Evaluate(c)
		pass[c.Label] = regions[i].IsBlobShape
	}

	blobs := raster.New(m.Width, m.Height)
	for i, lab := range l.Labels {
		if lab != 0 && pass[lab] {
			blobs.Pix[i] = 0xff
		}
	}
	return BlobResult{Regions: regions, Blobs: blobs}
}

// SortByCenter orders regions row-major by bounding-box centre, giving a
// stable spatial identity that survives relabelling between frames.
func SortByCenter(regions []Region) {
	slices.SortStableFunc(regions, func(a, b Region) int {
		ca, cb := a.Center(), b.Center()
		if ca.Y != cb.Y {
			if ca.Y < cb.Y {
				return -1
			}
			return 1
		}
		switch {
		case ca.X < cb.X:
			return -1
		case ca.X > cb.X:
			return 1
		}
		return 0
	})
}
