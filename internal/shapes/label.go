// Package shapes partitions a binary stencil into connected regions and
// classifies each region against a target shape profile: near-rectangular
// panels ("islands") or near-circular blobs ("pom-poms").
//
// Labels are only meaningful within one call. Callers that need identity
// across frames must re-derive it spatially, e.g. with SortByCenter.
package shapes

import (
	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/mempool"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

// Labeling assigns every pixel a component label; 0 is background and
// foreground components are numbered 1..Count in row-major order of first
// appearance.
type Labeling struct {
	Width  int
	Height int
	Labels []int32
	Count  int
}

// At returns the label at (x, y).
func (l Labeling) At(x, y int) int32 { return l.Labels[y*l.Width+x] }

// find returns the root of i, halving the path as it goes.
func find(parent []int32, i int32) int32 {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

// union merges the sets of a and b, keeping the smaller root.
func union(parent []int32, a, b int32) int32 {
	ra, rb := find(parent, a), find(parent, b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	parent[rb] = ra
	return ra
}

// Label finds the 4-connected foreground components of m with a two-pass
// union-find scan.
func Label(m raster.Mask) Labeling {
	n := m.Len()
	labels := make([]int32, n)
	if n == 0 {
		return Labeling{Width: m.Width, Height: m.Height, Labels: labels}
	}

	// Provisional labels never exceed the pixel count; index 0 is unused.
	parent := mempool.GetInt32(n + 1)
	defer mempool.PutInt32(parent)

	w := m.Width
	var next int32
	for y := range m.Height {
		row := y * w
		for x := range w {
			i := row + x
			if m.Pix[i] <= raster.ForegroundCutoff {
				continue
			}
			var left, top int32
			if x > 0 {
				left = labels[i-1]
			}
			if y > 0 {
				top = labels[i-w]
			}
			switch {
			case left == 0 && top == 0:
				next++
				parent[next] = next
				labels[i] = next
			case left != 0 && top != 0:
				labels[i] = union(parent, left, top)
			case left != 0:
				labels[i] = left
			default:
				labels[i] = top
			}
		}
	}

	// Flatten to roots and compact to 1..Count.
	remap := mempool.GetInt32(int(next) + 1)
	defer mempool.PutInt32(remap)
	var count int32
	for i, l := range labels {
		if l == 0 {
			continue
		}
		root := find(parent, l)
		if remap[root] == 0 {
			count++
			remap[root] = count
		}
		labels[i] = remap[root]
	}

	return Labeling{Width: m.Width, Height: m.Height, Labels: labels, Count: int(count)}
}

// Component holds the geometric features of one labelled region.
type Component struct {
	Label          int          `json:"label"`
	PixelCount     int          `json:"pixel_count"`
	Box            geometry.Box `json:"bounding_box"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	AspectRatio    float64      `json:"aspect_ratio"`
	Rectangularity float64      `json:"rectangularity"`
}

// Measure computes per-component features. The result is indexed by label-1.
func Measure(l Labeling) []Component {
	comps := make([]Component, l.Count)
	seen := make([]bool, l.Count)
	for y := range l.Height {
		row := y * l.Width
		for x := range l.Width {
			lab := l.Labels[row+x]
			if lab == 0 {
				continue
			}
			c := &comps[lab-1]
			if !seen[lab-1] {
				seen[lab-1] = true
				c.Label = int(lab)
				c.Box = geometry.Box{MinX: x, MinY: y, MaxX: x, MaxY: y}
			}
			c.PixelCount++
			c.Box.Extend(x, y)
		}
	}
	for i := range comps {
		c := &comps[i]
		c.Width = c.Box.Width()
		c.Height = c.Box.Height()
		lo, hi := min(c.Width, c.Height), max(c.Width, c.Height)
		c.AspectRatio = float64(hi) / float64(lo)
		c.Rectangularity = float64(c.PixelCount) / float64(c.Width*c.Height)
	}
	return comps
}
