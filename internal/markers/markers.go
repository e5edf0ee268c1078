// Package markers connects externally detected fiducial markers to the
// homography solver: it talks to the detector service and pairs detected
// markers with their known projector-space positions.
package markers

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/homography"
)

var (
	// ErrDetectionShortfall is returned when fewer markers than required were
	// matched. It also matches homography.ErrInsufficientCorrespondences.
	ErrDetectionShortfall = fmt.Errorf("marker detection shortfall: %w", homography.ErrInsufficientCorrespondences)
	// ErrDetector wraps failures reported by the detector service.
	ErrDetector = errors.New("marker detector error")
)

// Marker is one detected fiducial in camera space. Corners are ordered
// top-left, top-right, bottom-right, bottom-left.
type Marker struct {
	ID      int               `json:"id"`
	Corners [4]geometry.Point `json:"corners"`
}

// Center returns the mean of the four corners.
func (m Marker) Center() geometry.Point {
	return geometry.Centroid(m.Corners[:])
}

// DetectionResult is the detector's reply for one image.
type DetectionResult struct {
	Markers     []Marker `json:"markers"`
	ImageWidth  int      `json:"image_width"`
	ImageHeight int      `json:"image_height"`
	Error       string   `json:"error,omitempty"`
}

// IDs returns the detected marker IDs in ascending order.
func (r DetectionResult) IDs() []int {
	ids := make([]int, 0, len(r.Markers))
	for _, m := range r.Markers {
		ids = append(ids, m.ID)
	}
	sort.Ints(ids)
	return ids
}

// Correspondences pairs detected marker centres (camera space) with layout
// positions (projector space), in ascending marker ID order. Markers missing
// from the layout are ignored and repeated IDs keep their first detection.
func Correspondences(detected []Marker, layout Layout, required int) ([]geometry.Point, []geometry.Point, error) {
	if required < homography.MinCorrespondences {
		required = homography.MinCorrespondences
	}

	seen := make(map[int]geometry.Point, len(detected))
	for _, m := range detected {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		if _, ok := layout.Position(m.ID); ok {
			seen[m.ID] = m.Center()
		}
	}

	if len(seen) < required {
		return nil, nil, fmt.Errorf("%w: matched %d of %d required markers", ErrDetectionShortfall, len(seen), required)
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	src := make([]geometry.Point, len(ids))
	dst := make([]geometry.Point, len(ids))
	for i, id := range ids {
		src[i] = seen[id]
		dst[i], _ = layout.Position(id)
	}
	return src, dst, nil
}
