package engine

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/homography"
)

// Calibration is an immutable camera/projector mapping. Each calibration
// event produces a new value; earlier ones are never modified.
type Calibration struct {
	CameraToProjector homography.Homography `json:"camera_to_projector"`
	ProjectorToCamera homography.Homography `json:"projector_to_camera"`
	OutputWidth       int                   `json:"output_width"`
	OutputHeight      int                   `json:"output_height"`
	Correspondences   int                   `json:"correspondences"`
	Sequence          uint64                `json:"sequence"`
	CreatedAt         time.Time             `json:"created_at"`
}

func newCalibration(src, dst []geometry.Point, w, h int, seq uint64) (*Calibration, error) {
	fwd, err := homography.Solve(src, dst)
	if err != nil {
		return nil, err
	}
	inv, err := fwd.Invert()
	if err != nil {
		return nil, fmt.Errorf("calibration not invertible: %w", err)
	}
	return &Calibration{
		CameraToProjector: fwd,
		ProjectorToCamera: inv,
		OutputWidth:       w,
		OutputHeight:      h,
		Correspondences:   len(src),
		Sequence:          seq,
		CreatedAt:         time.Now(),
	}, nil
}

// ToProjector maps a camera-space point into projector space.
func (c *Calibration) ToProjector(p geometry.Point) geometry.Point {
	return c.CameraToProjector.Apply(p)
}

// ToCamera maps a projector-space point into camera space.
func (c *Calibration) ToCamera(p geometry.Point) geometry.Point {
	return c.ProjectorToCamera.Apply(p)
}

// Viewport returns the camera-space quad that fills the projector output.
func (c *Calibration) Viewport() geometry.Quad {
	r := geometry.RectQuad(float64(c.OutputWidth), float64(c.OutputHeight))
	return geometry.Quad{
		TopLeft:     c.ToCamera(r.TopLeft),
		TopRight:    c.ToCamera(r.TopRight),
		BottomLeft:  c.ToCamera(r.BottomLeft),
		BottomRight: c.ToCamera(r.BottomRight),
	}
}
