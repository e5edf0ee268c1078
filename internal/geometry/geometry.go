// Package geometry holds the plane primitives shared by calibration, warping
// and shape classification. Points carry no unit; callers decide whether a
// value lives in camera space or projector space and never mix the two
// without a homography in between.
package geometry

import "math"

// Point represents a real-valued coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Centroid returns the arithmetic mean of pts. An empty slice yields the origin.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	return Point{X: cx / n, Y: cy / n}
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Collinear reports whether a, b and c lie on one line within eps, where eps
// is compared against the doubled triangle area.
func Collinear(a, b, c Point, eps float64) bool {
	return math.Abs(cross(a, b, c)) <= eps
}

// Quad is a fiducial layout or destination viewport.
type Quad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
}

// Corners returns the corners in winding order TL, TR, BR, BL.
func (q Quad) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// QuadFromCorners builds a Quad from points in TL, TR, BR, BL order.
func QuadFromCorners(c [4]Point) Quad {
	return Quad{TopLeft: c[0], TopRight: c[1], BottomRight: c[2], BottomLeft: c[3]}
}

// Area returns the unsigned shoelace area of the quad in winding order.
func (q Quad) Area() float64 {
	c := q.Corners()
	var s float64
	for i := range 4 {
		j := (i + 1) % 4
		s += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(s) * 0.5
}

// Center returns the centroid of the four corners.
func (q Quad) Center() Point {
	c := q.Corners()
	return Centroid(c[:])
}

// Degenerate reports whether the quad cannot support a homography: its area is
// below eps or any three of its corners are collinear.
func (q Quad) Degenerate(eps float64) bool {
	if q.Area() < eps {
		return true
	}
	c := q.Corners()
	for i := range 4 {
		a, b, d := c[i], c[(i+1)%4], c[(i+2)%4]
		if Collinear(a, b, d, eps) {
			return true
		}
	}
	return false
}

// UnitSquare returns the quad spanning [0,1]x[0,1].
func UnitSquare() Quad { return RectQuad(1, 1) }

// RectQuad returns the axis-aligned quad spanning [0,w]x[0,h].
func RectQuad(w, h float64) Quad {
	return Quad{
		TopLeft:     Point{X: 0, Y: 0},
		TopRight:    Point{X: w, Y: 0},
		BottomRight: Point{X: w, Y: h},
		BottomLeft:  Point{X: 0, Y: h},
	}
}

// Box is an inclusive axis-aligned pixel bounding box.
type Box struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Width returns the number of pixel columns covered by the box.
func (b Box) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the number of pixel rows covered by the box.
func (b Box) Height() int { return b.MaxY - b.MinY + 1 }

// Center returns the centre of the box in pixel coordinates.
func (b Box) Center() Point {
	return Point{X: float64(b.MinX+b.MaxX) * 0.5, Y: float64(b.MinY+b.MaxY) * 0.5}
}

// Extend grows the box to include (x, y).
func (b *Box) Extend(x, y int) {
	if x < b.MinX {
		b.MinX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y > b.MaxY {
		b.MaxY = y
	}
}
