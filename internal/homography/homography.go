// Package homography derives, applies and inverts the 3x3 projective
// transforms that map camera space onto projector space.
//
// A Homography is an immutable value. Every calibration produces a fresh one;
// nothing in this package mutates a matrix in place.
package homography

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/linalg"
)

// DeterminantTolerance is the smallest |det| accepted by Invert.
const DeterminantTolerance = 1e-12

// MinCorrespondences is the number of point pairs a homography needs.
const MinCorrespondences = 4

var (
	// ErrInsufficientCorrespondences is returned when fewer than four point
	// pairs are supplied.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")
	// ErrCorrespondenceMismatch is returned when source and destination point
	// counts differ.
	ErrCorrespondenceMismatch = errors.New("source and destination point counts differ")
	// ErrSingularSystem is returned for collinear or coincident point sets.
	ErrSingularSystem = linalg.ErrSingularSystem
	// ErrSingularMatrix is returned when a matrix cannot be inverted.
	ErrSingularMatrix = errors.New("singular matrix")
)

// Homography is a row-major 3x3 projective transform with
// [x', y', w'] = H * [x, y, 1].
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Solve computes the homography mapping src[i] to dst[i].
//
// Exactly four pairs are solved directly as an 8x8 DLT system with H[2][2]
// fixed to 1. More pairs are fitted in the least-squares sense after
// normalising both point sets.
func Solve(src, dst []geometry.Point) (Homography, error) {
	if n := min(len(src), len(dst)); n < MinCorrespondences {
		return Homography{}, fmt.Errorf("%w: got %d, need %d", ErrInsufficientCorrespondences, n, MinCorrespondences)
	}
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("%w: %d source, %d destination", ErrCorrespondenceMismatch, len(src), len(dst))
	}
	if err := checkFinite(src); err != nil {
		return Homography{}, fmt.Errorf("source points: %w", err)
	}
	if err := checkFinite(dst); err != nil {
		return Homography{}, fmt.Errorf("destination points: %w", err)
	}
	if len(src) == MinCorrespondences {
		if err := checkCollinear(src); err != nil {
			return Homography{}, fmt.Errorf("source points: %w", err)
		}
		if err := checkCollinear(dst); err != nil {
			return Homography{}, fmt.Errorf("destination points: %w", err)
		}
		return solveExact(src, dst)
	}
	return solveLeastSquares(src, dst)
}

// QuadToQuad computes the homography mapping the corners of src onto the
// corners of dst, paired in TL, TR, BR, BL order.
func QuadToQuad(src, dst geometry.Quad) (Homography, error) {
	s := src.Corners()
	d := dst.Corners()
	return Solve(s[:], d[:])
}

// dltRows returns the two DLT rows and right-hand sides for p -> q.
func dltRows(p, q geometry.Point) ([2][]float64, [2]float64) {
	X, Y := p.X, p.Y
	x, y := q.X, q.Y
	// x = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
	r0 := []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
	// y = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
	r1 := []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
	return [2][]float64{r0, r1}, [2]float64{x, y}
}

func solveExact(src, dst []geometry.Point) (Homography, error) {
	a := make([][]float64, 0, 8)
	b := make([]float64, 0, 8)
	for i := range src {
		rows, rhs := dltRows(src[i], dst[i])
		a = append(a, rows[0], rows[1])
		b = append(b, rhs[0], rhs[1])
	}

	h, err := linalg.Solve(a, b)
	if err != nil {
		return Homography{}, fmt.Errorf("solve dlt: %w", err)
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

func solveLeastSquares(src, dst []geometry.Point) (Homography, error) {
	ts, ns := normalizePoints(src)
	td, nd := normalizePoints(dst)

	a := make([][]float64, 0, 2*len(src))
	b := make([]float64, 0, 2*len(src))
	for i := range ns {
		rows, rhs := dltRows(ns[i], nd[i])
		a = append(a, rows[0], rows[1])
		b = append(b, rhs[0], rhs[1])
	}

	h, err := linalg.LeastSquares(a, b)
	if err != nil {
		return Homography{}, fmt.Errorf("solve dlt: %w", err)
	}
	hn := Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}

	tdInv, err := td.Invert()
	if err != nil {
		return Homography{}, fmt.Errorf("%w: destination points coincide", ErrSingularSystem)
	}
	return tdInv.Compose(hn).Compose(ts).normalized(), nil
}

// normalizePoints translates pts to their centroid and scales them so the
// mean distance from the origin is sqrt(2). It returns the transform used.
func normalizePoints(pts []geometry.Point) (Homography, []geometry.Point) {
	c := geometry.Centroid(pts)
	mean := 0.0
	for _, p := range pts {
		mean += p.Dist(c)
	}
	mean /= float64(len(pts))
	s := 1.0
	if mean > 0 {
		s = math.Sqrt2 / mean
	}
	t := Homography{s, 0, -s * c.X, 0, s, -s * c.Y, 0, 0, 1}
	out := make([]geometry.Point, len(pts))
	for i, p := range pts {
		out[i] = geometry.Point{X: s * (p.X - c.X), Y: s * (p.Y - c.Y)}
	}
	return t, out
}

func checkFinite(pts []geometry.Point) error {
	for i, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: point %d is not finite", ErrSingularSystem, i)
		}
	}
	return nil
}

// checkCollinear rejects four-point sets where any three points are collinear
// or coincident, relative to the spread of the set.
func checkCollinear(pts []geometry.Point) error {
	c := geometry.Centroid(pts)
	spread := 0.0
	for _, p := range pts {
		spread = math.Max(spread, p.Dist(c))
	}
	if spread == 0 {
		return fmt.Errorf("%w: points coincide", ErrSingularSystem)
	}
	eps := 1e-9 * spread * spread
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				if geometry.Collinear(pts[i], pts[j], pts[k], eps) {
					return fmt.Errorf("%w: points %d, %d, %d are collinear", ErrSingularSystem, i, j, k)
				}
			}
		}
	}
	return nil
}

// Apply maps p through h. A point mapped to infinity yields non-finite
// coordinates; use ApplyOK to detect that case.
func (h Homography) Apply(p geometry.Point) geometry.Point {
	q, _ := h.ApplyOK(p)
	return q
}

// ApplyOK maps p through h and reports whether the result is finite.
func (h Homography) ApplyOK(p geometry.Point) (geometry.Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	x := (h[0]*p.X + h[1]*p.Y + h[2]) / w
	y := (h[3]*p.X + h[4]*p.Y + h[5]) / w
	ok := w != 0 && !math.IsNaN(x) && !math.IsNaN(y) && !math.IsInf(x, 0) && !math.IsInf(y, 0)
	return geometry.Point{X: x, Y: y}, ok
}

// Determinant returns det(h).
func (h Homography) Determinant() float64 {
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, hh, i := h[6], h[7], h[8]
	return a*(e*i-f*hh) - b*(d*i-f*g) + c*(d*hh-e*g)
}

// Invert returns the inverse transform using the closed-form adjugate.
func (h Homography) Invert() (Homography, error) {
	det := h.Determinant()
	if math.Abs(det) < DeterminantTolerance || math.IsNaN(det) {
		return Homography{}, fmt.Errorf("%w: |det| = %g", ErrSingularMatrix, math.Abs(det))
	}
	a, b, c := h[0], h[1], h[2]
	d, e, f := h[3], h[4], h[5]
	g, hh, i := h[6], h[7], h[8]
	adj := Homography{
		e*i - f*hh, c*hh - b*i, b*f - c*e,
		f*g - d*i, a*i - c*g, c*d - a*f,
		d*hh - e*g, b*g - a*hh, a*e - b*d,
	}
	for k := range adj {
		adj[k] /= det
	}
	return adj.normalized(), nil
}

// Compose returns h * other, the transform applying other first, then h.
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for r := range 3 {
		for c := range 3 {
			var s float64
			for k := range 3 {
				s += h[r*3+k] * other[k*3+c]
			}
			out[r*3+c] = s
		}
	}
	return out
}

// normalized rescales h so H[2][2] is 1 when that entry is usable.
func (h Homography) normalized() Homography {
	if math.Abs(h[8]) < DeterminantTolerance {
		return h
	}
	s := h[8]
	for k := range h {
		h[k] /= s
	}
	return h
}

// Float32 returns a single-precision copy for GPU uniform upload. It must not
// be fed back into the solver.
func (h Homography) Float32() [9]float32 {
	var out [9]float32
	for k, v := range h {
		out[k] = float32(v)
	}
	return out
}

// Rows returns h as three rows, the layout used by the marker service JSON.
func (h Homography) Rows() [][]float64 {
	return [][]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}

// FromRows builds a homography from a 3x3 nested slice.
func FromRows(rows [][]float64) (Homography, error) {
	if len(rows) != 3 {
		return Homography{}, fmt.Errorf("expected 3 rows, got %d", len(rows))
	}
	var h Homography
	for r, row := range rows {
		if len(row) != 3 {
			return Homography{}, fmt.Errorf("row %d: expected 3 values, got %d", r, len(row))
		}
		copy(h[r*3:], row)
	}
	return h, nil
}
