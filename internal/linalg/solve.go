// Package linalg provides the dense linear solves used by the homography
// solver.
package linalg

import (
	"errors"
	"fmt"
	"math"
)

// PivotTolerance is the smallest pivot magnitude accepted during elimination.
const PivotTolerance = 1e-12

var (
	// ErrSingularSystem is returned when the system has no unique solution.
	ErrSingularSystem = errors.New("singular system")
	// ErrDimensionMismatch is returned for non-square or mismatched inputs.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Solve solves a*x = b for an n x n matrix using Gaussian elimination with
// partial pivoting followed by back substitution. The inputs are not modified.
func Solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if len(a) != n {
		return nil, fmt.Errorf("%w: %d rows for %d unknowns", ErrDimensionMismatch, len(a), n)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty system", ErrDimensionMismatch)
	}

	// Working copies, one augmented row per equation.
	m := make([][]float64, n)
	for i, row := range a {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrDimensionMismatch, i, len(row))
		}
		m[i] = make([]float64, n+1)
		copy(m[i], row)
		m[i][n] = b[i]
		for _, v := range m[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite entry in row %d", ErrSingularSystem, i)
			}
		}
	}

	for col := range n {
		pivot := findPivotRow(m, col)
		if pivot < 0 {
			return nil, fmt.Errorf("%w: pivot below tolerance in column %d", ErrSingularSystem, col)
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
		}
		eliminateBelow(m, col)
	}

	return backSubstitute(m), nil
}

// findPivotRow returns the row at or below col with the largest magnitude in
// column col, or -1 when that magnitude is below PivotTolerance or NaN.
func findPivotRow(m [][]float64, col int) int {
	maxAbs := math.Abs(m[col][col])
	pivotRow := col
	for r := col + 1; r < len(m); r++ {
		if v := math.Abs(m[r][col]); v > maxAbs {
			maxAbs = v
			pivotRow = r
		}
	}
	if !(maxAbs >= PivotTolerance) {
		return -1
	}
	return pivotRow
}

func eliminateBelow(m [][]float64, col int) {
	n := len(m)
	for r := col + 1; r < n; r++ {
		factor := m[r][col] / m[col][col]
		if factor == 0 {
			continue
		}
		for c := col; c <= n; c++ {
			m[r][c] -= factor * m[col][c]
		}
	}
}

func backSubstitute(m [][]float64) []float64 {
	n := len(m)
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := m[i][n]
		for c := i + 1; c < n; c++ {
			s -= m[i][c] * x[c]
		}
		x[i] = s / m[i][i]
	}
	return x
}

// LeastSquares solves the overdetermined system a*x ≈ b (rows >= columns) in
// the least-squares sense via the normal equations.
func LeastSquares(a [][]float64, b []float64) ([]float64, error) {
	rows := len(a)
	if rows == 0 || rows != len(b) {
		return nil, fmt.Errorf("%w: %d rows for %d values", ErrDimensionMismatch, rows, len(b))
	}
	cols := len(a[0])
	if rows < cols {
		return nil, fmt.Errorf("%w: underdetermined %dx%d system", ErrSingularSystem, rows, cols)
	}

	ata := make([][]float64, cols)
	for i := range ata {
		ata[i] = make([]float64, cols)
	}
	atb := make([]float64, cols)
	for r, row := range a {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrDimensionMismatch, r, len(row))
		}
		for i := range cols {
			atb[i] += row[i] * b[r]
			for j := i; j < cols; j++ {
				ata[i][j] += row[i] * row[j]
			}
		}
	}
	for i := range cols {
		for j := range i {
			ata[i][j] = ata[j][i]
		}
	}
	return Solve(ata, atb)
}
