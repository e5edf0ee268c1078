package linalg

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveIdentity(t *testing.T) {
	a := make([][]float64, 8)
	b := make([]float64, 8)
	for i := range 8 {
		a[i] = make([]float64, 8)
		a[i][i] = 1
		b[i] = float64(i + 1)
	}

	x, err := Solve(a, b)
	require.NoError(t, err)
	for i, v := range x {
		assert.InDelta(t, float64(i+1), v, 1e-12)
	}
}

func TestSolveNeedsPivoting(t *testing.T) {
	// Zero on the leading diagonal forces a row swap.
	a := [][]float64{
		{0, 2, 1},
		{1, 1, 1},
		{2, 1, 0},
	}
	b := []float64{7, 6, 4}

	x, err := Solve(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x[0], 1e-12)
	assert.InDelta(t, 2.0, x[1], 1e-12)
	assert.InDelta(t, 3.0, x[2], 1e-12)
}

func TestSolveDoesNotMutateInputs(t *testing.T) {
	a := [][]float64{{0, 1}, {1, 0}}
	b := []float64{3, 4}
	_, err := Solve(a, b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 0}}, a)
	assert.Equal(t, []float64{3, 4}, b)
}

func TestSolveSingular(t *testing.T) {
	a := make([][]float64, 8)
	b := make([]float64, 8)
	for i := range 8 {
		a[i] = []float64{1, 1, 1, 1, 1, 1, 1, 1}
		b[i] = 1
	}
	_, err := Solve(a, b)
	require.ErrorIs(t, err, ErrSingularSystem)
}

func TestSolveRejectsNonFinite(t *testing.T) {
	_, err := Solve([][]float64{{math.NaN(), 1}, {1, 1}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrSingularSystem)

	_, err = Solve([][]float64{{1, 0}, {0, 1}}, []float64{math.Inf(1), 2})
	require.ErrorIs(t, err, ErrSingularSystem)
}

func TestFindPivotRowRejectsNaNColumn(t *testing.T) {
	m := [][]float64{
		{math.NaN(), 1, 0},
		{math.NaN(), 2, 0},
	}
	assert.Equal(t, -1, findPivotRow(m, 0))
}

func TestSolveDimensionMismatch(t *testing.T) {
	_, err := Solve([][]float64{{1, 2}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Solve([][]float64{{1}, {2}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Solve(nil, nil)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLeastSquaresLine(t *testing.T) {
	// Fit y = 2x + 1 exactly through four samples.
	a := [][]float64{{0, 1}, {1, 1}, {2, 1}, {3, 1}}
	b := []float64{1, 3, 5, 7}

	x, err := LeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x[0], 1e-9)
	assert.InDelta(t, 1.0, x[1], 1e-9)
}

func TestLeastSquaresUnderdetermined(t *testing.T) {
	_, err := LeastSquares([][]float64{{1, 2, 3}}, []float64{1})
	require.ErrorIs(t, err, ErrSingularSystem)
}

// TestSolve_ResidualProperty checks a*x reproduces b for diagonally dominant systems.
func TestSolve_ResidualProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("solution satisfies the system", prop.ForAll(
		func(vals []float64) bool {
			const n = 4
			a := make([][]float64, n)
			b := make([]float64, n)
			for i := range n {
				a[i] = make([]float64, n)
				for j := range n {
					a[i][j] = vals[i*n+j]
				}
				a[i][i] += 10 // keep the system well conditioned
				b[i] = vals[16+i]
			}
			x, err := Solve(a, b)
			if err != nil {
				return false
			}
			for i := range n {
				s := 0.0
				for j := range n {
					s += a[i][j] * x[j]
				}
				if d := s - b[i]; d > 1e-9 || d < -1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(-1, 1)),
	))

	properties.TestingRun(t)
}
