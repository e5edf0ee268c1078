package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pompom/internal/geometry"
	"github.com/MeKo-Tech/pompom/internal/raster"
)

func TestEnsureDir(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "test", "nested", "dir")

	require.NoError(t, EnsureDir(testDir))
	assert.True(t, FileExists(testDir))
	assert.False(t, FileExists(filepath.Join(testDir, "missing")))
}

func TestFileExists(t *testing.T) {
	assert.False(t, FileExists("/non/existent/file"))
}

func TestStencilRect(t *testing.T) {
	m := NewStencil(50, 40).Rect(10, 5, 20, 8).Mask()

	assert.Equal(t, 20*8, m.Count())
	assert.True(t, m.Foreground(10, 5))
	assert.True(t, m.Foreground(29, 12))
	assert.False(t, m.Foreground(30, 12))
	assert.False(t, m.Foreground(9, 5))
}

func TestStencilDisk(t *testing.T) {
	m := NewStencil(100, 100).Disk(50, 50, 20).Mask()

	assert.InDelta(t, 1257, m.Count(), 40)
	assert.True(t, m.Foreground(50, 50))
	assert.False(t, m.Foreground(5, 5))
}

func TestStencilQuad(t *testing.T) {
	q := geometry.RectQuad(10, 10)
	m := NewStencil(20, 20).Quad(q).Mask()
	assert.Equal(t, 100, m.Count())
}

func TestSaveStencil(t *testing.T) {
	s := NewStencil(30, 20).Ellipse(15, 10, 10, 5)
	path := SaveStencil(t, s, filepath.Join(t.TempDir(), "out"), "ellipse.png")

	loaded, err := raster.LoadMask(path)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(s.Mask()))
}
