package raster

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAccessors(t *testing.T) {
	m := New(3, 2)
	require.NoError(t, m.Validate())
	assert.Equal(t, 6, m.Len())

	m.Set(1, 1, 200)
	m.Set(5, 5, 200) // dropped
	assert.Equal(t, uint8(200), m.At(1, 1))
	assert.Equal(t, uint8(0), m.At(-1, 0))
	assert.True(t, m.Foreground(1, 1))
	assert.False(t, m.Foreground(0, 0))
	assert.Equal(t, 1, m.Count())

	m.Set(0, 0, ForegroundCutoff)
	assert.False(t, m.Foreground(0, 0), "cutoff itself is background")
}

func TestMaskEqualAndValidate(t *testing.T) {
	a := New(2, 2)
	b := New(2, 2)
	assert.True(t, a.Equal(b))
	b.Set(0, 0, 1)
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(New(4, 1)))

	bad := Mask{Width: 2, Height: 2, Pix: make([]uint8, 3)}
	require.Error(t, bad.Validate())
}

func TestFromImageUsesAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	m := FromImage(img)
	assert.Equal(t, []uint8{255, 0}, m.Pix)
}

func TestFromImageOpaqueFallsBackToLuminance(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 255})
	img.SetGray(1, 0, color.Gray{Y: 0})

	m := FromImage(img)
	assert.Equal(t, []uint8{255, 0}, m.Pix)
}

func TestMaskImageRoundTrip(t *testing.T) {
	m := New(4, 3)
	m.Set(2, 1, 255)
	m.Set(3, 2, 90)

	assert.True(t, m.Equal(FromImage(m.Image())))
}

func TestSaveAndLoadMask(t *testing.T) {
	m := New(5, 5)
	m.Set(2, 2, 255)
	path := filepath.Join(t.TempDir(), "out", "mask.png")

	require.NoError(t, SavePNG(path, m.Image()))
	loaded, err := LoadMask(path)
	require.NoError(t, err)
	assert.True(t, m.Equal(loaded))
}

func TestLoadImageErrors(t *testing.T) {
	_, err := LoadImage("")
	require.Error(t, err)
	_, err = LoadImage("stencil.gif")
	require.Error(t, err)
	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)

	assert.True(t, IsSupportedImage("A.PNG"))
	assert.True(t, IsSupportedImage("b.bmp"))
}

func TestFromAlphaKeepsOpaqueWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	m := FromAlpha(img)
	assert.Equal(t, []uint8{255, 255, 255, 0}, m.Pix)
	assert.True(t, m.Equal(FromImage(img)))
}
