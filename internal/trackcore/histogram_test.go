package trackcore

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestHistogramExtractEmptyRectReturnsNil(t *testing.T) {
	h := NewHistogramExtractor()
	img := solidImage(10, 10, color.RGBA{R: 255, A: 255})
	assert.Nil(t, h.Extract(img, Rect{}))
}

func TestHistogramExtractNilFrameReturnsNil(t *testing.T) {
	h := NewHistogramExtractor()
	assert.Nil(t, h.Extract(nil, Rect{X: 0, Y: 0, W: 10, H: 10}))
}

func TestHistogramExtractProducesNormalizedBins(t *testing.T) {
	h := NewHistogramExtractor()
	img := solidImage(20, 20, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	hist := h.Extract(img, Rect{X: 0, Y: 0, W: 20, H: 20})
	require.Len(t, hist, 3*histBins)

	var sum float64
	for _, v := range hist {
		sum += v
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Greater(t, sum, 0.0)
}

func TestHistogramExtractDifferentColorsProduceDifferentHistograms(t *testing.T) {
	h := NewHistogramExtractor()
	red := solidImage(10, 10, color.RGBA{R: 255, A: 255})
	blue := solidImage(10, 10, color.RGBA{B: 255, A: 255})
	histRed := h.Extract(red, Rect{X: 0, Y: 0, W: 10, H: 10})
	histBlue := h.Extract(blue, Rect{X: 0, Y: 0, W: 10, H: 10})
	assert.NotEqual(t, histRed, histBlue)
}

func TestCropRegionClampsToFrameBounds(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{R: 1, A: 255})
	crop := cropRegion(img, Rect{X: -5, Y: -5, W: 20, H: 20})
	require.NotNil(t, crop)
	b := crop.Bounds()
	assert.Equal(t, 10, b.Dx())
	assert.Equal(t, 10, b.Dy())
}

func TestCropRegionOutsideFrameReturnsNil(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{R: 1, A: 255})
	crop := cropRegion(img, Rect{X: 100, Y: 100, W: 10, H: 10})
	assert.Nil(t, crop)
}
