package trackcore

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingExtractorNoBackendRegisteredReturnsEmpty(t *testing.T) {
	ext := NewEmbeddingExtractor(nil)
	img := solidImage(20, 20, color.RGBA{R: 10, A: 255})

	v, d, err := ext.Extract(img, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0.0, d)
}

func TestEmbeddingExtractorEmptyRectReturnsEmpty(t *testing.T) {
	ext := NewEmbeddingExtractor(nil)
	img := solidImage(20, 20, color.RGBA{R: 10, A: 255})

	v, _, err := ext.Extract(img, Rect{}, "person")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEmbeddingExtractorNilFrameReturnsEmpty(t *testing.T) {
	ext := NewEmbeddingExtractor(nil)
	v, _, err := ext.Extract(nil, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEmbeddingExtractorCloseOnEmptyExtractorIsNoop(t *testing.T) {
	ext := NewEmbeddingExtractor(nil)
	assert.NotPanics(t, func() { ext.Close() })
}

func TestL2NormalizeUnitVector(t *testing.T) {
	v := []float64{3, 4}
	l2Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)
}

func TestL2NormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float64{0, 0}
	l2Normalize(v)
	assert.Equal(t, []float64{0, 0}, v)
}
