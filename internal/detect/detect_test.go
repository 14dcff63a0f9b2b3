package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vistrackd/internal/trackcore"
)

func TestClampF(t *testing.T) {
	assert.Equal(t, float32(0), clampF(-5, 0, 100))
	assert.Equal(t, float32(100), clampF(500, 0, 100))
	assert.Equal(t, float32(50), clampF(50, 0, 100))
}

func TestPreprocessProducesCHWFloat32(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	out := Preprocess(img, 2, 2)
	require.Len(t, out, 3*2*2)

	planeSize := 2 * 2
	expectedR := (float32(255) - detMean[0]) / detStd[0]
	expectedG := (float32(0) - detMean[1]) / detStd[1]
	assert.InDelta(t, expectedR, out[0], 1e-5)
	assert.InDelta(t, expectedG, out[planeSize], 1e-5)
}

func TestPreprocessYCbCr(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = 200
	}
	for i := range img.Cb {
		img.Cb[i] = 128
		img.Cr[i] = 128
	}

	out := Preprocess(img, 2, 2)
	assert.Len(t, out, 12)
}

func TestNMSSuppressesOverlappingLowerScoreBox(t *testing.T) {
	regions := []trackcore.Region{
		{BRect: trackcore.Rect{X: 0, Y: 0, W: 10, H: 10}, Conf: 0.9},
		{BRect: trackcore.Rect{X: 1, Y: 1, W: 10, H: 10}, Conf: 0.5},
	}
	kept := nms(regions, 0.4)
	require.Len(t, kept, 1)
	assert.Equal(t, 0.9, kept[0].Conf)
}

func TestNMSKeepsNonOverlappingBoxes(t *testing.T) {
	regions := []trackcore.Region{
		{BRect: trackcore.Rect{X: 0, Y: 0, W: 10, H: 10}, Conf: 0.9},
		{BRect: trackcore.Rect{X: 1000, Y: 1000, W: 10, H: 10}, Conf: 0.5},
	}
	kept := nms(regions, 0.4)
	assert.Len(t, kept, 2)
}

func TestNMSEmptyInput(t *testing.T) {
	assert.Empty(t, nms(nil, 0.4))
}
