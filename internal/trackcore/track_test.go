package trackcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTrack(t *testing.T, brect Rect, re RegionEmbedding) *Track {
	t.Helper()
	region := Region{BRect: brect, Type: "person", Conf: 0.9}
	filter := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5}, region)
	return NewTrack(1, region, re, filter, 10)
}

func TestTrackDistCenterSameRegionIsZero(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	assert.InDelta(t, 0.0, tr.DistCenter(Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 10}}), 1e-9)
}

func TestTrackDistCenterIsClipped(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	far := Region{BRect: Rect{X: 10000, Y: 10000, W: 10, H: 10}}
	assert.Equal(t, 1.0, tr.DistCenter(far))
}

func TestTrackDistRectMatchIsZero(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 20}, RegionEmbedding{})
	assert.InDelta(t, 0.0, tr.DistRect(Region{BRect: Rect{X: 5, Y: 5, W: 10, H: 20}}), 1e-9)
}

func TestTrackDistJaccardIdentical(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	assert.InDelta(t, 0.0, tr.DistJaccard(Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 10}}), 1e-9)
}

func TestTrackDistHistSkippedWhenEmpty(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	_, ok := tr.DistHist(RegionEmbedding{})
	assert.False(t, ok)
}

func TestTrackDistHistIdenticalHistogramsIsZero(t *testing.T) {
	hist := []float64{1, 2, 3, 4}
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{Hist: hist})
	d, ok := tr.DistHist(RegionEmbedding{Hist: append([]float64(nil), hist...)})
	require.True(t, ok)
	assert.InDelta(t, 0.0, d, 1e-9)
}

func TestTrackDistCosineSkippedOnTypeMismatch(t *testing.T) {
	emb := []float64{1, 0, 0}
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{Emb: emb, Dot: 1})
	_, ok := tr.DistCosine(RegionEmbedding{Emb: emb, Dot: 1}, "vehicle")
	assert.False(t, ok)
}

func TestTrackDistCosineIdenticalVectorsIsZero(t *testing.T) {
	emb := []float64{1, 0, 0}
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{Emb: emb, Dot: 1})
	d, ok := tr.DistCosine(RegionEmbedding{Emb: emb, Dot: 1}, "person")
	require.True(t, ok)
	assert.InDelta(t, 0.0, d, 1e-9)
}

func TestTrackUpdateAssignedResetsSkippedFrames(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	tr.SkippedFrames = 3
	next := Region{BRect: Rect{X: 1, Y: 1, W: 10, H: 10}, Type: "person", Conf: 0.8}
	tr.Update(next, RegionEmbedding{}, true, 0, 1)
	assert.Equal(t, 0, tr.SkippedFrames)
	assert.Len(t, tr.Trace, 2)
}

func TestTrackUpdateSkippedLeavesCounterToTracker(t *testing.T) {
	// Tracker.applyGating counts the missed frame; Track.Update does not.
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	tr.Update(Region{}, RegionEmbedding{}, false, 0, 1)
	assert.Equal(t, 0, tr.SkippedFrames)
}

func TestTrackTraceIsBoundedByMaxTraceLen(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	for i := 0; i < 20; i++ {
		tr.Update(Region{BRect: Rect{X: float64(i), Y: 0, W: 10, H: 10}, Type: "person"}, RegionEmbedding{}, true, 0, 1)
	}
	assert.LessOrEqual(t, len(tr.Trace), 10)
}

func TestTrackIsStaticTimeout(t *testing.T) {
	tr := seedTrack(t, Rect{X: 0, Y: 0, W: 10, H: 10}, RegionEmbedding{})
	tr.StaticFrames = 5
	assert.True(t, tr.IsStaticTimeout(5))
	assert.False(t, tr.IsStaticTimeout(6))
}

func TestTrackIsOutOfFrame(t *testing.T) {
	tr := seedTrack(t, Rect{X: 1000, Y: 1000, W: 10, H: 10}, RegionEmbedding{})
	assert.True(t, tr.IsOutOfFrame(Rect{X: 0, Y: 0, W: 100, H: 100}))
}
