package trackcore

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() TrackerSettings {
	return TrackerSettings{
		MatchType:               MatchHungarian,
		DistThreshold:           0.8,
		Weights:                 DistanceWeights{Centers: 1, Rects: 1, Jaccard: 1},
		Kalman:                  KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5},
		MaxTraceLength:          30,
		MaxAllowedSkippedFrames: 2,
		MaxStaticTimeSeconds:    100,
		MinAreaRadiusPix:        50,
	}
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func TestTrackerUpdateBirthsTrackFromUnmatchedRegion(t *testing.T) {
	tracker := NewTracker(testSettings(), nil, nil)
	regions := []Region{{BRect: Rect{X: 100, Y: 100, W: 50, H: 50}, Type: "person", Conf: 0.9}}

	err := tracker.Update(context.Background(), regions, testFrame(), 30)
	require.NoError(t, err)
	require.Len(t, tracker.Tracks(), 1)
	assert.Equal(t, uint64(0), tracker.Tracks()[0].ID)
}

func TestTrackerUpdateMatchesTrackAcrossFrames(t *testing.T) {
	tracker := NewTracker(testSettings(), nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 100, Y: 100, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)
	firstID := tracker.Tracks()[0].ID

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 103, Y: 101, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))

	require.Len(t, tracker.Tracks(), 1)
	assert.Equal(t, firstID, tracker.Tracks()[0].ID)
}

func TestTrackerRetiresTrackAfterTooManySkippedFrames(t *testing.T) {
	settings := testSettings()
	settings.MaxAllowedSkippedFrames = 1
	tracker := NewTracker(settings, nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 100, Y: 100, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)

	// No regions for several frames: skipped_frames should exceed the
	// allowance and the track should be retired.
	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Update(context.Background(), nil, frame, 30))
	}
	assert.Empty(t, tracker.Tracks())
}

// TestTrackerSkippedFramesIncrementsOnceWhenUnmatched guards against
// double-counting skipped_frames: applyGating's gating/unassigned branch
// and the surviving track's own Update call must not both increment it for
// the same frame (§8 scenario 2: "id 0's skipped_frames = 1").
func TestTrackerSkippedFramesIncrementsOnceWhenUnmatched(t *testing.T) {
	tracker := NewTracker(testSettings(), nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 100, Y: 100, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)

	require.NoError(t, tracker.Update(context.Background(), nil, frame, 30))

	require.Len(t, tracker.Tracks(), 1)
	assert.Equal(t, 1, tracker.Tracks()[0].SkippedFrames)
}

// TestTrackerSkippedFramesIncrementsOnceWhenGatedOut covers the other
// applyGating branch (cost above DistThreshold voids the assignment) to
// confirm it also only increments skipped_frames once per frame.
func TestTrackerSkippedFramesIncrementsOnceWhenGatedOut(t *testing.T) {
	settings := testSettings()
	settings.DistThreshold = 0.01
	tracker := NewTracker(settings, nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 10, Y: 10, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)
	original := tracker.Tracks()[0].ID

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 600, Y: 400, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))

	require.Len(t, tracker.Tracks(), 2)
	for _, tr := range tracker.Tracks() {
		if tr.ID == original {
			assert.Equal(t, 1, tr.SkippedFrames)
		}
	}
}

func TestTrackerRetiresTrackOutOfFrame(t *testing.T) {
	tracker := NewTracker(testSettings(), nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 10000, Y: 10000, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)

	require.NoError(t, tracker.Update(context.Background(), nil, frame, 30))
	assert.Empty(t, tracker.Tracks())
}

func TestTrackerTypeGateBlocksCrossTypeMatch(t *testing.T) {
	tracker := NewTracker(testSettings(), nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 100, Y: 100, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)

	// Same location, different type: should birth a second track rather
	// than being matched to the person track.
	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 101, Y: 101, W: 50, H: 50}, Type: "vehicle", Conf: 0.9},
	}, frame, 30))
	assert.Len(t, tracker.Tracks(), 2)
}

func TestTrackerGatingVoidsDistantAssignment(t *testing.T) {
	settings := testSettings()
	settings.DistThreshold = 0.01
	tracker := NewTracker(settings, nil, nil)
	frame := testFrame()

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 10, Y: 10, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))
	require.Len(t, tracker.Tracks(), 1)

	require.NoError(t, tracker.Update(context.Background(), []Region{
		{BRect: Rect{X: 600, Y: 400, W: 50, H: 50}, Type: "person", Conf: 0.9},
	}, frame, 30))

	// The original track should be unmatched (now one frame skipped) and a
	// new track should be born for the far-away region.
	assert.Len(t, tracker.Tracks(), 2)
}
