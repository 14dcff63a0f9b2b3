package trackcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKalmanFilterSeedMatchesInitialRegion(t *testing.T) {
	seed := Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 20}}
	kf := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5}, seed)
	smoothed := kf.SmoothedRect()
	assert.InDelta(t, 5.0, smoothed.X+smoothed.W/2, 1e-6) // center x
	assert.InDelta(t, 10.0, smoothed.Y+smoothed.H/2, 1e-6)
	assert.InDelta(t, 10.0, smoothed.W, 1e-6)
	assert.InDelta(t, 20.0, smoothed.H, 1e-6)
}

func TestKalmanFilterTracksConstantVelocityMotion(t *testing.T) {
	seed := Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 10}}
	kf := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.1}, seed)

	pos := 0.0
	for i := 0; i < 20; i++ {
		pos += 5
		kf.Predict()
		kf.Update(Region{BRect: Rect{X: pos, Y: 0, W: 10, H: 10}})
	}

	smoothed := kf.SmoothedRect()
	assert.InDelta(t, pos, smoothed.X, 10.0)
}

func TestKalmanFilterPredictionEllipseRespectsMinRadius(t *testing.T) {
	seed := Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 10}}
	kf := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5}, seed)
	ellipse := kf.PredictionEllipse(Point{X: 50, Y: 50})
	assert.GreaterOrEqual(t, ellipse.W/2, 50.0)
	assert.GreaterOrEqual(t, ellipse.H/2, 50.0)
}

func TestKalmanFilterIsInsideAreaBoundary(t *testing.T) {
	seed := Region{BRect: Rect{X: 0, Y: 0, W: 10, H: 10}}
	kf := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5}, seed)
	ellipse := RotatedRect{CX: 5, CY: 5, W: 20, H: 20}
	inside := kf.IsInsideArea(Point{X: 5, Y: 5}, ellipse)
	outside := kf.IsInsideArea(Point{X: 1000, Y: 1000}, ellipse)
	assert.LessOrEqual(t, inside, 1.0)
	assert.Greater(t, outside, 1.0)
}

func TestKalmanFilterPointGoalCarriesSizeForward(t *testing.T) {
	seed := Region{BRect: Rect{X: 0, Y: 0, W: 8, H: 16}}
	kf := NewKalmanFilter(KalmanConfig{Goal: GoalPoint, Dt: 1, AccelNoiseMag: 0.5}, seed)
	kf.Predict()
	kf.Update(Region{BRect: Rect{X: 1, Y: 1, W: 8, H: 16}})
	smoothed := kf.SmoothedRect()
	assert.InDelta(t, 8.0, smoothed.W, 1e-6)
	assert.InDelta(t, 16.0, smoothed.H, 1e-6)
}
