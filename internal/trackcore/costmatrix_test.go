package trackcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCostTrack(id uint64, brect Rect, typ ObjectType) *Track {
	region := Region{BRect: brect, Type: typ}
	filter := NewKalmanFilter(KalmanConfig{Goal: GoalRect, Dt: 1, AccelNoiseMag: 0.5}, region)
	return NewTrack(id, region, RegionEmbedding{}, filter, 10)
}

func TestCostMatrixBuildDimensions(t *testing.T) {
	tracks := []*Track{newCostTrack(1, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")}
	regions := []Region{
		{BRect: Rect{X: 1, Y: 1, W: 10, H: 10}, Type: "person"},
		{BRect: Rect{X: 500, Y: 500, W: 10, H: 10}, Type: "person"},
	}
	b := &CostMatrixBuilder{Weights: DistanceWeights{Centers: 1, Jaccard: 1}, MinAreaRadiusPix: 50}
	cm := b.Build(tracks, regions, nil, 1000, 1000)
	require.Equal(t, 1, cm.N)
	require.Equal(t, 2, cm.M)
	assert.Less(t, cm.At(0, 0), cm.At(0, 1))
}

func TestCostMatrixTypeGateForcesMaxPossible(t *testing.T) {
	tracks := []*Track{newCostTrack(1, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")}
	regions := []Region{{BRect: Rect{X: 1, Y: 1, W: 10, H: 10}, Type: "vehicle"}}
	b := &CostMatrixBuilder{Weights: DistanceWeights{Centers: 1}, MinAreaRadiusPix: 50}
	cm := b.Build(tracks, regions, nil, 1000, 1000)
	assert.Equal(t, cm.MaxPossible, cm.At(0, 0))
}

func TestCostMatrixTypeCompatOverride(t *testing.T) {
	tracks := []*Track{newCostTrack(1, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")}
	regions := []Region{{BRect: Rect{X: 1, Y: 1, W: 10, H: 10}, Type: "vehicle"}}
	b := &CostMatrixBuilder{
		Weights:          DistanceWeights{Centers: 1},
		MinAreaRadiusPix: 50,
		TypeCompat:       func(a, b ObjectType) bool { return true },
	}
	cm := b.Build(tracks, regions, nil, 1000, 1000)
	assert.Less(t, cm.At(0, 0), cm.MaxPossible)
}

func TestCostMatrixZeroWeightDisablesTerm(t *testing.T) {
	tracks := []*Track{newCostTrack(1, Rect{X: 0, Y: 0, W: 10, H: 10}, "person")}
	regions := []Region{{BRect: Rect{X: 500, Y: 500, W: 10, H: 10}, Type: "person"}}
	b := &CostMatrixBuilder{Weights: DistanceWeights{}, MinAreaRadiusPix: 50}
	cm := b.Build(tracks, regions, nil, 1000, 1000)
	assert.Equal(t, 0.0, cm.At(0, 0))
}

func TestCostMatrixResolveMinRadiusUsesFractionWhenPixNegative(t *testing.T) {
	b := &CostMatrixBuilder{MinAreaRadiusPix: -1, MinAreaRadiusK: 0.5}
	tr := newCostTrack(1, Rect{X: 0, Y: 0, W: 20, H: 40}, "person")
	r := b.resolveMinRadius(tr)
	assert.Equal(t, 0.5*tr.LastRegion.RRect.W, r.X)
	assert.Equal(t, 0.5*tr.LastRegion.RRect.H, r.Y)
}
