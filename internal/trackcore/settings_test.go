package trackcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExtractorGates(t *testing.T) {
	s := TrackerSettings{Weights: DistanceWeights{Hist: 0.5, FeatureCos: 0}}
	s.resolveExtractorGates()
	assert.True(t, s.EnableHistTerm)
	assert.False(t, s.EnableEmbeddingTerm)
}

func TestResolveExtractorGatesBothZero(t *testing.T) {
	s := TrackerSettings{}
	s.resolveExtractorGates()
	assert.False(t, s.EnableHistTerm)
	assert.False(t, s.EnableEmbeddingTerm)
}

func TestAbandonedWindowFramesDisabled(t *testing.T) {
	s := TrackerSettings{UseAbandonedDetection: false, MinStaticTimeSeconds: 3}
	assert.Equal(t, 0, s.abandonedWindowFrames(30))
}

func TestAbandonedWindowFramesScalesWithFPS(t *testing.T) {
	s := TrackerSettings{UseAbandonedDetection: true, MinStaticTimeSeconds: 2}
	assert.Equal(t, 60, s.abandonedWindowFrames(30))
}

func TestStaticTimeoutFrames(t *testing.T) {
	s := TrackerSettings{MinStaticTimeSeconds: 2, MaxStaticTimeSeconds: 5}
	assert.Equal(t, 90, s.staticTimeoutFrames(30))
}

func TestRoundInt(t *testing.T) {
	assert.Equal(t, 3, roundInt(2.5))
	assert.Equal(t, -3, roundInt(-2.5))
	assert.Equal(t, 0, roundInt(0.4))
}
