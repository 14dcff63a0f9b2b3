package trackcore

// TrackerSettings is the full, immutable-after-construction configuration
// for a Tracker instance (§6).
type TrackerSettings struct {
	MatchType     MatchType
	DistThreshold float64
	Weights       DistanceWeights

	Kalman KalmanConfig

	MaxTraceLength          int
	MaxAllowedSkippedFrames int
	MinStaticTimeSeconds    float64
	MaxStaticTimeSeconds    float64
	MaxSpeedForStatic       float64
	UseAbandonedDetection   bool
	MinAreaRadiusPix        float64
	MinAreaRadiusK          float64

	Embeddings []EmbeddingBackendConfig
	TypeCompat TypeCompat

	// EnableHistTerm/EnableEmbeddingTerm gate whether HistogramExtractor
	// and EmbeddingExtractor run at all this frame (§4.7 step 1:
	// "Extractors run only when their corresponding distance weight is
	// non-zero"). NewTracker always derives both from Weights, overwriting
	// any value the caller set.
	EnableHistTerm      bool
	EnableEmbeddingTerm bool
}

// resolveExtractorGates applies §4.7 step 1 and Open Question 2: appearance
// extraction only runs when its distance term carries non-zero weight.
func (s *TrackerSettings) resolveExtractorGates() {
	if s.Weights.Hist <= 0 {
		s.EnableHistTerm = false
	} else {
		s.EnableHistTerm = true
	}
	if s.Weights.FeatureCos <= 0 {
		s.EnableEmbeddingTerm = false
	} else {
		s.EnableEmbeddingTerm = true
	}
}

// abandonedWindowFrames resolves the static-detection window in frames,
// per §6's use_abandoned_detection scaling rule.
func (s *TrackerSettings) abandonedWindowFrames(fps float64) int {
	if !s.UseAbandonedDetection {
		return 0
	}
	return roundInt(s.MinStaticTimeSeconds * fps)
}

// staticTimeoutFrames resolves the retirement window for §4.7 step 5's
// static-timeout predicate.
func (s *TrackerSettings) staticTimeoutFrames(fps float64) int {
	return roundInt(fps * (s.MaxStaticTimeSeconds - s.MinStaticTimeSeconds))
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
