package trackcore

// DistanceWeights are the non-negative per-term weights fused into the
// cost matrix (§4.6 step 4); a zero weight disables its term.
type DistanceWeights struct {
	Centers    float64
	Rects      float64
	Jaccard    float64
	Hist       float64
	FeatureCos float64
}

// TypeCompat permits association across object types (e.g. same-class or a
// configured compatible-class pair). Returning false forces the type gate.
type TypeCompat func(trackType, regionType ObjectType) bool

// CostMatrixBuilder fuses up to five distance terms into an N×M matrix
// between existing tracks and newly detected regions, gated by a
// prediction ellipse and a hard type-compatibility check.
type CostMatrixBuilder struct {
	Weights          DistanceWeights
	TypeCompat       TypeCompat
	MinAreaRadiusPix float64
	MinAreaRadiusK   float64
	HistEnabled      bool
	EmbEnabled       bool
}

// CostMatrix is the column-major N×M cost matrix: Values[i+j*N] is the
// cost of assigning track i to region j.
type CostMatrix struct {
	Values  []float64
	N, M    int
	MaxCost float64
	// MaxPossible is the guaranteed upper bound used by the type gate
	// (frame_width * frame_height).
	MaxPossible float64
}

// At returns the cost of assigning track i to region j.
func (c *CostMatrix) At(i, j int) float64 {
	return c.Values[i+j*c.N]
}

func (c *CostMatrix) set(i, j int, v float64) {
	c.Values[i+j*c.N] = v
	if v > c.MaxCost {
		c.MaxCost = v
	}
}

// Build computes the cost matrix for tracks against regions/embeddings in
// a frame of the given dimensions. embeddings may be nil when no
// appearance term is enabled (Open Question 2).
func (b *CostMatrixBuilder) Build(tracks []*Track, regions []Region, embeddings []RegionEmbedding, frameW, frameH float64) *CostMatrix {
	n := len(tracks)
	m := len(regions)
	maxPossible := frameW * frameH

	cm := &CostMatrix{
		Values:      make([]float64, n*m),
		N:           n,
		M:           m,
		MaxPossible: maxPossible,
	}

	typeCompat := b.TypeCompat
	if typeCompat == nil {
		typeCompat = func(a, b ObjectType) bool { return a == b }
	}

	for i, tr := range tracks {
		for j, reg := range regions {
			if !typeCompat(tr.Type, reg.Type) {
				cm.set(i, j, maxPossible)
				continue
			}

			minRadius := b.resolveMinRadius(tr)
			ellipse := tr.CalcPredictionEllipse(minRadius)
			cx, cy := reg.BRect.Center()
			e := tr.IsInsideArea(Point{X: cx, Y: cy}, ellipse)

			var cost float64

			if w := b.Weights.Centers; w > 0 {
				if e > 1 {
					cost += w * 1
				} else {
					cost += w * e
				}
			}

			if w := b.Weights.Rects; w > 0 {
				dw, dh := rectMismatchTerms(tr.LastRegion.BRect, reg.BRect)
				if e < 1 {
					cost += w * (1 - (1-e)*((1-dw)+(1-dh))*0.5)
				} else {
					cost += w * 1
				}
			}

			if w := b.Weights.Jaccard; w > 0 {
				cost += w * tr.DistJaccard(reg)
			}

			if w := b.Weights.Hist; w > 0 && b.HistEnabled {
				var re RegionEmbedding
				if j < len(embeddings) {
					re = embeddings[j]
				}
				if d, ok := tr.DistHist(re); ok {
					cost += w * d
				}
			}

			if w := b.Weights.FeatureCos; w > 0 && b.EmbEnabled && reg.Type == tr.Type {
				var re RegionEmbedding
				if j < len(embeddings) {
					re = embeddings[j]
				}
				if d, ok := tr.DistCosine(re, reg.Type); ok {
					cost += w * d
				}
			}

			cm.set(i, j, cost)
		}
	}

	return cm
}

// resolveMinRadius implements §4.6 step 2's radius resolution: absolute
// pixels when min_area_radius_pix >= 0, else a fraction of the track's
// last known region size.
func (b *CostMatrixBuilder) resolveMinRadius(tr *Track) Point {
	if b.MinAreaRadiusPix >= 0 {
		return Point{X: b.MinAreaRadiusPix, Y: b.MinAreaRadiusPix}
	}
	k := b.MinAreaRadiusK
	return Point{X: k * tr.LastRegion.RRect.W, Y: k * tr.LastRegion.RRect.H}
}

// rectMismatchTerms returns the width/height mismatch ratios used by the
// Rects term, which scales the size similarity (1 - mismatch) by (1 - e)
// so equal sizes inside the ellipse cost little; duplicated from
// Track.DistRect's internals so the builder
// doesn't need to construct a throwaway Region to call it.
func rectMismatchTerms(a, b Rect) (dw, dh float64) {
	return ratioMismatch(a.W, b.W), ratioMismatch(a.H, b.H)
}
