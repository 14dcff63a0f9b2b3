package trackcore

import "math"

// emaHistWeight and emaEmbWeight are the stored-appearance smoothing
// coefficients (§9 "EMA coefficients ... chosen by implementer within
// (0,1)"). Histograms are noisier per-frame than learned embeddings so they
// get a larger blend-in weight; both are documented here and held constant
// across a tracker's lifetime.
const (
	emaHistWeight = 0.25
	emaEmbWeight  = 0.10
)

// Track is one tracked identity: a motion filter, the smoothed region last
// emitted, bounded trace history, and EMA-smoothed appearance references.
type Track struct {
	ID     uint64
	Type   ObjectType
	filter MotionFilter

	LastRegion Region
	Trace      []Point

	SkippedFrames int
	StaticFrames  int

	StoredHist   []float64
	StoredEmb    []float64
	StoredEmbDot float64

	maxTraceLen int
}

// NewTrack births a track from an unassigned region, seeding the motion
// filter and any available appearance descriptors.
func NewTrack(id uint64, region Region, re RegionEmbedding, filter MotionFilter, maxTraceLen int) *Track {
	cx, cy := region.BRect.Center()
	t := &Track{
		ID:          id,
		Type:        region.Type,
		filter:      filter,
		LastRegion:  region,
		Trace:       []Point{{X: cx, Y: cy}},
		maxTraceLen: maxTraceLen,
		StoredHist:  append([]float64(nil), re.Hist...),
		StoredEmb:   append([]float64(nil), re.Emb...),
	}
	t.StoredEmbDot = dot(t.StoredEmb, t.StoredEmb)
	return t
}

// Last returns the smoothed region emitted on the most recent Update (the
// LastRegion field).
func (t *Track) Last() Region { return t.LastRegion }

// CalcPredictionEllipse derives the gating ellipse around the filter's
// predicted center using the resolved minimum radius (§4.6 step 2).
func (t *Track) CalcPredictionEllipse(minRadius Point) RotatedRect {
	return t.filter.PredictionEllipse(minRadius)
}

// IsInsideArea reports the unit-normalized radial distance of p from
// ellipse: <=1 inside, >1 outside.
func (t *Track) IsInsideArea(p Point, ellipse RotatedRect) float64 {
	return t.filter.IsInsideArea(p, ellipse)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DistCenter is the normalized center displacement between the track's
// last region and r, in [0,1].
func (t *Track) DistCenter(r Region) float64 {
	cx1, cy1 := t.LastRegion.BRect.Center()
	cx2, cy2 := r.BRect.Center()
	dx := cx1 - cx2
	dy := cy1 - cy2
	dist := math.Hypot(dx, dy)

	scale := (rectDiagonal(t.LastRegion.BRect) + rectDiagonal(r.BRect)) / 2
	if scale <= 0 {
		scale = 1
	}
	return clip01(dist / scale)
}

func rectDiagonal(r Rect) float64 {
	return math.Hypot(r.W, r.H)
}

// DistRect is the combined width/height mismatch between the track's last
// region and r, in [0,1].
func (t *Track) DistRect(r Region) float64 {
	w1, h1 := t.LastRegion.BRect.W, t.LastRegion.BRect.H
	w2, h2 := r.BRect.W, r.BRect.H

	dw := ratioMismatch(w1, w2)
	dh := ratioMismatch(h1, h2)
	return clip01((dw + dh) / 2)
}

func ratioMismatch(a, b float64) float64 {
	m := math.Max(a, b)
	if m <= 0 {
		return 0
	}
	return math.Abs(a-b) / m
}

// DistJaccard is 1 minus the IoU of bounding boxes, in [0,1].
func (t *Track) DistJaccard(r Region) float64 {
	return clip01(1 - t.LastRegion.BRect.IoU(r.BRect))
}

// DistHist is the Bhattacharyya distance between the track's stored
// histogram and re.Hist. The second return is false when either histogram
// is empty, meaning the term must be skipped.
func (t *Track) DistHist(re RegionEmbedding) (float64, bool) {
	if len(t.StoredHist) == 0 || !re.hasHist() || len(t.StoredHist) != len(re.Hist) {
		return 0, false
	}
	return clip01(bhattacharyya(t.StoredHist, re.Hist)), true
}

// bhattacharyya returns the Bhattacharyya distance between two histograms,
// renormalized to sum to 1 so they are treated as probability mass
// functions regardless of pixel count.
func bhattacharyya(p, q []float64) float64 {
	var sp, sq float64
	for i := range p {
		sp += p[i]
		sq += q[i]
	}
	if sp <= 0 || sq <= 0 {
		return 1
	}
	var bc float64
	for i := range p {
		bc += math.Sqrt((p[i] / sp) * (q[i] / sq))
	}
	bc = clip01(bc)
	return math.Sqrt(1 - bc)
}

// DistCosine is 1 minus the cosine similarity between the track's stored
// embedding and re.Emb. The second return is false when either embedding
// is empty or the types differ (caller also enforces the type check; this
// guards direct callers too).
func (t *Track) DistCosine(re RegionEmbedding, candidateType ObjectType) (float64, bool) {
	if len(t.StoredEmb) == 0 || !re.hasEmb() || t.Type != candidateType || len(t.StoredEmb) != len(re.Emb) {
		return 0, false
	}
	denom := math.Sqrt(t.StoredEmbDot) * math.Sqrt(re.Dot)
	if denom <= 0 {
		return 0, false
	}
	return clip01(1 - cosineSimilarity(t.StoredEmb, re.Emb, denom)), true
}

// cosineSimilarity returns <a,b>/denom, clamped to [-1,1]. Adapted from the
// teacher's vision.CosineSimilarity, generalized from float32 to float64
// and from a recomputed norm to the cached Dot/StoredEmbDot denominator.
func cosineSimilarity(a, b []float64, denom float64) float64 {
	cos := dot(a, b) / denom
	if cos > 1 {
		return 1
	}
	if cos < -1 {
		return -1
	}
	return cos
}

// Update advances the track by one frame. When wasAssigned, region/re are
// the matched detection and its appearance descriptors; otherwise region
// is the zero Region and re is empty.
func (t *Track) Update(region Region, re RegionEmbedding, wasAssigned bool, abandonedWindowFrames int, maxStaticSpeed float64) {
	t.filter.Predict()

	if wasAssigned {
		t.filter.Update(region)
		t.SkippedFrames = 0
		t.Type = region.Type
		t.LastRegion = Region{
			BRect: t.filter.SmoothedRect(),
			RRect: region.RRect,
			Type:  region.Type,
			Conf:  region.Conf,
			Crop:  region.Crop,
		}
		t.mergeAppearance(re)
	} else {
		t.filter.UpdateSkipped()
		t.LastRegion = Region{
			BRect: t.filter.SmoothedRect(),
			RRect: t.LastRegion.RRect,
			Type:  t.Type,
			Conf:  t.LastRegion.Conf,
		}
	}

	cx, cy := t.LastRegion.BRect.Center()
	t.Trace = append(t.Trace, Point{X: cx, Y: cy})
	if len(t.Trace) > t.maxTraceLen {
		t.Trace = t.Trace[len(t.Trace)-t.maxTraceLen:]
	}

	t.recomputeStatic(abandonedWindowFrames, maxStaticSpeed)
}

func (t *Track) mergeAppearance(re RegionEmbedding) {
	if re.hasHist() {
		t.StoredHist = ema(t.StoredHist, re.Hist, emaHistWeight)
	}
	if re.hasEmb() {
		t.StoredEmb = ema(t.StoredEmb, re.Emb, emaEmbWeight)
		t.StoredEmbDot = dot(t.StoredEmb, t.StoredEmb)
	}
}

func ema(stored, next []float64, weight float64) []float64 {
	if len(stored) != len(next) {
		return append([]float64(nil), next...)
	}
	out := make([]float64, len(stored))
	for i := range stored {
		out[i] = stored[i]*(1-weight) + next[i]*weight
	}
	return out
}

func (t *Track) recomputeStatic(windowFrames int, maxSpeed float64) {
	if windowFrames <= 0 || len(t.Trace) <= windowFrames {
		return
	}
	cur := t.Trace[len(t.Trace)-1]
	prev := t.Trace[len(t.Trace)-1-windowFrames]
	disp := math.Hypot(cur.X-prev.X, cur.Y-prev.Y)
	if disp < maxSpeed {
		t.StaticFrames++
	} else {
		t.StaticFrames = 0
	}
}

// IsOutOfFrame reports whether the track's smoothed bounding rect lies
// entirely outside frameBounds.
func (t *Track) IsOutOfFrame(frameBounds Rect) bool {
	return t.LastRegion.BRect.OutsideOf(frameBounds)
}

// IsStaticTimeout reports whether the track has been static for at least
// windowFrames consecutive frames.
func (t *Track) IsStaticTimeout(windowFrames int) bool {
	return t.StaticFrames >= windowFrames
}
