package trackcore

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// Tracker orchestrates one call of Update per frame: extraction, cost
// matrix construction, assignment solving, gating, retirement, birth, and
// per-track update (§4.7). Update is not reentrant; callers must serialize
// frames (§5).
type Tracker struct {
	settings TrackerSettings

	hist *HistogramExtractor
	emb  *EmbeddingExtractor

	solver  AssignmentSolver
	builder *CostMatrixBuilder

	tracks []*Track
	nextID uint64

	prevFrame image.Image
}

// NewTracker constructs a Tracker from settings and the (already
// initialized, possibly partially-registered) extractor instances.
func NewTracker(settings TrackerSettings, hist *HistogramExtractor, emb *EmbeddingExtractor) *Tracker {
	settings.resolveExtractorGates()

	return &Tracker{
		settings: settings,
		hist:     hist,
		emb:      emb,
		solver:   NewAssignmentSolver(settings.MatchType, settings.DistThreshold),
		builder: &CostMatrixBuilder{
			Weights:          settings.Weights,
			TypeCompat:       settings.TypeCompat,
			MinAreaRadiusPix: settings.MinAreaRadiusPix,
			MinAreaRadiusK:   settings.MinAreaRadiusK,
			HistEnabled:      settings.EnableHistTerm,
			EmbEnabled:       settings.EnableEmbeddingTerm,
		},
	}
}

// Tracks returns the tracker's current live tracks, ordered by internal
// container position (not by id).
func (t *Tracker) Tracks() []*Track {
	return t.tracks
}

// Update assimilates regions detected in currFrame into the tracked set
// (§4.7). regions and currFrame are read-only for the duration of the
// call; the tracker keeps derived state plus a reference to currFrame as
// the previous frame.
func (t *Tracker) Update(ctx context.Context, regions []Region, currFrame image.Image, fps float64) error {
	embeddings := t.extractAll(currFrame, regions)

	var assignment []int
	if len(t.tracks) > 0 {
		frameW, frameH := frameDim(currFrame)
		cm := t.builder.Build(t.tracks, regions, embeddings, frameW, frameH)
		assignment = t.solver.Solve(cm)
		t.applyGating(cm, assignment)
		t.retire(assignment, currFrame, fps)
	} else {
		assignment = nil
	}

	matchedRegion := make([]bool, len(regions))
	for _, j := range assignment {
		if j != Unassigned {
			matchedRegion[j] = true
		}
	}
	for j, reg := range regions {
		if matchedRegion[j] {
			continue
		}
		var re RegionEmbedding
		if j < len(embeddings) {
			re = embeddings[j]
		}
		filter := t.newFilterFor(reg)
		track := NewTrack(t.nextID, reg, re, filter, t.settings.MaxTraceLength)
		t.nextID++
		t.tracks = append(t.tracks, track)
	}

	if err := t.updateSurviving(ctx, assignment, regions, embeddings, fps); err != nil {
		return fmt.Errorf("update tracks: %w", err)
	}

	t.prevFrame = currFrame
	return nil
}

func (t *Tracker) newFilterFor(seed Region) MotionFilter {
	return NewKalmanFilter(t.settings.Kalman, seed)
}

// extractAll runs the appearance extractors, honoring Open Question 2:
// when neither appearance term is enabled, no RegionEmbedding slice is
// allocated at all.
func (t *Tracker) extractAll(currFrame image.Image, regions []Region) []RegionEmbedding {
	if !t.settings.EnableHistTerm && !t.settings.EnableEmbeddingTerm {
		return nil
	}

	out := make([]RegionEmbedding, len(regions))
	for i, reg := range regions {
		var re RegionEmbedding
		if t.settings.EnableHistTerm && t.hist != nil {
			re.Hist = t.hist.Extract(currFrame, reg.BRect)
		}
		if t.settings.EnableEmbeddingTerm && t.emb != nil {
			if v, d, err := t.emb.Extract(currFrame, reg.BRect, reg.Type); err == nil {
				re.Emb = v
				re.Dot = d
			}
		}
		out[i] = re
	}
	return out
}

// applyGating implements §4.7 step 4: void any assignment whose pre-gating
// cost exceeds dist_threshold, and increment skipped_frames for every
// track left unassigned after gating (whether the solver never proposed a
// match, or gating voided one).
func (t *Tracker) applyGating(cm *CostMatrix, assignment []int) {
	for i, j := range assignment {
		if j == Unassigned {
			t.tracks[i].SkippedFrames++
			continue
		}
		if cm.At(i, j) > t.settings.DistThreshold {
			assignment[i] = Unassigned
			t.tracks[i].SkippedFrames++
		}
	}
}

// retire implements §4.7 step 5: drop any track matching a retirement
// predicate, deleting the track and its assignment slot in lock-step so
// the remaining indices stay aligned (§9 pointer-graph note).
func (t *Tracker) retire(assignment []int, currFrame image.Image, fps float64) {
	frameBounds := frameRect(currFrame)
	staticWindow := t.settings.staticTimeoutFrames(fps)

	kept := t.tracks[:0:0]
	keptAssignment := assignment[:0:0]
	for i, tr := range t.tracks {
		if tr.SkippedFrames > t.settings.MaxAllowedSkippedFrames ||
			tr.IsOutOfFrame(frameBounds) ||
			tr.IsStaticTimeout(staticWindow) {
			continue
		}
		kept = append(kept, tr)
		keptAssignment = append(keptAssignment, assignment[i])
	}
	t.tracks = kept
	copy(assignment, keptAssignment)
	for i := len(keptAssignment); i < len(assignment); i++ {
		assignment[i] = Unassigned
	}
}

// updateSurviving implements §4.7 step 7: dispatches track.Update for
// every surviving track, in parallel over disjoint indices via errgroup,
// grounded on the spec's data-parallel loop contract (§5) — each goroutine
// writes only to its own track.
func (t *Tracker) updateSurviving(ctx context.Context, assignment []int, regions []Region, embeddings []RegionEmbedding, fps float64) error {
	abandonedWindow := t.settings.abandonedWindowFrames(fps)

	g, _ := errgroup.WithContext(ctx)
	for i, tr := range t.tracks {
		i, tr := i, tr
		g.Go(func() error {
			if assignment != nil && i < len(assignment) && assignment[i] != Unassigned {
				j := assignment[i]
				var re RegionEmbedding
				if j < len(embeddings) {
					re = embeddings[j]
				}
				tr.Update(regions[j], re, true, abandonedWindow, t.settings.MaxSpeedForStatic)
			} else {
				tr.Update(Region{}, RegionEmbedding{}, false, abandonedWindow, t.settings.MaxSpeedForStatic)
			}
			return nil
		})
	}
	return g.Wait()
}

func frameRect(img image.Image) Rect {
	if img == nil {
		return Rect{}
	}
	b := img.Bounds()
	return Rect{X: float64(b.Min.X), Y: float64(b.Min.Y), W: float64(b.Dx()), H: float64(b.Dy())}
}

func frameDim(img image.Image) (w, h float64) {
	r := frameRect(img)
	return r.W, r.H
}
