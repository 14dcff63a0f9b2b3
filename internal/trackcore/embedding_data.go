package trackcore

// RegionEmbedding holds the appearance descriptors computed for one region
// in one frame: a color histogram and a learned embedding vector, either of
// which may be empty when the corresponding extractor has nothing to say
// about this region (no crop, disabled term, or unregistered object type).
type RegionEmbedding struct {
	Hist []float64
	Emb  []float64
	// Dot is the cached self dot-product of Emb, used as the cosine
	// denominator so callers never need to recompute ||Emb||.
	Dot float64
}

func (re RegionEmbedding) hasHist() bool { return len(re.Hist) > 0 }
func (re RegionEmbedding) hasEmb() bool  { return len(re.Emb) > 0 }

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
