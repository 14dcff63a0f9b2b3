package trackcore

import "image"

// histBins is the number of bins per channel; fixed by contract.
const histBins = 64

// HistogramExtractor computes a per-channel color histogram for a region
// crop, concatenated across channels and min-max normalized to [0,1].
type HistogramExtractor struct{}

// NewHistogramExtractor returns a ready HistogramExtractor. It holds no
// state; Tracker holds it by pointer and skips histogram extraction when
// it is nil.
func NewHistogramExtractor() *HistogramExtractor {
	return &HistogramExtractor{}
}

// Extract computes the normalized histogram of brect cropped from frame.
// An empty brect yields an empty histogram.
func (h *HistogramExtractor) Extract(frame image.Image, brect Rect) []float64 {
	if brect.Empty() || frame == nil {
		return nil
	}

	crop := cropRegion(frame, brect)
	if crop == nil {
		return nil
	}

	hist := make([]float64, 3*histBins)
	bounds := crop.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := crop.At(x, y).RGBA()
			hist[binFor(r)]++
			hist[histBins+binFor(g)]++
			hist[2*histBins+binFor(b)]++
		}
	}

	minMaxNormalize(hist)
	return hist
}

// binFor maps a 16-bit RGBA channel sample into one of histBins buckets
// over the [0,255] range.
func binFor(c16 uint32) int {
	c8 := c16 >> 8
	bin := int(c8) * histBins / 256
	if bin >= histBins {
		bin = histBins - 1
	}
	return bin
}

func minMaxNormalize(v []float64) {
	if len(v) == 0 {
		return
	}
	min, max := v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	span := max - min
	if span == 0 {
		for i := range v {
			v[i] = 0
		}
		return
	}
	for i := range v {
		v[i] = (v[i] - min) / span
	}
}

// cropRegion extracts brect from frame, clamped to frame bounds. Uses a
// zero-copy SubImage when the concrete type supports it.
func cropRegion(frame image.Image, brect Rect) image.Image {
	bounds := frame.Bounds()

	x1 := int(brect.X)
	y1 := int(brect.Y)
	x2 := int(brect.X + brect.W)
	y2 := int(brect.Y + brect.H)

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil
	}

	rect := image.Rect(x1, y1, x2, y2)

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := frame.(subImager); ok {
		return si.SubImage(rect)
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for cy := y1; cy < y2; cy++ {
		for cx := x1; cx < x2; cx++ {
			crop.Set(cx-x1, cy-y1, frame.At(cx, cy))
		}
	}
	return crop
}
