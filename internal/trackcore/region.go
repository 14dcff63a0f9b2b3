// Package trackcore implements the data-association core of the tracker:
// building a cost matrix between existing tracks and newly detected regions,
// solving it under a gating threshold, and managing track birth, update and
// retirement across frames. Detection, frame acquisition, and rendering are
// external collaborators; only their contracts are consumed here.
package trackcore

import (
	"image"
	"math"
)

// ObjectType tags the class of a detected or tracked region (e.g. "person",
// "vehicle", "face"). The zero value is a valid, if uninformative, tag.
type ObjectType string

// Rect is an axis-aligned bounding rectangle in pixel coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the rectangle's center point.
func (r Rect) Center() (cx, cy float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Area returns the rectangle's area.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// IoU returns the intersection-over-union of r and o, in [0,1].
func (r Rect) IoU(o Rect) float64 {
	ix1 := math.Max(r.X, o.X)
	iy1 := math.Max(r.Y, o.Y)
	ix2 := math.Min(r.X+r.W, o.X+o.W)
	iy2 := math.Min(r.Y+r.H, o.Y+o.H)

	iw := math.Max(0, ix2-ix1)
	ih := math.Max(0, iy2-iy1)
	inter := iw * ih
	if inter <= 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// OutsideOf reports whether r lies entirely outside bounds.
func (r Rect) OutsideOf(bounds Rect) bool {
	return r.X+r.W < bounds.X || r.X > bounds.X+bounds.W ||
		r.Y+r.H < bounds.Y || r.Y > bounds.Y+bounds.H
}

// RotatedRect is an oriented rectangle: center, size, and rotation angle in
// radians. Used for the motion filter's prediction ellipse and for a
// region's oriented bounding box when available.
type RotatedRect struct {
	CX, CY   float64
	W, H     float64
	AngleRad float64
}

// Point is a plain 2D point, used for trace history and ellipse membership
// tests.
type Point struct {
	X, Y float64
}

// Region is one detection in one frame: immutable once constructed.
type Region struct {
	BRect Rect
	RRect RotatedRect
	Type  ObjectType
	Conf  float64
	// Crop is an optional reference to the raw pixel data backing BRect in
	// the frame this region was detected in. May be nil.
	Crop image.Image
}
