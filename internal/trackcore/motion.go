package trackcore

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FilterGoal selects what a MotionFilter models directly: the full
// (x,y,w,h) rectangle, or only the center point, carrying width/height
// forward from the last measurement untouched.
type FilterGoal int

const (
	GoalRect FilterGoal = iota
	GoalPoint
)

// MotionFilter is the per-track motion model contract relied on by Track
// and CostMatrixBuilder: predict the next state, ingest or skip a
// measurement, and expose a gating ellipse around the predicted center.
type MotionFilter interface {
	Predict()
	Update(r Region)
	UpdateSkipped()
	PredictionEllipse(minRadius Point) RotatedRect
	IsInsideArea(p Point, ellipse RotatedRect) float64
	SmoothedRect() Rect
}

// KalmanConfig parametrizes KalmanFilter construction (§6 TrackerSettings).
type KalmanConfig struct {
	Goal            FilterGoal
	Dt              float64
	AccelNoiseMag   float64
	UseAcceleration bool
}

// KalmanFilter is a constant-velocity (or constant-acceleration) Kalman
// filter over either a full rectangle state or a center-only state. There
// is no example in the retrieval pack implementing a Kalman filter in Go;
// the predict/update staging is grounded on go-coffee's tracker.go method
// breakdown (predict/associate/updateTrack), and the linear algebra on
// gonum.org/v1/gonum/mat, used elsewhere in the pack by banshee and
// matrix-profile-foundation for numerical matrix work.
type KalmanFilter struct {
	cfg KalmanConfig

	// dims: blockDim is 2 for point-goal (x,y) or 4 for rect-goal
	// (x,y,w,h); the full state additionally carries a velocity (and,
	// if enabled, acceleration) term per dimension.
	blockDim int
	orderDim int // 2 (position+velocity) or 3 (+acceleration)

	x *mat.VecDense // state
	p *mat.Dense    // covariance
	f *mat.Dense    // transition
	q *mat.Dense    // process noise
	h *mat.Dense    // measurement matrix
	r *mat.Dense    // measurement noise

	lastW, lastH float64 // carried forward for point-goal smoothed rects
	initialized  bool
}

// NewKalmanFilter builds a filter seeded at the first observed region.
func NewKalmanFilter(cfg KalmanConfig, seed Region) *KalmanFilter {
	blockDim := 4
	if cfg.Goal == GoalPoint {
		blockDim = 2
	}
	orderDim := 2
	if cfg.UseAcceleration {
		orderDim = 3
	}
	n := blockDim * orderDim

	kf := &KalmanFilter{
		cfg:      cfg,
		blockDim: blockDim,
		orderDim: orderDim,
		x:        mat.NewVecDense(n, nil),
		p:        identity(n, 1.0),
		f:        transitionMatrix(blockDim, orderDim, cfg.Dt),
		q:        processNoise(blockDim, orderDim, cfg.Dt, cfg.AccelNoiseMag),
		h:        measurementMatrix(blockDim, orderDim),
		r:        identity(blockDim, 1.0),
	}
	kf.seed(seed)
	return kf
}

func (kf *KalmanFilter) seed(r Region) {
	cx, cy := r.BRect.Center()
	if kf.blockDim == 4 {
		kf.x.SetVec(0, cx)
		kf.x.SetVec(kf.orderDim, cy)
		kf.x.SetVec(2*kf.orderDim, r.BRect.W)
		kf.x.SetVec(3*kf.orderDim, r.BRect.H)
	} else {
		kf.x.SetVec(0, cx)
		kf.x.SetVec(kf.orderDim, cy)
	}
	kf.lastW, kf.lastH = r.BRect.W, r.BRect.H
	kf.initialized = true
}

func identity(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

// transitionMatrix builds a block-diagonal constant-velocity (or
// constant-acceleration) transition matrix: one orderDim×orderDim block per
// tracked scalar (x, y, and for rect-goal w, h).
func transitionMatrix(blockDim, orderDim int, dt float64) *mat.Dense {
	n := blockDim * orderDim
	f := identity(n, 1.0)
	for b := 0; b < blockDim; b++ {
		base := b * orderDim
		f.Set(base, base+1, dt)
		if orderDim == 3 {
			f.Set(base, base+2, dt*dt/2)
			f.Set(base+1, base+2, dt)
		}
	}
	return f
}

func measurementMatrix(blockDim, orderDim int) *mat.Dense {
	h := mat.NewDense(blockDim, blockDim*orderDim, nil)
	for b := 0; b < blockDim; b++ {
		h.Set(b, b*orderDim, 1.0)
	}
	return h
}

func processNoise(blockDim, orderDim int, dt, accelNoiseMag float64) *mat.Dense {
	n := blockDim * orderDim
	q := mat.NewDense(n, n, nil)
	mag := accelNoiseMag
	if mag <= 0 {
		mag = 0.5
	}
	for b := 0; b < blockDim; b++ {
		base := b * orderDim
		q.Set(base, base, dt*dt*dt*dt/4*mag)
		q.Set(base, base+1, dt*dt*dt/2*mag)
		q.Set(base+1, base, dt*dt*dt/2*mag)
		q.Set(base+1, base+1, dt*dt*mag)
	}
	return q
}

func (kf *KalmanFilter) Predict() {
	var xNext mat.VecDense
	xNext.MulVec(kf.f, kf.x)
	kf.x.CopyVec(&xNext)

	var fp, fpft mat.Dense
	fp.Mul(kf.f, kf.p)
	fpft.Mul(&fp, kf.f.T())
	fpft.Add(&fpft, kf.q)
	kf.p.Copy(&fpft)
}

func (kf *KalmanFilter) Update(reg Region) {
	cx, cy := reg.BRect.Center()
	var z *mat.VecDense
	if kf.blockDim == 4 {
		z = mat.NewVecDense(4, []float64{cx, cy, reg.BRect.W, reg.BRect.H})
	} else {
		z = mat.NewVecDense(2, []float64{cx, cy})
	}

	var hx mat.VecDense
	hx.MulVec(kf.h, kf.x)
	y := mat.NewVecDense(kf.blockDim, nil)
	y.SubVec(z, &hx)

	var hp, hpht, s mat.Dense
	hp.Mul(kf.h, kf.p)
	hpht.Mul(&hp, kf.h.T())
	s.Add(&hpht, kf.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		// Singular innovation covariance: skip the correction rather than
		// propagate NaNs; the predicted state stands for this step.
		kf.lastW, kf.lastH = reg.BRect.W, reg.BRect.H
		return
	}

	var pht, k mat.Dense
	pht.Mul(kf.p, kf.h.T())
	k.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&k, y)
	kf.x.AddVec(kf.x, &ky)

	n := kf.blockDim * kf.orderDim
	var kh, ikh, newP mat.Dense
	kh.Mul(&k, kf.h)
	ikh.Sub(identity(n, 1.0), &kh)
	newP.Mul(&ikh, kf.p)
	kf.p.Copy(&newP)

	kf.lastW, kf.lastH = reg.BRect.W, reg.BRect.H
}

// UpdateSkipped advances no further state: Predict already moved the state
// forward for this step, and there is no measurement to assimilate.
func (kf *KalmanFilter) UpdateSkipped() {}

func (kf *KalmanFilter) center() (float64, float64) {
	return kf.x.AtVec(0), kf.x.AtVec(kf.orderDim)
}

func (kf *KalmanFilter) size() (float64, float64) {
	if kf.blockDim == 4 {
		return kf.x.AtVec(2 * kf.orderDim), kf.x.AtVec(3 * kf.orderDim)
	}
	return kf.lastW, kf.lastH
}

// PredictionEllipse returns an ellipse around the predicted center whose
// axes are at least minRadius in each direction, growing with positional
// uncertainty.
func (kf *KalmanFilter) PredictionEllipse(minRadius Point) RotatedRect {
	cx, cy := kf.center()
	pxx := kf.p.At(0, 0)
	pyy := kf.p.At(kf.orderDim, kf.orderDim)

	ax := math.Max(minRadius.X, 2*math.Sqrt(math.Max(pxx, 0)))
	ay := math.Max(minRadius.Y, 2*math.Sqrt(math.Max(pyy, 0)))

	return RotatedRect{CX: cx, CY: cy, W: 2 * ax, H: 2 * ay}
}

// IsInsideArea returns the unit-normalized radial distance of p from the
// ellipse center: t<=1 means inside, t>1 outside.
func (kf *KalmanFilter) IsInsideArea(p Point, ellipse RotatedRect) float64 {
	ax := ellipse.W / 2
	ay := ellipse.H / 2
	if ax <= 0 || ay <= 0 {
		return math.Inf(1)
	}
	dx := (p.X - ellipse.CX) / ax
	dy := (p.Y - ellipse.CY) / ay
	return math.Sqrt(dx*dx + dy*dy)
}

// SmoothedRect returns the filter's current best estimate of the region's
// bounding rectangle.
func (kf *KalmanFilter) SmoothedRect() Rect {
	cx, cy := kf.center()
	w, h := kf.size()
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}
