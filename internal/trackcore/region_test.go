package trackcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectCenterAndArea(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40}
	cx, cy := r.Center()
	assert.Equal(t, 25.0, cx)
	assert.Equal(t, 40.0, cy)
	assert.Equal(t, 1200.0, r.Area())
}

func TestRectEmpty(t *testing.T) {
	assert.True(t, Rect{W: 0, H: 10}.Empty())
	assert.True(t, Rect{W: 10, H: -1}.Empty())
	assert.False(t, Rect{W: 1, H: 1}.Empty())
}

func TestRectIoUIdentical(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	assert.InDelta(t, 1.0, r.IoU(r), 1e-9)
}

func TestRectIoUDisjoint(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 100, Y: 100, W: 10, H: 10}
	assert.Equal(t, 0.0, a.IoU(b))
}

func TestRectIoUPartialOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 0, W: 10, H: 10}
	// intersection 5x10=50, union 200-50=150
	assert.InDelta(t, 50.0/150.0, a.IoU(b), 1e-9)
}

func TestRectOutsideOf(t *testing.T) {
	bounds := Rect{X: 0, Y: 0, W: 100, H: 100}
	inside := Rect{X: 10, Y: 10, W: 5, H: 5}
	farRight := Rect{X: 200, Y: 10, W: 5, H: 5}
	assert.False(t, inside.OutsideOf(bounds))
	assert.True(t, farRight.OutsideOf(bounds))
}
