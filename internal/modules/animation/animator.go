// Package animation moves a vehicle along a polyline as a pure function of elapsed time.
package animation

import (
	"sort"
	"time"

	"ride/internal/geo"
	"ride/internal/types"
)

type Animator struct {
	points   []types.Point
	cum      []float64
	total    float64
	dwell    time.Duration
	duration time.Duration
}

// New precomputes cumulative segment lengths. points must be non-empty.
func New(points []types.Point, dwell, duration time.Duration) *Animator {
	pts := append([]types.Point(nil), points...)
	cum := geo.CumulativeMeters(pts)
	total := 0.0
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}
	return &Animator{points: pts, cum: cum, total: total, dwell: dwell, duration: duration}
}

// Length is the polyline length in meters.
func (a *Animator) Length() float64 { return a.total }

// Total is dwell plus movement time.
func (a *Animator) Total() time.Duration { return a.dwell + a.duration }

// Progress maps elapsed time to eased progress in [0,1]; zero during the dwell.
func (a *Animator) Progress(elapsed time.Duration) float64 {
	moving := elapsed - a.dwell
	if a.duration <= 0 {
		if moving >= 0 {
			return 1
		}
		return 0
	}
	if moving <= 0 {
		return 0
	}
	if moving >= a.duration {
		return 1
	}
	return EaseInOutQuad(float64(moving) / float64(a.duration))
}

func (a *Animator) Done(elapsed time.Duration) bool {
	return elapsed >= a.Total()
}

// Position returns the point at arc-length fraction Progress(elapsed) along the polyline.
func (a *Animator) Position(elapsed time.Duration) types.Point {
	return a.At(a.Progress(elapsed))
}

// At returns the point at arc-length fraction p, clamped to [0,1].
func (a *Animator) At(p float64) types.Point {
	n := len(a.points)
	if n == 0 {
		return types.Point{}
	}
	if n == 1 || a.total == 0 || p <= 0 {
		return a.points[0]
	}
	if p >= 1 {
		return a.points[n-1]
	}

	target := p * a.total
	// first index whose cumulative length reaches target; segment is (i-1, i)
	i := sort.SearchFloat64s(a.cum, target)
	if i <= 0 {
		return a.points[0]
	}
	if i >= n {
		return a.points[n-1]
	}
	seg := a.cum[i] - a.cum[i-1]
	if seg == 0 {
		return a.points[i]
	}
	return geo.Interpolate(a.points[i-1], a.points[i], (target-a.cum[i-1])/seg)
}

// EaseInOutQuad accelerates until t=0.5 and decelerates after.
func EaseInOutQuad(t float64) float64 {
	t = geo.Clamp(t, 0, 1)
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}
