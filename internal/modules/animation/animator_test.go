package animation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride/internal/geo"
	"ride/internal/types"
)

var route = []types.Point{
	{Lat: 55.7558, Lng: 37.6173},
	{Lat: 55.7550, Lng: 37.6100},
	{Lat: 55.7550, Lng: 37.6100}, // repeated vertex
	{Lat: 55.7530, Lng: 37.6000},
	{Lat: 55.7520, Lng: 37.5914},
}

const (
	dwell    = 1500 * time.Millisecond
	duration = 10 * time.Second
)

func TestEaseInOutQuad(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOutQuad(0))
	assert.Equal(t, 0.5, EaseInOutQuad(0.5))
	assert.Equal(t, 1.0, EaseInOutQuad(1))
	assert.InDelta(t, 0.125, EaseInOutQuad(0.25), 1e-12)
	assert.InDelta(t, 0.875, EaseInOutQuad(0.75), 1e-12)
	assert.Equal(t, 0.0, EaseInOutQuad(-3))
	assert.Equal(t, 1.0, EaseInOutQuad(7))
}

func TestProgressDwellAndCompletion(t *testing.T) {
	a := New(route, dwell, duration)

	assert.Equal(t, 0.0, a.Progress(0))
	assert.Equal(t, 0.0, a.Progress(dwell))
	assert.Equal(t, 0.5, a.Progress(dwell+duration/2))
	assert.Equal(t, 1.0, a.Progress(dwell+duration))
	assert.Equal(t, 1.0, a.Progress(time.Hour))

	assert.False(t, a.Done(dwell+duration-time.Millisecond))
	assert.True(t, a.Done(dwell+duration))
	assert.Equal(t, route[0], a.Position(0))
	assert.Equal(t, route[len(route)-1], a.Position(dwell+duration))
}

func TestProgressAndPositionAreMonotonic(t *testing.T) {
	a := New(route, dwell, duration)

	prevP := -1.0
	prevDist := -1.0
	for el := time.Duration(0); el <= a.Total()+time.Second; el += 37 * time.Millisecond {
		p := a.Progress(el)
		require.GreaterOrEqual(t, p, prevP)
		require.LessOrEqual(t, p, 1.0)
		prevP = p

		// distance travelled along the line never decreases
		d := alongTrack(a, a.Position(el))
		require.GreaterOrEqual(t, d, prevDist-1e-6)
		prevDist = d
	}
}

func TestPositionStaysOnPolyline(t *testing.T) {
	a := New(route, 0, duration)
	for p := 0.0; p <= 1.0; p += 0.01 {
		pos := a.At(p)
		assert.LessOrEqual(t, distanceToPolyline(route, pos), 1e-9, "progress %v", p)
	}
}

func TestAtMatchesArcLength(t *testing.T) {
	pts := []types.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 3}}
	a := New(pts, 0, time.Second)

	mid := a.At(0.5)
	assert.InDelta(t, 0.0, mid.Lat, 1e-12)
	assert.InDelta(t, 1.5, mid.Lng, 1e-9)
	assert.InDelta(t, 1.0, a.At(1.0/3).Lng, 1e-9)
}

func TestDegenerateRoutes(t *testing.T) {
	p := types.Point{Lat: 55.75, Lng: 37.61}

	single := New([]types.Point{p}, dwell, duration)
	assert.Equal(t, p, single.Position(dwell+duration/2))

	zero := New([]types.Point{p, p}, dwell, duration)
	assert.Equal(t, 0.0, zero.Length())
	assert.Equal(t, p, zero.Position(dwell+duration))

	instant := New(route, 0, 0)
	assert.Equal(t, 1.0, instant.Progress(0))
	assert.Equal(t, route[len(route)-1], instant.Position(0))

	assert.Equal(t, types.Point{}, New(nil, 0, 0).Position(0))
}

func TestNewCopiesPoints(t *testing.T) {
	pts := append([]types.Point(nil), route...)
	a := New(pts, 0, duration)
	pts[0] = types.Point{}
	assert.Equal(t, route[0], a.At(0))
}

// alongTrack returns the arc length at which pos projects onto the animator's polyline.
func alongTrack(a *Animator, pos types.Point) float64 {
	_, along := project(a.points, a.cum, pos)
	return along
}

func distanceToPolyline(pts []types.Point, pos types.Point) float64 {
	d, _ := project(pts, geo.CumulativeMeters(pts), pos)
	return d
}

// project finds the closest planar projection of pos onto the polyline and
// returns its distance in degrees and its arc length in meters.
func project(pts []types.Point, cum []float64, pos types.Point) (float64, float64) {
	bestDist, bestAlong := math.Inf(1), 0.0
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.Lng-a.Lng, b.Lat-a.Lat
		s := 0.0
		if l2 := dx*dx + dy*dy; l2 > 0 {
			s = geo.Clamp(((pos.Lng-a.Lng)*dx+(pos.Lat-a.Lat)*dy)/l2, 0, 1)
		}
		q := geo.Interpolate(a, b, s)
		d := math.Hypot(q.Lng-pos.Lng, q.Lat-pos.Lat)
		if d < bestDist-1e-15 {
			bestDist, bestAlong = d, cum[i-1]+s*(cum[i]-cum[i-1])
		}
	}
	return bestDist, bestAlong
}
