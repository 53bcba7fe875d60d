// README: Synthetic routes used when every upstream fails, plus the from==to case.
package routing

import (
	"math"

	"ride/internal/geo"
	"ride/internal/types"
)

const (
	fallbackMinPoints   = 20
	fallbackMaxPoints   = 1000
	fallbackMetersPerPt = 50
	fallbackWiggleDeg   = 0.001
)

func degenerateRoute(p types.Point) types.RouteResult {
	return types.RouteResult{
		Routes: []types.Route{{
			Points: []types.Point{p, p},
			Source: SourceDegenerate,
		}},
	}
}

// FallbackRoute approximates a road route from the great-circle distance.
// Interior points get a sinusoidal sideways offset; endpoints are exact.
func FallbackRoute(from, to types.Point, roadFactor, speedKmh float64) types.Route {
	distance := geo.HaversineMeters(from, to) * roadFactor
	duration := 0.0
	if speedKmh > 0 {
		duration = distance / (speedKmh * 1000 / 3600)
	}

	n := int(math.Floor(distance / fallbackMetersPerPt))
	if n < fallbackMinPoints {
		n = fallbackMinPoints
	}
	if n > fallbackMaxPoints {
		n = fallbackMaxPoints
	}

	angle := math.Atan2(to.Lat-from.Lat, to.Lng-from.Lng)
	points := make([]types.Point, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		p := geo.Interpolate(from, to, t)
		if i > 0 && i < n-1 {
			offset := math.Sin(t*2*math.Pi) * fallbackWiggleDeg
			p.Lat += math.Cos(angle) * offset
			p.Lng -= math.Sin(angle) * offset
		}
		points[i] = p
	}
	points[n-1] = to

	return types.Route{
		Points:          points,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Source:          SourceFallback,
	}
}
