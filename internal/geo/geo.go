// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"ride/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func HaversineMeters(a, b types.Point) float64 {
	return HaversineKm(a, b) * 1000
}

// Interpolate returns the point at fraction t along the straight segment a->b.
// t is clamped to [0,1] so the result never leaves the segment.
func Interpolate(a, b types.Point, t float64) types.Point {
	t = Clamp(t, 0, 1)
	return types.Point{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// CumulativeMeters returns running distances; out[0] is 0 and out[len-1] is the line length.
func CumulativeMeters(points []types.Point) []float64 {
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		out[i] = out[i-1] + HaversineMeters(points[i-1], points[i])
	}
	return out
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func WithinMeters(a, b types.Point, eps float64) bool {
	return HaversineMeters(a, b) <= eps
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
