package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ride/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 55.7558, Lng: 37.6173},
			b:         types.Point{Lat: 55.7558, Lng: 37.6173},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Tverskaya to Arbat (~1.7km)",
			a:         types.Point{Lat: 55.7558, Lng: 37.6173},
			b:         types.Point{Lat: 55.7520, Lng: 37.5914},
			wantKm:    1.68,
			tolerance: 0.1,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         types.Point{Lat: 40.7128, Lng: -74.0060},
			b:         types.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantKm, HaversineKm(tt.a, tt.b), tt.tolerance)
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: 25.0, Lng: 121.0}
	b := types.Point{Lat: 26.0, Lng: 122.0}
	assert.InDelta(t, HaversineKm(a, b), HaversineKm(b, a), 1e-9)
}

func TestInterpolateClampsFraction(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 10, Lng: 20}

	assert.Equal(t, a, Interpolate(a, b, -1))
	assert.Equal(t, b, Interpolate(a, b, 2))
	assert.Equal(t, types.Point{Lat: 5, Lng: 10}, Interpolate(a, b, 0.5))
}

func TestCumulativeMeters(t *testing.T) {
	pts := []types.Point{{Lat: 55.75, Lng: 37.60}, {Lat: 55.76, Lng: 37.60}, {Lat: 55.76, Lng: 37.62}}
	cum := CumulativeMeters(pts)

	assert.Len(t, cum, 3)
	assert.Equal(t, 0.0, cum[0])
	assert.InDelta(t, HaversineMeters(pts[0], pts[1]), cum[1], 1e-9)
	assert.InDelta(t, cum[1]+HaversineMeters(pts[1], pts[2]), cum[2], 1e-9)
	assert.Equal(t, []float64{0}, CumulativeMeters(pts[:1]))
}

func TestWithinMeters(t *testing.T) {
	p := types.Point{Lat: 55.7558, Lng: 37.6173}
	q := types.Point{Lat: 55.75581, Lng: 37.6173}

	assert.True(t, WithinMeters(p, q, 5))
	assert.False(t, WithinMeters(p, types.Point{Lat: 55.76, Lng: 37.6173}, 5))
}
