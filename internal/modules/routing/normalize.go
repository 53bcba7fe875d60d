// README: Per-provider normalization of upstream payloads into route geometry.
package routing

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"ride/internal/types"
)

// normalize turns a provider payload into routes. Without overview the
// providers send no geometry, so each route is drawn as a straight segment.
func normalize(resp Response, req Request) ([]types.Route, error) {
	var routes []types.Route
	switch resp.Kind {
	case KindGraphHopper:
		if resp.GraphHopper == nil {
			return nil, ErrNoRoutes
		}
		for _, p := range resp.GraphHopper.Paths {
			pts, ok := geometry(lngLatPoints(p.Points.Coordinates), req)
			if !ok {
				continue
			}
			routes = append(routes, types.Route{
				Points:          pts,
				DistanceMeters:  p.Distance,
				DurationSeconds: p.Time / 1000,
				Source:          SourceGraphHopper,
			})
		}
	case KindOSRM:
		if resp.OSRM == nil || resp.OSRM.Code != "Ok" {
			return nil, ErrNoRoutes
		}
		for _, r := range resp.OSRM.Routes {
			pts, ok := geometry(lngLatPoints(r.Geometry.Coordinates), req)
			if !ok {
				continue
			}
			routes = append(routes, types.Route{
				Points:          pts,
				DistanceMeters:  r.Distance,
				DurationSeconds: r.Duration,
				Source:          SourceOSRM,
			})
		}
	case KindGoogle:
		for _, r := range resp.Google {
			pts, err := DecodePolyline(r.Polyline)
			if err != nil {
				pts = nil
			}
			pts, ok := geometry(pts, req)
			if !ok {
				continue
			}
			routes = append(routes, types.Route{
				Points:          pts,
				DistanceMeters:  float64(r.DistanceMeters),
				DurationSeconds: r.Duration.Seconds(),
				Source:          SourceGoogle,
			})
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, resp.Kind)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	return routes, nil
}

func geometry(pts []types.Point, req Request) ([]types.Point, bool) {
	if len(pts) >= 2 {
		return pts, true
	}
	if !req.Overview {
		return []types.Point{req.From, req.To}, true
	}
	return nil, false
}

// lngLatPoints converts GeoJSON [lng, lat] pairs, dropping malformed entries.
func lngLatPoints(coords [][]float64) []types.Point {
	out := make([]types.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		p := types.Point{Lat: c[1], Lng: c[0]}
		if p.Validate() != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

func DecodePolyline(s string) ([]types.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	out := make([]types.Point, 0, len(coords))
	for _, c := range coords {
		out = append(out, types.Point{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}

func EncodePolyline(points []types.Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
