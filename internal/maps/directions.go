package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"ride/internal/types"
)

// DirectionsRoute is one Google Directions route in wire form: an encoded
// overview polyline plus totals summed over all legs.
type DirectionsRoute struct {
	Polyline       string
	DistanceMeters int
	Duration       time.Duration
}

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Directions returns driving routes between two points.
func (s *RouteService) Directions(ctx context.Context, from, to types.Point, alternatives bool) ([]DirectionsRoute, error) {
	r := &maps.DirectionsRequest{
		Origin:       latLng(from),
		Destination:  latLng(to),
		Mode:         maps.TravelModeDriving,
		Alternatives: alternatives,
		Language:     "ru",
		Region:       "ru",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	out := make([]DirectionsRoute, 0, len(routes))
	for _, rt := range routes {
		if len(rt.Legs) == 0 || rt.OverviewPolyline.Points == "" {
			continue
		}
		dr := DirectionsRoute{Polyline: rt.OverviewPolyline.Points}
		for _, leg := range rt.Legs {
			dr.DistanceMeters += leg.Distance.Meters
			dr.Duration += leg.Duration
		}
		out = append(out, dr)
	}
	return out, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
