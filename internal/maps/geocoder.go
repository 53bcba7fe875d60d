package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"ride/internal/types"
)

var ErrNoResults = errors.New("no geocoding results")

// GeocodeService resolves free-text addresses with the Google Geocoding API.
type GeocodeService struct {
	client *maps.Client
	region string
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client, region: "ru"}, nil
}

// Geocode returns the first match and its formatted address.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, string, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: "ru",
		Region:   s.region,
	})
	if err != nil {
		return types.Point{}, "", fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, "", ErrNoResults
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, results[0].FormattedAddress, nil
}
