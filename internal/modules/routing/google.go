package routing

import (
	"context"

	"ride/internal/maps"
	"ride/internal/types"
)

// DirectionsClient is satisfied by maps.RouteService.
type DirectionsClient interface {
	Directions(ctx context.Context, from, to types.Point, alternatives bool) ([]maps.DirectionsRoute, error)
}

type google struct {
	client DirectionsClient
}

func NewGoogle(client DirectionsClient) Upstream {
	return &google{client: client}
}

func (g *google) Name() string { return SourceGoogle }

func (g *google) Fetch(ctx context.Context, req Request) (Response, error) {
	routes, err := g.client.Directions(ctx, req.From, req.To, req.Alternatives)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindGoogle, Google: routes}, nil
}
