package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type graphHopper struct {
	httpUpstream
	key string
}

func NewGraphHopper(baseURL, key, userAgent string, httpClient *http.Client) Upstream {
	return &graphHopper{
		httpUpstream: httpUpstream{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, http: httpClient},
		key:          key,
	}
}

func (g *graphHopper) Name() string { return SourceGraphHopper }

func (g *graphHopper) Fetch(ctx context.Context, req Request) (Response, error) {
	q := url.Values{}
	q.Add("point", fmt.Sprintf("%f,%f", req.From.Lat, req.From.Lng))
	q.Add("point", fmt.Sprintf("%f,%f", req.To.Lat, req.To.Lng))
	q.Set("vehicle", "car")
	q.Set("locale", "ru")
	q.Set("key", g.key)
	q.Set("instructions", "false")
	q.Set("calc_points", fmt.Sprint(req.Overview))
	q.Set("points_encoded", "false")
	if req.Alternatives {
		q.Set("algorithm", "alternative_route")
		q.Set("alternative_route.max_paths", fmt.Sprint(maxAlternatives))
	}

	var body graphHopperBody
	if err := g.getJSON(ctx, g.baseURL+"/route?"+q.Encode(), &body); err != nil {
		return Response{}, err
	}
	return Response{Kind: KindGraphHopper, GraphHopper: &body}, nil
}
