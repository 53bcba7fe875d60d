package routing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type osrm struct {
	httpUpstream
}

func NewOSRM(baseURL, userAgent string, httpClient *http.Client) Upstream {
	return &osrm{httpUpstream{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, http: httpClient}}
}

func (o *osrm) Name() string { return SourceOSRM }

func (o *osrm) Fetch(ctx context.Context, req Request) (Response, error) {
	overview := "false"
	if req.Overview {
		overview = "full"
	}
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=%s&geometries=geojson&alternatives=%t",
		o.baseURL, req.From.Lng, req.From.Lat, req.To.Lng, req.To.Lat, overview, req.Alternatives)

	var body osrmBody
	if err := o.getJSON(ctx, u, &body); err != nil {
		return Response{}, err
	}
	return Response{Kind: KindOSRM, OSRM: &body}, nil
}
