// README: Routing request/response shapes and the upstream provider port.
package routing

import (
	"context"
	"errors"
	"strconv"

	"ride/internal/maps"
	"ride/internal/types"
)

var (
	ErrRateLimited    = errors.New("upstream rate limited")
	ErrUpstreamStatus = errors.New("upstream returned error status")
	ErrNoRoutes       = errors.New("upstream returned no usable routes")
	ErrUnknownKind    = errors.New("unknown response kind")
)

const maxAlternatives = 3

const (
	SourceGraphHopper = "graphhopper"
	SourceOSRM        = "osrm"
	SourceGoogle      = "google"
	SourceFallback    = "fallback"
	SourceDegenerate  = "degenerate"
)

type Request struct {
	From         types.Point
	To           types.Point
	Alternatives bool
	Overview     bool
}

func (r Request) Key() string {
	return r.From.Key() + "|" + r.To.Key() + "|" + strconv.FormatBool(r.Alternatives) + "|" + strconv.FormatBool(r.Overview)
}

type Kind string

const (
	KindGraphHopper Kind = SourceGraphHopper
	KindOSRM        Kind = SourceOSRM
	KindGoogle      Kind = SourceGoogle
)

// Response carries exactly one provider-specific payload selected by Kind.
type Response struct {
	Kind        Kind
	GraphHopper *graphHopperBody
	OSRM        *osrmBody
	Google      []maps.DirectionsRoute
}

// Upstream is one routing provider.
type Upstream interface {
	Name() string
	Fetch(ctx context.Context, req Request) (Response, error)
}

type graphHopperBody struct {
	Message string            `json:"message"`
	Paths   []graphHopperPath `json:"paths"`
}

type graphHopperPath struct {
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Points   struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"points"`
}

type osrmBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}
