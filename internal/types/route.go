// README: Route geometry shared by routing, animation and trip modules.
package types

import (
	"errors"
	"math"
)

var ErrRouteIndex = errors.New("route index out of range")

type Route struct {
	Points          []Point `json:"points"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Source          string  `json:"source"`
}

func (r Route) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// DurationMinutes is rounded up so displayed durations never undershoot.
func (r Route) DurationMinutes() int {
	return int(math.Ceil(r.DurationSeconds / 60))
}

func (r Route) Clone() Route {
	out := r
	out.Points = append([]Point(nil), r.Points...)
	return out
}

// RouteResult is one origin/destination lookup; exactly one route is selected.
type RouteResult struct {
	Routes   []Route `json:"routes"`
	Selected int     `json:"selected"`
	Fallback bool    `json:"fallback"`
}

func (r RouteResult) Current() (Route, bool) {
	if r.Selected < 0 || r.Selected >= len(r.Routes) {
		return Route{}, false
	}
	return r.Routes[r.Selected], true
}

func (r RouteResult) Select(i int) (RouteResult, error) {
	if i < 0 || i >= len(r.Routes) {
		return r, ErrRouteIndex
	}
	out := r.Clone()
	out.Selected = i
	return out, nil
}

func (r RouteResult) Clone() RouteResult {
	out := r
	out.Routes = make([]Route, len(r.Routes))
	for i, rt := range r.Routes {
		out.Routes[i] = rt.Clone()
	}
	return out
}
