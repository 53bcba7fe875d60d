// README: Route handler; geometry is returned as points and as an encoded polyline.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ride/internal/modules/routing"
	"ride/internal/types"
)

type RouteHandler struct {
	routing *routing.Service
}

func NewRouteHandler(svc *routing.Service) *RouteHandler {
	return &RouteHandler{routing: svc}
}

type routeView struct {
	types.Route
	Polyline string `json:"polyline"`
}

type routesResponse struct {
	Routes   []routeView `json:"routes"`
	Selected int         `json:"selected"`
	Fallback bool        `json:"fallback"`
}

func (h *RouteHandler) Get(c *gin.Context) {
	from, ok := queryPoint(c, "from")
	if !ok {
		return
	}
	to, ok := queryPoint(c, "to")
	if !ok {
		return
	}
	alternatives, ok := queryBool(c, "alternatives", false)
	if !ok {
		return
	}
	// overview=false returns distance and duration with straight-line geometry
	overview, ok := queryBool(c, "overview", true)
	if !ok {
		return
	}

	res := h.routing.Get(c.Request.Context(), routing.Request{From: from, To: to, Alternatives: alternatives, Overview: overview})
	resp := routesResponse{Selected: res.Selected, Fallback: res.Fallback}
	for _, r := range res.Routes {
		resp.Routes = append(resp.Routes, routeView{Route: r, Polyline: routing.EncodePolyline(r.Points)})
	}
	writeJSON(c, http.StatusOK, resp)
}
