// README: Geocode handlers for resolve, reverse and suggest.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ride/internal/modules/geocode"
	"ride/internal/types"
)

type GeocodeHandler struct {
	geocode *geocode.Service
}

func NewGeocodeHandler(svc *geocode.Service) *GeocodeHandler {
	return &GeocodeHandler{geocode: svc}
}

func (h *GeocodeHandler) Resolve(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		writeError(c, http.StatusBadRequest, "missing q")
		return
	}
	writeJSON(c, http.StatusOK, h.geocode.ResolveContext(c.Request.Context(), q))
}

func (h *GeocodeHandler) Reverse(c *gin.Context) {
	lat, ok := queryFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := queryFloat(c, "lng")
	if !ok {
		return
	}
	p := types.Point{Lat: lat, Lng: lng}
	writeJSON(c, http.StatusOK, gin.H{"point": p, "address": h.geocode.Reverse(p)})
}

func (h *GeocodeHandler) Suggest(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"suggestions": h.geocode.Suggest(c.Query("q"))})
}
