// README: Pricing handler for stateless quotes.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ride/internal/modules/pricing"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

func (h *PricingHandler) Quote(c *gin.Context) {
	class, err := pricing.ParseVehicleClass(c.Query("class"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid class")
		return
	}
	km, ok := queryFloat(c, "distance_km")
	if !ok {
		return
	}
	minutes := 0
	if v := c.Query("duration_min"); v != "" {
		if minutes, err = strconv.Atoi(v); err != nil {
			writeError(c, http.StatusBadRequest, "invalid duration_min")
			return
		}
	}
	addOns, err := parseAddOns(strings.Split(c.Query("add_ons"), ","))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid add_ons")
		return
	}

	q, err := h.pricing.Quote(class, km, minutes, addOns)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
