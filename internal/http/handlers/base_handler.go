// README: Base handler utilities (JSON helpers, query parsing, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ride/internal/modules/pricing"
	"ride/internal/modules/trip"
	"ride/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrInvalidInput), errors.Is(err, pricing.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func queryPoint(c *gin.Context, name string) (types.Point, bool) {
	v := c.Query(name)
	if v == "" {
		writeError(c, http.StatusBadRequest, "missing "+name)
		return types.Point{}, false
	}
	p, err := types.ParsePoint(v)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return types.Point{}, false
	}
	return p, true
}

func queryFloat(c *gin.Context, name string) (float64, bool) {
	v := c.Query(name)
	if v == "" {
		writeError(c, http.StatusBadRequest, "missing "+name)
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return f, true
}

func queryBool(c *gin.Context, name string, def bool) (bool, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return false, false
	}
	return b, true
}

// parseAddOns accepts a list of add-on names; empty entries are skipped.
func parseAddOns(names []string) ([]pricing.AddOn, error) {
	out := make([]pricing.AddOn, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		a, err := pricing.ParseAddOn(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
