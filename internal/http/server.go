// README: API server; wires module services into the gin router.
package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"ride/internal/modules/geocode"
	"ride/internal/modules/pricing"
	"ride/internal/modules/routing"
	"ride/internal/modules/trip"
)

type ServerDeps struct {
	Geocode *geocode.Service
	Routing *routing.Service
	Pricing *pricing.Service
	Trip    *trip.Service
	Logger  *zap.Logger
}

func NewServer(addr string, deps ServerDeps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
