// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ride/internal/http/handlers"
	"ride/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	geocodeHandler := handlers.NewGeocodeHandler(deps.Geocode)
	api.GET("/geocode/resolve", geocodeHandler.Resolve)
	api.GET("/geocode/reverse", geocodeHandler.Reverse)
	api.GET("/geocode/suggest", geocodeHandler.Suggest)

	routeHandler := handlers.NewRouteHandler(deps.Routing)
	api.GET("/routes", routeHandler.Get)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.GET("/pricing/quote", pricingHandler.Quote)

	sessionHandler := handlers.NewSessionHandler(deps.Trip)
	api.POST("/sessions", sessionHandler.Open)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.PUT("/sessions/:id/addresses", sessionHandler.SetAddresses)
	api.PUT("/sessions/:id/route", sessionHandler.SelectRoute)
	api.PUT("/sessions/:id/options", sessionHandler.SetOptions)
	api.POST("/sessions/:id/add-ons/:addon", sessionHandler.ToggleAddOn)
	api.POST("/sessions/:id/order", sessionHandler.PlaceOrder)
	api.POST("/sessions/:id/cancel", sessionHandler.Cancel)
	api.POST("/sessions/:id/start", sessionHandler.Start)
	api.POST("/sessions/:id/rating", sessionHandler.Rate)
	api.POST("/sessions/:id/reset", sessionHandler.Reset)
	api.GET("/history", sessionHandler.History)

	return r
}
