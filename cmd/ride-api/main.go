// README: Entry point; loads config, wires services, starts the HTTP server and shuts down on signal.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"ride/internal/config"
	httptransport "ride/internal/http"
	"ride/internal/infra"
	"ride/internal/maps"
	"ride/internal/modules/geocode"
	"ride/internal/modules/pricing"
	"ride/internal/modules/routing"
	"ride/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	kafkaWriter := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if kafkaWriter != nil {
		defer kafkaWriter.Close()
	}

	clock := clockwork.NewRealClock()
	httpClient := &http.Client{Timeout: cfg.Routing.Timeout}

	var geocoder geocode.Geocoder
	var directions routing.DirectionsClient
	if cfg.Routing.GoogleKey != "" {
		gs, err := maps.NewGeocodeService(cfg.Routing.GoogleKey)
		if err != nil {
			logger.Fatal("google geocoder init", zap.Error(err))
		}
		rs, err := maps.NewRouteService(cfg.Routing.GoogleKey)
		if err != nil {
			logger.Fatal("google directions init", zap.Error(err))
		}
		geocoder, directions = gs, rs
	}
	geocodeSvc := geocode.NewService(geocoder, cfg.Routing.Timeout, logger.Named("geocode"))

	var routeCache routing.SharedCache
	if redisClient != nil {
		routeCache = routing.NewRedisCache(redisClient)
	}
	routingSvc := routing.NewService(
		routing.NewUpstreams(cfg.Routing, directions, httpClient),
		routeCache, cfg.Routing, clock, logger.Named("routing"),
	)

	var rateStore pricing.RateStore
	if dbPool != nil {
		rateStore = pricing.NewStore(dbPool)
	}
	pricingSvc := pricing.NewService(rateStore, logger.Named("pricing"))
	if err := pricingSvc.Reload(ctx); err != nil {
		logger.Warn("pricing overrides unavailable, using defaults", zap.Error(err))
	}

	deps := trip.Deps{
		Geocoder: geocodeSvc,
		Router:   routingSvc,
		Pricing:  pricingSvc,
		Drivers:  trip.DefaultDriverPool(),
		Clock:    clock,
		Config:   cfg.Trip,
		Logger:   logger.Named("trip"),
	}
	if dbPool != nil {
		deps.History = trip.NewStore(dbPool)
	}
	if redisClient != nil {
		deps.Snapshots = trip.NewRedisSnapshotStore(redisClient, cfg.Trip.SnapshotTTL)
	}
	if kafkaWriter != nil {
		deps.Publisher = trip.NewKafkaPublisher(kafkaWriter)
	}
	tripSvc := trip.NewService(deps)
	defer tripSvc.Close()
	go tripSvc.RunEvictionTicker(ctx)

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.ServerDeps{
		Geocode: geocodeSvc,
		Routing: routingSvc,
		Pricing: pricingSvc,
		Trip:    tripSvc,
		Logger:  logger.Named("http"),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("ride api listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Bool("postgres", dbPool != nil),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("kafka", kafkaWriter != nil),
		zap.Strings("route_providers", cfg.Routing.Providers),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}
