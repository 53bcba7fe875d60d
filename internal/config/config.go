// README: Config loader with env defaults for HTTP, storage, routing, pricing and trip timing.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RoutingConfig struct {
	Providers      []string
	GraphHopperURL string
	GraphHopperKey string
	OSRMURL        string
	GoogleKey      string
	UserAgent      string
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheMaxItems  int
	RoadFactor     float64
	FallbackKmh    float64
}

type TripConfig struct {
	SearchDelay     time.Duration
	FoundDelay      time.Duration
	Dwell           time.Duration
	ComingDuration  time.Duration
	RidingDuration  time.Duration
	ArrivalEpsilonM float64
	DriverSpreadDeg float64
	SnapshotTTL     time.Duration
	IdleTTL         time.Duration
	EvictInterval   time.Duration
}

type Config struct {
	Env  string
	HTTP struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Routing RoutingConfig
	Trip    TripConfig
	Pricing struct {
		Currency string
	}
}

// Load reads .env files (if present) and then the process environment.
// Empty DB/Redis/Kafka settings select in-memory or no-op implementations.
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	var cfg Config
	cfg.Env = envOrDefault("RIDE_ENV", "development")
	cfg.HTTP.Addr = envOrDefault("RIDE_HTTP_ADDR", ":8080")
	cfg.DB.DSN = envOrDefault("RIDE_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("RIDE_REDIS_ADDR", "")
	cfg.Kafka.Brokers = envOrDefaultList("RIDE_KAFKA_BROKERS", nil)
	cfg.Kafka.Topic = envOrDefault("RIDE_KAFKA_TOPIC", "ride.trip.events")

	cfg.Routing = DefaultRouting()
	cfg.Routing.Providers = envOrDefaultList("RIDE_ROUTE_PROVIDERS", cfg.Routing.Providers)
	cfg.Routing.GraphHopperURL = envOrDefault("RIDE_GRAPHHOPPER_URL", cfg.Routing.GraphHopperURL)
	cfg.Routing.GraphHopperKey = envOrDefault("RIDE_GRAPHHOPPER_KEY", cfg.Routing.GraphHopperKey)
	cfg.Routing.OSRMURL = envOrDefault("RIDE_OSRM_URL", cfg.Routing.OSRMURL)
	cfg.Routing.GoogleKey = envOrDefault("RIDE_GOOGLE_MAPS_KEY", "")
	cfg.Routing.Timeout = envOrDefaultDuration("RIDE_ROUTE_TIMEOUT", cfg.Routing.Timeout)
	cfg.Routing.CacheTTL = envOrDefaultDuration("RIDE_ROUTE_CACHE_TTL", cfg.Routing.CacheTTL)
	cfg.Routing.CacheMaxItems = envOrDefaultInt("RIDE_ROUTE_CACHE_MAX", cfg.Routing.CacheMaxItems)
	cfg.Routing.RoadFactor = envOrDefaultFloat("RIDE_ROUTE_ROAD_FACTOR", cfg.Routing.RoadFactor)
	cfg.Routing.FallbackKmh = envOrDefaultFloat("RIDE_ROUTE_FALLBACK_KMH", cfg.Routing.FallbackKmh)

	cfg.Trip = DefaultTrip()
	cfg.Trip.SearchDelay = envOrDefaultDuration("RIDE_TRIP_SEARCH_DELAY", cfg.Trip.SearchDelay)
	cfg.Trip.FoundDelay = envOrDefaultDuration("RIDE_TRIP_FOUND_DELAY", cfg.Trip.FoundDelay)
	cfg.Trip.Dwell = envOrDefaultDuration("RIDE_TRIP_DWELL", cfg.Trip.Dwell)
	cfg.Trip.ComingDuration = envOrDefaultDuration("RIDE_TRIP_COMING", cfg.Trip.ComingDuration)
	cfg.Trip.RidingDuration = envOrDefaultDuration("RIDE_TRIP_RIDING", cfg.Trip.RidingDuration)
	cfg.Trip.ArrivalEpsilonM = envOrDefaultFloat("RIDE_TRIP_EPSILON_M", cfg.Trip.ArrivalEpsilonM)
	cfg.Trip.DriverSpreadDeg = envOrDefaultFloat("RIDE_TRIP_DRIVER_SPREAD", cfg.Trip.DriverSpreadDeg)
	cfg.Trip.IdleTTL = envOrDefaultDuration("RIDE_SESSION_IDLE_TTL", cfg.Trip.IdleTTL)

	cfg.Pricing.Currency = envOrDefault("RIDE_CURRENCY", "RUB")
	return cfg, nil
}

func DefaultRouting() RoutingConfig {
	return RoutingConfig{
		Providers:      []string{"graphhopper", "osrm", "google"},
		GraphHopperURL: "https://graphhopper.com/api/1",
		GraphHopperKey: "demo",
		OSRMURL:        "https://router.project-osrm.org",
		UserAgent:      "ride/1.0",
		Timeout:        10 * time.Second,
		CacheTTL:       5 * time.Minute,
		CacheMaxItems:  100,
		RoadFactor:     1.5,
		FallbackKmh:    50,
	}
}

func DefaultTrip() TripConfig {
	return TripConfig{
		SearchDelay:     3 * time.Second,
		FoundDelay:      5 * time.Second,
		Dwell:           1500 * time.Millisecond,
		ComingDuration:  10 * time.Second,
		RidingDuration:  10 * time.Second,
		ArrivalEpsilonM: 1,
		DriverSpreadDeg: 0.005,
		SnapshotTTL:     24 * time.Hour,
		IdleTTL:         30 * time.Minute,
		EvictInterval:   time.Minute,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
