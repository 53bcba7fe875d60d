// README: Route provider: ordered upstreams with timeout, caching, coalescing and synthetic fallback.
package routing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ride/internal/config"
	"ride/internal/types"
)

type Service struct {
	upstreams []Upstream
	cache     *memoryCache
	shared    SharedCache
	group     singleflight.Group
	cfg       config.RoutingConfig
	clock     clockwork.Clock
	logger    *zap.Logger
}

// NewService accepts a nil shared cache, clock and logger.
func NewService(upstreams []Upstream, shared SharedCache, cfg config.RoutingConfig, clock clockwork.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstreams: upstreams,
		cache:     newMemoryCache(cfg.CacheTTL, cfg.CacheMaxItems, clock),
		shared:    shared,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

// NewUpstreams builds the provider chain in configured order. Google is skipped when directions is nil.
func NewUpstreams(cfg config.RoutingConfig, directions DirectionsClient, httpClient *http.Client) []Upstream {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var out []Upstream
	for _, name := range cfg.Providers {
		switch name {
		case SourceGraphHopper:
			out = append(out, NewGraphHopper(cfg.GraphHopperURL, cfg.GraphHopperKey, cfg.UserAgent, httpClient))
		case SourceOSRM:
			out = append(out, NewOSRM(cfg.OSRMURL, cfg.UserAgent, httpClient))
		case SourceGoogle:
			if directions != nil {
				out = append(out, NewGoogle(directions))
			}
		}
	}
	return out
}

// GetRoute fetches routes with full geometry.
func (s *Service) GetRoute(ctx context.Context, from, to types.Point, alternatives bool) types.RouteResult {
	return s.Get(ctx, Request{From: from, To: to, Alternatives: alternatives, Overview: true})
}

// Get never fails: upstream problems degrade to a synthetic route.
// A caller whose ctx ends while waiting on a shared fetch gets the synthetic route.
func (s *Service) Get(ctx context.Context, req Request) types.RouteResult {
	if req.From.Equal(req.To) {
		return degenerateRoute(req.From)
	}
	key := req.Key()
	if res, ok := s.cache.Get(key); ok {
		return res
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), req, key), nil
	})
	select {
	case <-ctx.Done():
		return s.fallback(req)
	case r := <-ch:
		return r.Val.(types.RouteResult).Clone()
	}
}

func (s *Service) fetch(ctx context.Context, req Request, key string) types.RouteResult {
	if res, ok := s.cache.Get(key); ok {
		return res
	}
	if res, ok := s.sharedGet(ctx, key); ok {
		s.cache.Set(key, res)
		return res
	}

	for _, up := range s.upstreams {
		start := s.clock.Now()
		routes, err := s.try(ctx, up, req)
		latency := s.clock.Since(start)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				s.logger.Warn("route provider rate limited", zap.String("provider", up.Name()))
			} else {
				s.logger.Warn("route provider failed",
					zap.String("provider", up.Name()),
					zap.Duration("latency", latency),
					zap.Error(err),
				)
			}
			continue
		}
		s.logger.Debug("route provider ok",
			zap.String("provider", up.Name()),
			zap.Int("routes", len(routes)),
			zap.Duration("latency", latency),
		)
		res := types.RouteResult{Routes: routes}
		s.cache.Set(key, res)
		s.sharedSet(ctx, key, res)
		return res
	}

	s.logger.Info("all route providers failed, using fallback route",
		zap.String("from", req.From.Key()),
		zap.String("to", req.To.Key()),
	)
	return s.fallback(req)
}

func (s *Service) try(ctx context.Context, up Upstream, req Request) ([]types.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := up.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	routes, err := normalize(resp, req)
	if err != nil {
		return nil, err
	}
	if !req.Alternatives {
		routes = routes[:1]
	} else if len(routes) > maxAlternatives {
		routes = routes[:maxAlternatives]
	}
	return routes, nil
}

func (s *Service) fallback(req Request) types.RouteResult {
	return types.RouteResult{
		Routes:   []types.Route{FallbackRoute(req.From, req.To, s.cfg.RoadFactor, s.cfg.FallbackKmh)},
		Fallback: true,
	}
}

func (s *Service) sharedGet(ctx context.Context, key string) (types.RouteResult, bool) {
	if s.shared == nil {
		return types.RouteResult{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	res, ok, err := s.shared.Get(ctx, key)
	if err != nil {
		s.logger.Warn("shared route cache read failed", zap.Error(err))
		return types.RouteResult{}, false
	}
	return res, ok
}

func (s *Service) sharedSet(ctx context.Context, key string, res types.RouteResult) {
	if s.shared == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.shared.Set(ctx, key, res, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("shared route cache write failed", zap.Error(err))
	}
}
