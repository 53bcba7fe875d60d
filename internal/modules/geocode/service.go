// README: Geocode service combining an optional upstream geocoder with the offline resolver.
package geocode

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ride/internal/types"
)

// Geocoder is an upstream forward geocoder. Implementations may fail freely.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, string, error)
}

type Service struct {
	upstream Geocoder
	history  *History
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService accepts a nil upstream; resolution is then purely offline.
func NewService(upstream Geocoder, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{upstream: upstream, history: NewHistory(), timeout: timeout, logger: logger}
}

// ResolveContext never returns an error; upstream failures fall back to Lookup.
func (s *Service) ResolveContext(ctx context.Context, text string) Result {
	if _, ok := parseCoordinates(text); ok || s.upstream == nil {
		return s.remember(Lookup(text))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, addr, err := s.upstream.Geocode(ctx, text)
	if err == nil && p.Validate() == nil {
		if addr == "" {
			addr = text
		}
		return s.remember(Result{Point: p, Address: addr, Kind: KindProvider})
	}
	if err != nil {
		s.logger.Warn("geocoder failed, using offline resolver", zap.String("query", text), zap.Error(err))
	}
	return s.remember(Lookup(text))
}

func (s *Service) Reverse(p types.Point) string {
	return ResolveAddress(p)
}

func (s *Service) Suggest(query string) []string {
	return Suggest(query, s.history.List())
}

func (s *Service) History() []string {
	return s.history.List()
}

func (s *Service) remember(r Result) Result {
	if r.Kind != KindDefault && r.Kind != KindCoordinate {
		s.history.Remember(r.Address)
	}
	return r
}
