// README: Trip service owns live sessions and the stores they report to.
package trip

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"ride/internal/config"
	"ride/internal/modules/geocode"
	"ride/internal/modules/pricing"
	"ride/internal/types"
)

// Geocoder is the part of geocode.Service a session needs.
type Geocoder interface {
	ResolveContext(ctx context.Context, text string) geocode.Result
	Reverse(p types.Point) string
}

// Router is the part of routing.Service a session needs.
type Router interface {
	GetRoute(ctx context.Context, from, to types.Point, alternatives bool) types.RouteResult
}

// Deps wires a Service. Nil stores, publisher, clock and logger get in-memory,
// no-op, real-time and no-op defaults.
type Deps struct {
	Geocoder  Geocoder
	Router    Router
	Pricing   *pricing.Service
	History   HistoryStore
	Snapshots SnapshotStore
	Publisher Publisher
	Drivers   DriverPool
	Clock     clockwork.Clock
	Config    config.TripConfig
	Logger    *zap.Logger
}

type Service struct {
	deps *Deps

	mu       sync.RWMutex
	sessions map[types.ID]*Session
}

func NewService(deps Deps) *Service {
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewService(nil, deps.Logger)
	}
	if deps.History == nil {
		deps.History = NewMemoryStore()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = NewMemorySnapshotStore()
	}
	if deps.Publisher == nil {
		deps.Publisher = NopPublisher{}
	}
	if deps.Drivers == nil {
		deps.Drivers = DefaultDriverPool()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.IdleTTL <= 0 {
		deps.Config.IdleTTL = config.DefaultTrip().IdleTTL
	}
	if deps.Config.EvictInterval <= 0 {
		deps.Config.EvictInterval = config.DefaultTrip().EvictInterval
	}
	return &Service{deps: &deps, sessions: make(map[types.ID]*Session)}
}

// Open creates an empty session.
func (s *Service) Open(ctx context.Context) *Session {
	sess := newSession(types.ID(uuid.NewString()), s.deps)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	if err := s.deps.Snapshots.Save(ctx, sess.Snapshot()); err != nil {
		s.deps.Logger.Warn("save session snapshot failed", zap.String("session_id", string(sess.id)), zap.Error(err))
	}
	return sess
}

// Get returns a live session.
func (s *Service) Get(id types.ID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Load returns a live session or rehydrates one from the snapshot store.
func (s *Service) Load(ctx context.Context, id types.ID) (*Session, error) {
	if sess, err := s.Get(id); err == nil {
		return sess, nil
	}
	v, err := s.deps.Snapshots.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := newSession(id, s.deps)
	sess.Restore(v)
	s.sessions[id] = sess
	s.deps.Logger.Info("session restored", zap.String("session_id", string(id)), zap.String("status", string(sess.Snapshot().Status)))
	return sess, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.deps.History.List(ctx, limit)
}

// RunEvictionTicker drops idle sessions every EvictInterval until ctx ends.
func (s *Service) RunEvictionTicker(ctx context.Context) {
	ticker := s.deps.Clock.NewTicker(s.deps.Config.EvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.EvictIdle(); n > 0 {
				s.deps.Logger.Info("idle sessions evicted", zap.Int("count", n), zap.Int("live", s.Len()))
			}
		}
	}
}

// EvictIdle removes none and completed sessions not updated within IdleTTL.
// Their snapshots stay in the store, so Load brings them back.
func (s *Service) EvictIdle() int {
	cutoff := s.deps.Clock.Now().Add(-s.deps.Config.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if !sess.evictIfIdle(cutoff) {
			continue
		}
		delete(s.sessions, id)
		n++
	}
	return n
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops every pending timer. Sessions stay readable.
func (s *Service) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.shutdown()
	}
}
