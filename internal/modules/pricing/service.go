// README: Pricing service computes fare quotes from the active rate table.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

var ErrBadRequest = errors.New("bad pricing request")

// MaxDistanceKm is one equator length; longer rides are rejected.
const MaxDistanceKm = 40075.0

// RateStore loads rate overrides; ok is false when nothing is stored.
type RateStore interface {
	LoadRates(ctx context.Context) (RateTable, bool, error)
}

type Service struct {
	store  RateStore
	logger *zap.Logger

	mu    sync.RWMutex
	rates RateTable
}

// NewService accepts a nil store; the built-in rates are then used.
func NewService(store RateStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, rates: DefaultRates()}
}

// Reload replaces the active table with stored overrides merged over the defaults.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	stored, ok, err := s.store.LoadRates(ctx)
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	table := DefaultRates()
	if ok {
		for k, v := range stored.Rates {
			table.Rates[k] = v
		}
		for k, v := range stored.AddOns {
			table.AddOns[k] = v
		}
		if stored.Currency != "" {
			table.Currency = stored.Currency
		}
	}
	s.mu.Lock()
	s.rates = table
	s.mu.Unlock()
	s.logger.Info("pricing rates loaded", zap.Bool("overrides", ok), zap.String("currency", table.Currency))
	return nil
}

func (s *Service) Rates() RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates.clone()
}

func (s *Service) Quote(class VehicleClass, distanceKm float64, durationMin int, addOns []AddOn) (Quote, error) {
	return Compute(s.Rates(), class, distanceKm, durationMin, addOns)
}

func (s *Service) NewEstimator() *Estimator {
	return NewEstimator(s.Rates())
}

// Compute prices a ride: round(base + km*perKm + sum(add-on fees)).
// The distance surcharge is derived by subtraction so the breakdown sums to Total.
func Compute(table RateTable, class VehicleClass, distanceKm float64, durationMin int, addOns []AddOn) (Quote, error) {
	rate, ok := table.Rates[class]
	if !ok {
		return Quote{}, fmt.Errorf("%w: unknown vehicle class %q", ErrBadRequest, class)
	}
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 || distanceKm > MaxDistanceKm {
		return Quote{}, fmt.Errorf("%w: distance %v", ErrBadRequest, distanceKm)
	}
	if durationMin < 0 {
		return Quote{}, fmt.Errorf("%w: duration %d", ErrBadRequest, durationMin)
	}

	fees := make(map[AddOn]int64)
	var feeSum int64
	for _, a := range normalizeAddOns(addOns) {
		fee, ok := table.AddOns[a]
		if !ok {
			return Quote{}, fmt.Errorf("%w: unknown add-on %q", ErrBadRequest, a)
		}
		fees[a] = fee
		feeSum += fee
	}

	raw := float64(rate.BaseFare) + distanceKm*float64(rate.PerKm) + float64(feeSum)
	if raw >= math.MaxInt64 {
		return Quote{}, fmt.Errorf("%w: fare overflows for distance %v", ErrBadRequest, distanceKm)
	}
	total := int64(math.Round(raw))

	return Quote{
		VehicleClass:      class,
		Base:              rate.BaseFare,
		DistanceSurcharge: total - rate.BaseFare - feeSum,
		AddOns:            fees,
		Total:             total,
		Currency:          table.Currency,
		DistanceKm:        distanceKm,
		DurationMin:       durationMin,
	}, nil
}
