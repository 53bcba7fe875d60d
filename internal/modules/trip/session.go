// README: Session controller. All mutation happens under one mutex; side effects run after unlock.
package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"ride/internal/geo"
	"ride/internal/modules/animation"
	"ride/internal/modules/pricing"
	"ride/internal/types"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("session not found")
)

const effectTimeout = 5 * time.Second

type PlaceOrderCommand struct {
	VehicleClass pricing.VehicleClass
	AddOns       []pricing.AddOn
}

type OptionsCommand struct {
	VehicleClass pricing.VehicleClass
	// AddOns replaces the selection when non-nil.
	AddOns []pricing.AddOn
}

type Session struct {
	id   types.ID
	deps *Deps

	mu          sync.Mutex
	status      Status
	fromAddress string
	toAddress   string
	from        *types.Point
	to          *types.Point
	routes      *types.RouteResult
	estimator   *pricing.Estimator
	quote       *pricing.Quote
	driver      *Driver
	approach    []types.Point
	anim        *animation.Animator
	phaseStart  time.Time
	recordID    types.ID
	updatedAt   time.Time

	// gen changes on every transition and teardown; timer callbacks and
	// async results carrying an older value are dropped.
	gen     uint64
	editSeq uint64
	timers  []clockwork.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	effects []func(ctx context.Context)
	evicted bool

	effectsMu sync.Mutex
}

func newSession(id types.ID, deps *Deps) *Session {
	return &Session{
		id:        id,
		deps:      deps,
		status:    StatusNone,
		estimator: deps.Pricing.NewEstimator(),
		updatedAt: deps.Clock.Now(),
	}
}

func (s *Session) ID() types.ID { return s.id }

// mutate runs fn under the session lock, then the side effects fn queued.
// effectsMu is taken before mu is released so batches run in lock order.
// An evicted session rejects commands; the service reloads it from its snapshot.
func (s *Session) mutate(fn func() error) error {
	return s.run(true, fn)
}

func (s *Session) run(command bool, fn func() error) error {
	s.mu.Lock()
	var err error
	if command && s.evicted {
		err = ErrNotFound
	} else {
		err = fn()
	}
	effects := s.effects
	s.effects = nil
	s.effectsMu.Lock()
	s.mu.Unlock()
	defer s.effectsMu.Unlock()

	if len(effects) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), effectTimeout)
		defer cancel()
		for _, e := range effects {
			e(ctx)
		}
	}
	return err
}

// SetAddresses resolves both addresses and fetches routes with alternatives.
// The session keeps the text as entered; only the points come from the geocoder.
func (s *Session) SetAddresses(ctx context.Context, fromText, toText string) (SessionView, error) {
	fromText, toText = strings.TrimSpace(fromText), strings.TrimSpace(toText)
	if fromText == "" || toText == "" {
		return SessionView{}, fmt.Errorf("from and to are required: %w", ErrInvalidInput)
	}
	from := s.deps.Geocoder.ResolveContext(ctx, fromText)
	to := s.deps.Geocoder.ResolveContext(ctx, toText)
	return s.setEndpoints(ctx, from.Point, to.Point, fromText, toText)
}

// SetPoints is SetAddresses for known coordinates; addresses are synthesized.
func (s *Session) SetPoints(ctx context.Context, from, to types.Point) (SessionView, error) {
	if err := from.Validate(); err != nil {
		return SessionView{}, fmt.Errorf("from: %w", ErrInvalidInput)
	}
	if err := to.Validate(); err != nil {
		return SessionView{}, fmt.Errorf("to: %w", ErrInvalidInput)
	}
	return s.setEndpoints(ctx, from, to, s.deps.Geocoder.Reverse(from), s.deps.Geocoder.Reverse(to))
}

func (s *Session) setEndpoints(ctx context.Context, from, to types.Point, fromAddr, toAddr string) (SessionView, error) {
	var seq uint64
	err := s.mutate(func() error {
		if s.status != StatusNone {
			return ErrInvalidState
		}
		s.editSeq++
		seq = s.editSeq
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	// network call outside the lock
	res := s.deps.Router.GetRoute(ctx, from, to, true)

	var view SessionView
	err = s.mutate(func() error {
		if s.editSeq != seq {
			return fmt.Errorf("superseded by a newer address change: %w", ErrInvalidState)
		}
		if s.status != StatusNone {
			return ErrInvalidState
		}
		f, t := from, to
		s.from, s.to = &f, &t
		s.fromAddress, s.toAddress = fromAddr, toAddr
		r := res.Clone()
		s.routes = &r
		s.feedRoute()
		s.touch()
		s.saveSnapshot()
		view = s.viewLocked()
		return nil
	})
	return view, err
}

func (s *Session) SelectRoute(i int) (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if s.routes == nil {
			return fmt.Errorf("no routes: %w", ErrInvalidInput)
		}
		r, err := s.routes.Select(i)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidInput)
		}
		s.routes = &r
		s.feedRoute()
		s.touch()
		s.saveSnapshot()
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// SetOptions updates vehicle class and add-ons. A fixed quote is not affected.
func (s *Session) SetOptions(cmd OptionsCommand) (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if err := s.applyOptions(cmd.VehicleClass, cmd.AddOns); err != nil {
			return err
		}
		s.touch()
		s.saveSnapshot()
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// ToggleAddOn flips one add-on. A fixed quote is not affected.
func (s *Session) ToggleAddOn(a pricing.AddOn) (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if err := s.estimator.ToggleAddOn(a); err != nil {
			return fmt.Errorf("add-on %q: %w", a, ErrInvalidInput)
		}
		s.touch()
		s.saveSnapshot()
		view = s.viewLocked()
		return nil
	})
	return view, err
}

func (s *Session) applyOptions(class pricing.VehicleClass, addOns []pricing.AddOn) error {
	if class != "" {
		if err := s.estimator.SetVehicleClass(class); err != nil {
			return fmt.Errorf("vehicle class %q: %w", class, ErrInvalidInput)
		}
	}
	if addOns != nil {
		if err := s.estimator.SetAddOns(addOns); err != nil {
			return fmt.Errorf("add-ons: %w", ErrInvalidInput)
		}
	}
	return nil
}

// PlaceOrder fixes the quote and starts the driver search.
func (s *Session) PlaceOrder(cmd PlaceOrderCommand) (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if s.status != StatusNone {
			return ErrInvalidState
		}
		if s.from == nil || s.to == nil || s.routes == nil || len(s.routes.Routes) == 0 {
			return fmt.Errorf("addresses and route are required: %w", ErrInvalidInput)
		}
		if err := s.applyOptions(cmd.VehicleClass, cmd.AddOns); err != nil {
			return err
		}
		q, ok := s.estimator.Fix()
		if !ok {
			return fmt.Errorf("no quote available: %w", ErrInvalidInput)
		}
		s.quote = &q
		s.ctx, s.cancel = context.WithCancel(context.Background())
		if err := s.transition(StatusSearching, "order_placed"); err != nil {
			return err
		}
		s.after(s.deps.Config.SearchDelay, s.onDriverFound)
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// ConfirmStart begins the ride along the selected route.
func (s *Session) ConfirmStart() (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if !CanTransition(s.status, StatusRiding) {
			return ErrInvalidState
		}
		route, _ := s.routes.Current()
		path := anchor(route.Points, *s.from, *s.to)
		s.driver.Position = *s.from
		if err := s.transition(StatusRiding, "ride_started"); err != nil {
			return err
		}
		s.startPhase(path, s.deps.Config.RidingDuration)
		s.after(s.deps.Config.Dwell+s.deps.Config.RidingDuration, s.completePhase)
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// Cancel aborts an in-flight order and keeps the entered addresses and route.
// On a completed ride it skips the rating. With no order it does nothing.
func (s *Session) Cancel() (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		switch {
		case s.status == StatusCompleted:
			s.resetLocked("rating_skipped")
		case s.status.InFlight():
			s.teardownTrip()
			s.estimator.Unfix()
			if err := s.transition(StatusNone, "cancelled"); err != nil {
				return err
			}
		}
		view = s.viewLocked()
		return nil
	})
	return view, err
}

func (s *Session) SubmitRating(stars int) (SessionView, error) {
	if stars < 1 || stars > 5 {
		return SessionView{}, fmt.Errorf("stars must be 1..5: %w", ErrInvalidInput)
	}
	var view SessionView
	err := s.mutate(func() error {
		if s.status != StatusCompleted {
			return ErrInvalidState
		}
		recordID := s.recordID
		s.effects = append(s.effects, func(ctx context.Context) {
			if err := s.deps.History.Rate(ctx, recordID, stars); err != nil {
				s.deps.Logger.Warn("rate trip failed", zap.String("record_id", string(recordID)), zap.Error(err))
			}
		})
		s.resetLocked("rated")
		view = s.viewLocked()
		return nil
	})
	return view, err
}

func (s *Session) SkipRating() (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		if s.status != StatusCompleted {
			return ErrInvalidState
		}
		s.resetLocked("rating_skipped")
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// Reset returns the session to an empty none state from anywhere.
func (s *Session) Reset() (SessionView, error) {
	var view SessionView
	err := s.mutate(func() error {
		s.resetLocked("reset")
		view = s.viewLocked()
		return nil
	})
	return view, err
}

// Snapshot advances the animation to now and returns a deep copy of the session.
func (s *Session) Snapshot() SessionView {
	var view SessionView
	_ = s.run(false, func() error {
		s.tick()
		view = s.viewLocked()
		return nil
	})
	return view
}

// Restore rehydrates a persisted view. Only completed rides keep their status;
// anything in flight comes back as none with the quote unfixed.
func (s *Session) Restore(v SessionView) {
	_ = s.mutate(func() error {
		s.gen++
		s.stopTimers()
		s.teardownTrip()
		s.estimator.Reset()
		s.status = StatusNone
		s.quote = nil
		s.recordID = ""

		s.fromAddress, s.toAddress = v.FromAddress, v.ToAddress
		s.from, s.to = clonePoint(v.From), clonePoint(v.To)
		s.routes = nil
		if v.Routes != nil && len(v.Routes.Routes) > 0 {
			r := v.Routes.Clone()
			s.routes = &r
		}
		if v.VehicleClass != "" {
			_ = s.estimator.SetVehicleClass(v.VehicleClass)
		}
		_ = s.estimator.SetAddOns(v.AddOns)
		s.feedRoute()

		if v.Status == StatusCompleted && v.Quote != nil && v.Driver != nil {
			s.status = StatusCompleted
			q := v.Quote.Clone()
			s.quote = &q
			d := *v.Driver
			s.driver = &d
			s.recordID = v.RecordID
		}
		s.updatedAt = v.UpdatedAt
		return nil
	})
}

// evictIfIdle marks a session evicted when it rests in none or completed and
// was last updated before cutoff.
func (s *Session) evictIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusNone && s.status != StatusCompleted {
		return false
	}
	if !s.updatedAt.Before(cutoff) {
		return false
	}
	s.evicted = true
	s.gen++
	s.stopTimers()
	return true
}

// shutdown stops timers without emitting events.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopTimers()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) onDriverFound() {
	// the ordered class, not whatever the options say now
	candidates := s.deps.Drivers.Candidates(s.quote.VehicleClass)
	picked := PickRandomDrivers(candidates, 1)
	if len(picked) == 0 {
		s.deps.Logger.Warn("no drivers available, still searching", zap.String("session_id", string(s.id)))
		s.after(s.deps.Config.SearchDelay, s.onDriverFound)
		return
	}
	d := picked[0]
	d.Position = nearbyPosition(*s.from, s.deps.Config.DriverSpreadDeg)
	s.driver = &d
	if err := s.transition(StatusFound, "driver_found"); err != nil {
		return
	}
	s.after(s.deps.Config.FoundDelay, s.onDriverComing)

	gen, ctx := s.gen, s.ctx
	start, pickup := d.Position, *s.from
	go s.fetchApproach(ctx, gen, start, pickup)
}

func (s *Session) fetchApproach(ctx context.Context, gen uint64, start, pickup types.Point) {
	res := s.deps.Router.GetRoute(ctx, start, pickup, false)
	_ = s.mutate(func() error {
		if s.gen != gen || s.status != StatusFound {
			return nil
		}
		if r, ok := res.Current(); ok {
			s.approach = anchor(r.Points, start, pickup)
		}
		return nil
	})
}

func (s *Session) onDriverComing() {
	if s.driver.ETAMinutes > 2 {
		s.driver.ETAMinutes -= 2
	} else {
		s.driver.ETAMinutes = 1
	}
	path := s.approach
	if len(path) == 0 {
		path = []types.Point{s.driver.Position, *s.from}
	}
	if err := s.transition(StatusComing, "driver_coming"); err != nil {
		return
	}
	s.startPhase(path, s.deps.Config.ComingDuration)
	s.after(s.deps.Config.Dwell+s.deps.Config.ComingDuration, s.completePhase)
}

// completePhase ends the current movement phase. The transition bumps gen, so
// whichever of the timer or a snapshot gets here first wins.
func (s *Session) completePhase() {
	switch s.status {
	case StatusComing:
		s.driver.Position = *s.from
		s.anim = nil
		_ = s.transition(StatusArrived, "driver_arrived")
	case StatusRiding:
		s.driver.Position = *s.to
		s.anim = nil
		if s.cancel != nil {
			s.cancel()
		}
		s.appendRecord()
		_ = s.transition(StatusCompleted, "ride_completed")
	}
}

func (s *Session) tick() {
	if s.anim == nil || (s.status != StatusComing && s.status != StatusRiding) {
		return
	}
	elapsed := s.deps.Clock.Since(s.phaseStart)
	pos := s.anim.Position(elapsed)
	s.driver.Position = pos

	target := *s.from
	if s.status == StatusRiding {
		target = *s.to
	}
	if s.anim.Done(elapsed) || geo.WithinMeters(pos, target, s.deps.Config.ArrivalEpsilonM) {
		s.completePhase()
	}
}

func (s *Session) startPhase(path []types.Point, duration time.Duration) {
	s.anim = animation.New(path, s.deps.Config.Dwell, duration)
	s.phaseStart = s.deps.Clock.Now()
}

// transition moves to a new status, stops every pending timer and queues the
// snapshot and event for after unlock.
func (s *Session) transition(to Status, reason string) error {
	from := s.status
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidState)
	}
	s.status = to
	s.gen++
	s.stopTimers()
	s.touch()

	ev := Event{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		From:       from,
		To:         to,
		Reason:     reason,
		OccurredAt: s.updatedAt,
	}
	if s.driver != nil && to.HasDriver() {
		d := *s.driver
		ev.Driver = &d
	}
	if s.quote != nil {
		ev.Total = s.quote.Total
	}
	s.effects = append(s.effects, func(ctx context.Context) {
		if err := s.deps.Publisher.Publish(ctx, ev); err != nil {
			s.deps.Logger.Warn("publish trip event failed", zap.String("session_id", string(s.id)), zap.Error(err))
		}
	})
	s.saveSnapshot()
	s.deps.Logger.Info("trip transition",
		zap.String("session_id", string(s.id)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason),
	)
	return nil
}

// after schedules fn under the session lock, dropped if gen moved on.
func (s *Session) after(d time.Duration, fn func()) {
	gen := s.gen
	t := s.deps.Clock.AfterFunc(d, func() {
		_ = s.mutate(func() error {
			if s.gen != gen {
				return nil
			}
			fn()
			return nil
		})
	})
	s.timers = append(s.timers, t)
}

func (s *Session) stopTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// teardownTrip drops everything tied to an order: driver, animation, fixed quote.
func (s *Session) teardownTrip() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.ctx = nil
	s.driver = nil
	s.approach = nil
	s.anim = nil
	s.quote = nil
	s.recordID = ""
}

func (s *Session) resetLocked(reason string) {
	s.teardownTrip()
	s.estimator.Reset()
	s.editSeq++
	s.fromAddress, s.toAddress = "", ""
	s.from, s.to = nil, nil
	s.routes = nil

	if s.status == StatusNone {
		s.gen++
		s.stopTimers()
		s.touch()
		s.saveSnapshot()
		return
	}
	if err := s.transition(StatusNone, reason); err != nil {
		// completed and every in-flight status may always return to none
		s.deps.Logger.Error("reset transition rejected", zap.Error(err))
	}
}

func (s *Session) feedRoute() {
	if s.routes == nil {
		s.estimator.ClearRoute()
		return
	}
	r, ok := s.routes.Current()
	if !ok {
		s.estimator.ClearRoute()
		return
	}
	s.estimator.SetRoute(r.DistanceKm(), r.DurationMinutes())
}

func (s *Session) appendRecord() {
	rec := Record{
		ID:           types.ID(uuid.NewString()),
		SessionID:    s.id,
		FromAddress:  s.fromAddress,
		ToAddress:    s.toAddress,
		From:         *s.from,
		To:           *s.to,
		VehicleClass: s.quote.VehicleClass,
		AddOns:       s.quote.AddOnList(),
		Total:        s.quote.TotalMoney(),
		DriverName:   s.driver.Name,
		DriverPlate:  s.driver.Plate,
		CompletedAt:  s.deps.Clock.Now(),
	}
	if r, ok := s.routes.Current(); ok {
		rec.DistanceMeters = r.DistanceMeters
		rec.DurationSeconds = r.DurationSeconds
	}
	s.recordID = rec.ID
	s.effects = append(s.effects, func(ctx context.Context) {
		if err := s.deps.History.Append(ctx, rec); err != nil {
			s.deps.Logger.Warn("append trip history failed", zap.String("session_id", string(s.id)), zap.Error(err))
		}
	})
}

// saveSnapshot queues a save of the view as it is now.
func (s *Session) saveSnapshot() {
	v := s.viewLocked()
	s.effects = append(s.effects, func(ctx context.Context) {
		if err := s.deps.Snapshots.Save(ctx, v); err != nil {
			s.deps.Logger.Warn("save session snapshot failed", zap.String("session_id", string(s.id)), zap.Error(err))
		}
	})
}

func (s *Session) touch() {
	s.updatedAt = s.deps.Clock.Now()
}

func (s *Session) viewLocked() SessionView {
	v := SessionView{
		ID:           s.id,
		Status:       s.status,
		FromAddress:  s.fromAddress,
		ToAddress:    s.toAddress,
		From:         clonePoint(s.from),
		To:           clonePoint(s.to),
		VehicleClass: s.estimator.VehicleClass(),
		AddOns:       s.estimator.AddOns(),
		RecordID:     s.recordID,
		UpdatedAt:    s.updatedAt,
	}
	if v.AddOns == nil {
		v.AddOns = []pricing.AddOn{}
	}
	if s.routes != nil {
		r := s.routes.Clone()
		v.Routes = &r
	}
	if s.quote != nil {
		q := s.quote.Clone()
		v.Quote, v.QuoteFixed = &q, true
	} else if q, ok := s.estimator.Current(); ok {
		v.Quote = &q
	}
	if s.driver != nil {
		d := *s.driver
		v.Driver = &d
	}
	switch {
	case s.anim != nil:
		v.Progress = s.anim.Progress(s.deps.Clock.Since(s.phaseStart))
		v.RemainingMeters = (1 - v.Progress) * s.anim.Length()
	case s.status == StatusArrived || s.status == StatusCompleted:
		v.Progress = 1
	}
	return v
}

// anchor makes a path start at start and end at end exactly.
func anchor(points []types.Point, start, end types.Point) []types.Point {
	out := make([]types.Point, 0, len(points)+2)
	if len(points) == 0 || !points[0].Equal(start) {
		out = append(out, start)
	}
	out = append(out, points...)
	if !out[len(out)-1].Equal(end) {
		out = append(out, end)
	}
	return out
}

func clonePoint(p *types.Point) *types.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
