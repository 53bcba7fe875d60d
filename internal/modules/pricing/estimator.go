// README: Per-session quote estimator that freezes at order time.
package pricing

import "sync"

// Estimator recomputes its quote on every input change until Fix is called.
// After Fix, inputs are still recorded but the quote stays frozen until Reset.
type Estimator struct {
	mu    sync.Mutex
	table RateTable

	class       VehicleClass
	addOns      []AddOn
	distanceKm  float64
	durationMin int
	hasRoute    bool

	current Quote
	valid   bool
	fixed   bool
}

func NewEstimator(table RateTable) *Estimator {
	return &Estimator{table: table, class: ClassEconomy}
}

func (e *Estimator) SetVehicleClass(c VehicleClass) error {
	if _, ok := e.table.Rates[c]; !ok {
		return ErrBadRequest
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.class = c
	e.recompute()
	return nil
}

func (e *Estimator) SetAddOns(addOns []AddOn) error {
	for _, a := range addOns {
		if _, ok := e.table.AddOns[a]; !ok {
			return ErrBadRequest
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addOns = normalizeAddOns(addOns)
	e.recompute()
	return nil
}

// ToggleAddOn adds a or removes it when already selected.
func (e *Estimator) ToggleAddOn(a AddOn) error {
	if _, ok := e.table.AddOns[a]; !ok {
		return ErrBadRequest
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make([]AddOn, 0, len(e.addOns)+1)
	found := false
	for _, x := range e.addOns {
		if x == a {
			found = true
			continue
		}
		next = append(next, x)
	}
	if !found {
		next = append(next, a)
	}
	e.addOns = normalizeAddOns(next)
	e.recompute()
	return nil
}

func (e *Estimator) SetRoute(distanceKm float64, durationMin int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.distanceKm = distanceKm
	e.durationMin = durationMin
	e.hasRoute = true
	e.recompute()
}

// ClearRoute drops the route inputs; an unfixed quote becomes unavailable.
func (e *Estimator) ClearRoute() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hasRoute = false
	e.distanceKm, e.durationMin = 0, 0
	if !e.fixed {
		e.current, e.valid = Quote{}, false
	}
}

func (e *Estimator) Current() (Quote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return Quote{}, false
	}
	return e.current.Clone(), true
}

// Fix freezes the current quote. ok is false when no quote is available yet.
func (e *Estimator) Fix() (Quote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		return Quote{}, false
	}
	e.fixed = true
	return e.current.Clone(), true
}

// Unfix releases a frozen quote and recomputes from the latest inputs.
func (e *Estimator) Unfix() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixed = false
	if !e.hasRoute {
		e.current, e.valid = Quote{}, false
		return
	}
	e.recompute()
}

func (e *Estimator) VehicleClass() VehicleClass {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.class
}

func (e *Estimator) AddOns() []AddOn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]AddOn(nil), e.addOns...)
}

// Reset clears all inputs and the frozen flag.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.class = ClassEconomy
	e.addOns = nil
	e.distanceKm, e.durationMin, e.hasRoute = 0, 0, false
	e.current, e.valid, e.fixed = Quote{}, false, false
}

func (e *Estimator) recompute() {
	if e.fixed || !e.hasRoute {
		return
	}
	q, err := Compute(e.table, e.class, e.distanceKm, e.durationMin, e.addOns)
	if err != nil {
		e.valid = false
		return
	}
	e.current, e.valid = q, true
}
