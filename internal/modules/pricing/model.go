// README: Vehicle classes, add-ons, rate tables and the quote breakdown.
package pricing

import (
	"fmt"
	"sort"

	"ride/internal/types"
)

type VehicleClass string

const (
	ClassEconomy  VehicleClass = "economy"
	ClassComfort  VehicleClass = "comfort"
	ClassBusiness VehicleClass = "business"
)

var Classes = []VehicleClass{ClassEconomy, ClassComfort, ClassBusiness}

func ParseVehicleClass(s string) (VehicleClass, error) {
	for _, c := range Classes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown vehicle class %q", ErrBadRequest, s)
}

type AddOn string

const (
	AddOnChildSeat AddOn = "child_seat"
	AddOnLuggage   AddOn = "luggage"
)

func ParseAddOn(s string) (AddOn, error) {
	switch AddOn(s) {
	case AddOnChildSeat, AddOnLuggage:
		return AddOn(s), nil
	}
	return "", fmt.Errorf("%w: unknown add-on %q", ErrBadRequest, s)
}

type Rate struct {
	Class    VehicleClass `json:"class"`
	BaseFare int64        `json:"base_fare"`
	PerKm    int64        `json:"per_km"`
}

type RateTable struct {
	Rates    map[VehicleClass]Rate `json:"rates"`
	AddOns   map[AddOn]int64       `json:"add_ons"`
	Currency string                `json:"currency"`
}

// DefaultRates are used when no overrides are stored.
func DefaultRates() RateTable {
	return RateTable{
		Rates: map[VehicleClass]Rate{
			ClassEconomy:  {Class: ClassEconomy, BaseFare: 150, PerKm: 25},
			ClassComfort:  {Class: ClassComfort, BaseFare: 250, PerKm: 35},
			ClassBusiness: {Class: ClassBusiness, BaseFare: 400, PerKm: 50},
		},
		AddOns: map[AddOn]int64{
			AddOnChildSeat: 50,
			AddOnLuggage:   30,
		},
		Currency: types.CurrencyRUB,
	}
}

func (t RateTable) clone() RateTable {
	out := RateTable{
		Rates:    make(map[VehicleClass]Rate, len(t.Rates)),
		AddOns:   make(map[AddOn]int64, len(t.AddOns)),
		Currency: t.Currency,
	}
	for k, v := range t.Rates {
		out.Rates[k] = v
	}
	for k, v := range t.AddOns {
		out.AddOns[k] = v
	}
	return out
}

// Quote is a priced ride. Base + DistanceSurcharge + sum(AddOns) == Total.
type Quote struct {
	VehicleClass      VehicleClass    `json:"vehicle_class"`
	Base              int64           `json:"base"`
	DistanceSurcharge int64           `json:"distance_surcharge"`
	AddOns            map[AddOn]int64 `json:"add_ons"`
	Total             int64           `json:"total"`
	Currency          string          `json:"currency"`
	DistanceKm        float64         `json:"distance_km"`
	DurationMin       int             `json:"duration_min"`
}

func (q Quote) TotalMoney() types.Money {
	return types.Money{Amount: q.Total, Currency: q.Currency}
}

func (q Quote) Clone() Quote {
	out := q
	out.AddOns = make(map[AddOn]int64, len(q.AddOns))
	for k, v := range q.AddOns {
		out.AddOns[k] = v
	}
	return out
}

// AddOnList returns the priced add-ons in sorted order.
func (q Quote) AddOnList() []AddOn {
	out := make([]AddOn, 0, len(q.AddOns))
	for a := range q.AddOns {
		out = append(out, a)
	}
	return normalizeAddOns(out)
}

// normalizeAddOns returns a sorted, de-duplicated copy.
func normalizeAddOns(in []AddOn) []AddOn {
	seen := make(map[AddOn]struct{}, len(in))
	out := make([]AddOn, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
