// README: Trip status flow, driver record, session view and history records.
package trip

import (
	"time"

	"ride/internal/modules/pricing"
	"ride/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusSearching Status = "searching"
	StatusFound     Status = "found"
	StatusComing    Status = "coming"
	StatusArrived   Status = "arrived"
	StatusRiding    Status = "riding"
	StatusCompleted Status = "completed"
)

// AllowedTransitions represents the ride state flow (diagram) as code.
// Every in-flight status may drop back to none on cancel.
var AllowedTransitions = map[Status][]Status{
	StatusNone:      {StatusSearching},
	StatusSearching: {StatusFound, StatusNone},
	StatusFound:     {StatusComing, StatusNone},
	StatusComing:    {StatusArrived, StatusNone},
	StatusArrived:   {StatusRiding, StatusNone},
	StatusRiding:    {StatusCompleted, StatusNone},
	StatusCompleted: {StatusNone},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// InFlight reports whether timers or animations may be pending in this status.
func (s Status) InFlight() bool {
	switch s {
	case StatusSearching, StatusFound, StatusComing, StatusArrived, StatusRiding:
		return true
	}
	return false
}

func (s Status) HasDriver() bool {
	switch s {
	case StatusFound, StatusComing, StatusArrived, StatusRiding, StatusCompleted:
		return true
	}
	return false
}

type Driver struct {
	ID         types.ID    `json:"id"`
	Name       string      `json:"name"`
	Vehicle    string      `json:"vehicle"`
	Plate      string      `json:"plate"`
	Rating     float64     `json:"rating"`
	ETAMinutes int         `json:"eta_minutes"`
	Position   types.Point `json:"position"`
}

// SessionView is a read-only copy of a session handed to callers and persisted as a snapshot.
type SessionView struct {
	ID              types.ID             `json:"id"`
	Status          Status               `json:"status"`
	FromAddress     string               `json:"from_address,omitempty"`
	ToAddress       string               `json:"to_address,omitempty"`
	From            *types.Point         `json:"from,omitempty"`
	To              *types.Point         `json:"to,omitempty"`
	Routes          *types.RouteResult   `json:"routes,omitempty"`
	VehicleClass    pricing.VehicleClass `json:"vehicle_class"`
	AddOns          []pricing.AddOn      `json:"add_ons"`
	Quote           *pricing.Quote       `json:"quote,omitempty"`
	QuoteFixed      bool                 `json:"quote_fixed"`
	Driver          *Driver              `json:"driver,omitempty"`
	Progress        float64              `json:"progress"`
	RemainingMeters float64              `json:"remaining_m"`
	RecordID        types.ID             `json:"record_id,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Record is one completed ride.
type Record struct {
	ID              types.ID             `json:"id"`
	SessionID       types.ID             `json:"session_id"`
	FromAddress     string               `json:"from_address"`
	ToAddress       string               `json:"to_address"`
	From            types.Point          `json:"from"`
	To              types.Point          `json:"to"`
	VehicleClass    pricing.VehicleClass `json:"vehicle_class"`
	AddOns          []pricing.AddOn      `json:"add_ons"`
	Total           types.Money          `json:"total"`
	DistanceMeters  float64              `json:"distance_meters"`
	DurationSeconds float64              `json:"duration_seconds"`
	DriverName      string               `json:"driver_name"`
	DriverPlate     string               `json:"driver_plate"`
	Rating          int                  `json:"rating"`
	CompletedAt     time.Time            `json:"completed_at"`
}

// Event is published on every status change.
type Event struct {
	ID         string    `json:"id"`
	SessionID  types.ID  `json:"session_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Reason     string    `json:"reason"`
	Driver     *Driver   `json:"driver,omitempty"`
	Total      int64     `json:"total,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
