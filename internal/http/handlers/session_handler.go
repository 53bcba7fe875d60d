// README: Session handlers drive one ride session through its lifecycle.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ride/internal/modules/pricing"
	"ride/internal/modules/trip"
	"ride/internal/types"
)

type SessionHandler struct {
	trip *trip.Service
}

func NewSessionHandler(svc *trip.Service) *SessionHandler {
	return &SessionHandler{trip: svc}
}

type addressesReq struct {
	From      string       `json:"from"`
	To        string       `json:"to"`
	FromPoint *types.Point `json:"from_point"`
	ToPoint   *types.Point `json:"to_point"`
}

type selectRouteReq struct {
	Index *int `json:"index"`
}

type optionsReq struct {
	VehicleClass string    `json:"vehicle_class"`
	AddOns       *[]string `json:"add_ons"`
}

type ratingReq struct {
	Stars *int `json:"stars"`
}

func (h *SessionHandler) Open(c *gin.Context) {
	s := h.trip.Open(c.Request.Context())
	writeJSON(c, http.StatusCreated, s.Snapshot())
}

func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) SetAddresses(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req addressesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	var v trip.SessionView
	var err error
	if req.FromPoint != nil && req.ToPoint != nil {
		v, err = s.SetPoints(c.Request.Context(), *req.FromPoint, *req.ToPoint)
	} else {
		v, err = s.SetAddresses(c.Request.Context(), req.From, req.To)
	}
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) SelectRoute(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req selectRouteReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		writeError(c, http.StatusBadRequest, "missing index")
		return
	}
	v, err := s.SelectRoute(*req.Index)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) SetOptions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req optionsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	class, addOns, err := parseOptions(req)
	if err != nil {
		writeTripError(c, err)
		return
	}
	v, err := s.SetOptions(trip.OptionsCommand{VehicleClass: class, AddOns: addOns})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) ToggleAddOn(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	a, err := pricing.ParseAddOn(c.Param("addon"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unknown add-on")
		return
	}
	v, err := s.ToggleAddOn(a)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) PlaceOrder(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req optionsReq
	// body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	class, addOns, err := parseOptions(req)
	if err != nil {
		writeTripError(c, err)
		return
	}
	v, err := s.PlaceOrder(trip.PlaceOrderCommand{VehicleClass: class, AddOns: addOns})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, v)
}

func (h *SessionHandler) Cancel(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Cancel()
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) Start(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.ConfirmStart()
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

// Rate records 1..5 stars; 0 skips the rating.
func (h *SessionHandler) Rate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ratingReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Stars == nil {
		writeError(c, http.StatusBadRequest, "missing stars")
		return
	}
	var v trip.SessionView
	var err error
	if *req.Stars == 0 {
		v, err = s.SkipRating()
	} else {
		v, err = s.SubmitRating(*req.Stars)
	}
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) Reset(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Reset()
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *SessionHandler) History(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := h.trip.History(c.Request.Context(), limit)
	if err != nil {
		writeTripError(c, err)
		return
	}
	if records == nil {
		records = []trip.Record{}
	}
	writeJSON(c, http.StatusOK, gin.H{"records": records})
}

func (h *SessionHandler) session(c *gin.Context) (*trip.Session, bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing session id")
		return nil, false
	}
	s, err := h.trip.Load(c.Request.Context(), types.ID(id))
	if err != nil {
		writeTripError(c, err)
		return nil, false
	}
	return s, true
}

func parseOptions(req optionsReq) (pricing.VehicleClass, []pricing.AddOn, error) {
	var class pricing.VehicleClass
	if req.VehicleClass != "" {
		c, err := pricing.ParseVehicleClass(req.VehicleClass)
		if err != nil {
			return "", nil, errors.Join(trip.ErrInvalidInput, err)
		}
		class = c
	}
	var addOns []pricing.AddOn
	if req.AddOns != nil {
		a, err := parseAddOns(*req.AddOns)
		if err != nil {
			return "", nil, errors.Join(trip.ErrInvalidInput, err)
		}
		addOns = a
	}
	return class, addOns, nil
}
