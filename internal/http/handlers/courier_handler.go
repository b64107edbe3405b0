// README: Courier handlers for onboarding, KYC, availability, location, nearby work, balance.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/modules/courier"
	"fleet/internal/modules/matching"
	"fleet/internal/modules/notify"
	"fleet/internal/modules/payout"
	"fleet/internal/types"
)

type CourierHandler struct {
	registry *courier.Registry
	matching *matching.Service
	ledger   payout.Ledger
	emitter  notify.Emitter
}

func NewCourierHandler(registry *courier.Registry, matchingSvc *matching.Service, ledger payout.Ledger, emitter notify.Emitter) *CourierHandler {
	return &CourierHandler{registry: registry, matching: matchingSvc, ledger: ledger, emitter: emitter}
}

type registerReq struct {
	VehicleType string `json:"vehicle_type"`
}

func (h *CourierHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.VehicleType == "" {
		writeError(c, http.StatusBadRequest, "missing vehicle_type")
		return
	}
	cr, err := h.registry.Register(c.Request.Context(), courier.RegisterCommand{VehicleType: req.VehicleType})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{
		"courier_id": cr.ID,
		"kyc_status": cr.KYC,
	})
}

type kycReq struct {
	Decision string `json:"decision"`
}

func (h *CourierHandler) DecideKYC(c *gin.Context) {
	if actorRole(c) != "admin" {
		writeError(c, http.StatusForbidden, "admin only")
		return
	}
	var req kycReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	decision := courier.KYCStatus(req.Decision)
	if decision != courier.KYCApproved && decision != courier.KYCRejected {
		writeError(c, http.StatusBadRequest, "decision must be approved or rejected")
		return
	}
	cr, err := h.registry.DecideKYC(c.Request.Context(), types.ID(c.Param("id")), decision)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if h.emitter != nil {
		e := notify.NewEvent(notify.EventKYCDecision)
		e.CourierID = cr.ID
		e.Detail = string(cr.KYC)
		h.emitter.Emit(c.Request.Context(), e)
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"courier_id": cr.ID,
		"kyc_status": cr.KYC,
	})
}

type onlineReq struct {
	Online bool `json:"online"`
}

func (h *CourierHandler) SetOnline(c *gin.Context) {
	var req onlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cr, err := h.registry.SetOnline(c.Request.Context(), types.ID(c.Param("id")), req.Online)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"courier_id": cr.ID,
		"online":     cr.Online,
	})
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *CourierHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	err := h.registry.UpdateLocation(c.Request.Context(), types.ID(c.Param("id")), types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ok": true})
}

func (h *CourierHandler) ListNearby(c *gin.Context) {
	matches, err := h.matching.ListNearby(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	type matchDTO struct {
		OrderID          string  `json:"order_id"`
		DistanceKm       float64 `json:"distance_km"`
		EstimatedMinutes int     `json:"estimated_minutes"`
	}
	out := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchDTO{
			OrderID:          string(m.OrderID),
			DistanceKm:       m.DistanceKm,
			EstimatedMinutes: m.EstimatedMinutes,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": out})
}

func (h *CourierHandler) Balance(c *gin.Context) {
	b, err := h.ledger.Balance(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"total":    toMoneyDTO(b.Total),
		"lifetime": toMoneyDTO(b.Lifetime),
	})
}
