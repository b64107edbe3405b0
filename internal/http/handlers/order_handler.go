// README: Order handlers for create/get/confirm/accept/advance/cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/modules/matching"
	"fleet/internal/modules/order"
	"fleet/internal/types"
)

type OrderHandler struct {
	order    *order.Service
	matching *matching.Service
}

func NewOrderHandler(orderSvc *order.Service, matchingSvc *matching.Service) *OrderHandler {
	return &OrderHandler{order: orderSvc, matching: matchingSvc}
}

type createItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Currency  string `json:"currency"`
}

type createOrderReq struct {
	BusinessID      string          `json:"business_id"`
	CustomerID      string          `json:"customer_id"`
	Items           []createItemReq `json:"items"`
	PickupLat       float64         `json:"pickup_lat"`
	PickupLng       float64         `json:"pickup_lng"`
	PickupAddress   string          `json:"pickup_address"`
	DeliveryLat     float64         `json:"delivery_lat"`
	DeliveryLng     float64         `json:"delivery_lng"`
	DeliveryAddress string          `json:"delivery_address"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemInput{
			ProductID: types.ID(it.ProductID),
			Quantity:  it.Quantity,
			UnitPrice: types.Money{Amount: it.UnitPrice, Currency: it.Currency},
		})
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		BusinessID: types.ID(req.BusinessID),
		CustomerID: types.ID(req.CustomerID),
		Items:      items,
		Pickup: types.Location{
			Point:   types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
			Address: req.PickupAddress,
		},
		Delivery: types.Location{
			Point:   types.Point{Lat: req.DeliveryLat, Lng: req.DeliveryLng},
			Address: req.DeliveryAddress,
		},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	// Best-effort nearby fan-out; couriers also find the order by polling.
	h.matching.Announce(c.Request.Context(), o)
	writeJSON(c, http.StatusCreated, toOrderDTO(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderDTO(o))
}

func (h *OrderHandler) Confirm(c *gin.Context) {
	o, err := h.order.Confirm(c.Request.Context(), types.ID(c.Param("id")), actorID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderDTO(o))
}

func (h *OrderHandler) Accept(c *gin.Context) {
	o, err := h.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: actorID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderDTO(o))
}

type advanceReq struct {
	Target string `json:"target"`
}

func (h *OrderHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Advance(c.Request.Context(), order.AdvanceCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: actorID(c),
		Target:  order.Status(req.Target),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderDTO(o))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorType: actorRole(c),
		ActorID:   actorID(c),
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderDTO(o))
}
