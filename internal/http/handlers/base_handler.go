// README: Shared handler utilities (JSON helpers, domain error mapping, DTOs).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/http/middleware"
	"fleet/internal/modules/courier"
	"fleet/internal/modules/order"
	"fleet/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, courier.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, courier.ErrBadKYCDecision):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotEligible), errors.Is(err, courier.ErrKYCNotApproved), errors.Is(err, courier.ErrNotEligible):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrAlreadyAssigned),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotAssignedActor),
		errors.Is(err, order.ErrActorNotAllowed),
		errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func actorID(c *gin.Context) types.ID {
	return types.ID(c.GetString(middleware.ActorIDKey))
}

func actorRole(c *gin.Context) string {
	return c.GetString(middleware.ActorRoleKey)
}

type moneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type lineItemDTO struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice moneyDTO `json:"unit_price"`
	Subtotal  moneyDTO `json:"subtotal"`
}

type statusChangeDTO struct {
	From      string `json:"from"`
	To        string `json:"to"`
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id,omitempty"`
	At        string `json:"at"`
}

type orderDTO struct {
	OrderID    string            `json:"order_id"`
	BusinessID string            `json:"business_id"`
	CustomerID string            `json:"customer_id"`
	CourierID  string            `json:"courier_id,omitempty"`
	Status     string            `json:"status"`
	Items      []lineItemDTO     `json:"items"`
	Total      moneyDTO          `json:"total_amount"`
	Commission *moneyDTO         `json:"commission_amount,omitempty"`
	History    []statusChangeDTO `json:"status_history"`
	CreatedAt  string            `json:"created_at"`
}

func toMoneyDTO(m types.Money) moneyDTO {
	return moneyDTO{Amount: m.Amount, Currency: m.Currency}
}

func toOrderDTO(o *order.Order) orderDTO {
	dto := orderDTO{
		OrderID:    string(o.ID),
		BusinessID: string(o.BusinessID),
		CustomerID: string(o.CustomerID),
		Status:     string(o.Status),
		Total:      toMoneyDTO(o.TotalAmount),
		CreatedAt:  o.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if o.CourierID != nil {
		dto.CourierID = string(*o.CourierID)
	}
	if o.CommissionAmount != nil {
		m := toMoneyDTO(*o.CommissionAmount)
		dto.Commission = &m
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, lineItemDTO{
			ProductID: string(it.ProductID),
			Quantity:  it.Quantity,
			UnitPrice: toMoneyDTO(it.UnitPrice),
			Subtotal:  toMoneyDTO(it.Subtotal),
		})
	}
	for _, h := range o.History {
		entry := statusChangeDTO{
			From:      string(h.From),
			To:        string(h.To),
			ActorType: h.ActorType,
			At:        h.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if h.ActorID != nil {
			entry.ActorID = string(*h.ActorID)
		}
		dto.History = append(dto.History, entry)
	}
	return dto
}
