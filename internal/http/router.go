// README: HTTP route registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/http/handlers"
	"fleet/internal/http/middleware"
	"fleet/internal/modules/courier"
	"fleet/internal/modules/matching"
	"fleet/internal/modules/notify"
	"fleet/internal/modules/order"
	"fleet/internal/modules/payout"
)

type RouterDeps struct {
	Order    *order.Service
	Matching *matching.Service
	Registry *courier.Registry
	Ledger   payout.Ledger
	Emitter  notify.Emitter
	Log      *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(deps.Log),
		middleware.Logging(deps.Log),
		middleware.Actor(),
	)

	orderHandler := handlers.NewOrderHandler(deps.Order, deps.Matching)
	r.POST("/api/orders", orderHandler.Create)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.POST("/api/orders/:id/confirm", orderHandler.Confirm)
	r.POST("/api/orders/:id/accept", orderHandler.Accept)
	r.POST("/api/orders/:id/status", orderHandler.Advance)
	r.POST("/api/orders/:id/cancel", orderHandler.Cancel)

	courierHandler := handlers.NewCourierHandler(deps.Registry, deps.Matching, deps.Ledger, deps.Emitter)
	r.POST("/api/couriers", courierHandler.Register)
	r.POST("/api/couriers/:id/kyc", courierHandler.DecideKYC)
	r.POST("/api/couriers/:id/online", courierHandler.SetOnline)
	r.PUT("/api/couriers/:id/location", courierHandler.UpdateLocation)
	r.GET("/api/couriers/:id/orders/nearby", courierHandler.ListNearby)
	r.GET("/api/couriers/:id/balance", courierHandler.Balance)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
