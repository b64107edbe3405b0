// README: Kafka-backed emitter; async writes keyed by order id.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type KafkaEmitter struct {
	w   *kafka.Writer
	log *slog.Logger
}

func NewKafkaEmitter(w *kafka.Writer, log *slog.Logger) *KafkaEmitter {
	return &KafkaEmitter{w: w, log: log}
}

func (k *KafkaEmitter) Emit(ctx context.Context, e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		k.log.Error("notify: marshal event", "event_type", e.Type, "err", err)
		return
	}
	// Keyed by order id so one order's events stay in partition order.
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: value,
	})
	if err != nil {
		k.log.Warn("notify: publish failed", "event_type", e.Type, "order_id", e.OrderID, "err", err)
	}
}

func (k *KafkaEmitter) Close() error {
	return k.w.Close()
}
