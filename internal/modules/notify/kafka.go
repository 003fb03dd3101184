package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderdesk/orderdesk-backend/internal/kafkax"
)

// KafkaDispatcher mirrors every event onto a single stream topic, keyed by
// the target topic so all events for one order stay on one partition and
// keep their commit order.
type KafkaDispatcher struct {
	producer *kafkax.Producer
	log      *slog.Logger
}

func NewKafkaDispatcher(producer *kafkax.Producer, log *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, log: log}
}

func (d *KafkaDispatcher) Publish(ctx context.Context, topic Topic, event string, payload interface{}) {
	body, err := json.Marshal(struct {
		Topic Topic `json:"topic"`
		Envelope
	}{topic, Envelope{Event: event, OccurredAt: time.Now().UTC(), Payload: payload}})
	if err != nil {
		d.log.Error("marshal event", "event", event, "err", err)
		return
	}
	d.producer.Publish([]byte(topic), body,
		kafka.Header{Key: "x-event-type", Value: []byte(event)})
}
