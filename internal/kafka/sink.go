package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// EnvelopeSink publishes order lifecycle envelopes on their storefront.order.* topic,
// keyed by order id.
type EnvelopeSink struct {
	P *Producer
}

func (s *EnvelopeSink) Emit(_ context.Context, env orders.Envelope) error {
	topic := orders.TopicFor(env.EventType)
	if topic == "" {
		return fmt.Errorf("kafka: no topic for event %q", env.EventType)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.P.Publish(kafka.Message{
		Topic: topic,
		Key:   []byte(env.CorrelationID),
		Value: b,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(env.EventType)},
			{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	})
}
