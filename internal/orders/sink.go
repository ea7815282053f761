package orders

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EventSink receives lifecycle events. Implementations pick the topic from the type.
type EventSink interface {
	Emit(ctx context.Context, env Envelope) error
}

// Emit wraps payload in an envelope and hands it to sink. Publishing is best effort:
// failures are logged and never returned. A nil sink disables events.
func Emit(ctx context.Context, sink EventSink, logger logrus.FieldLogger, producer, eventType string, orderID int64, payload any) {
	if sink == nil {
		return
	}
	log := logger.WithFields(logrus.Fields{"event_type": eventType, "order_id": orderID})
	env, err := NewEnvelope(eventType, producer, "", orderID, payload)
	if err != nil {
		log.WithError(err).Error("build event envelope")
		return
	}
	if err := sink.Emit(ctx, env); err != nil {
		log.WithError(err).Warn("publish event failed")
	}
}
