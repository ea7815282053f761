package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler returns nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// DefaultAttempts is how many times a message is handled before it is skipped.
const DefaultAttempts = 3

type Consumer struct {
	r        *kafka.Reader
	workers  int
	attempts int
	backoff  time.Duration
	log      logrus.FieldLogger
}

func NewConsumer(brokers []string, group, topic string, workers int, logger logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:        r,
		workers:  workers,
		attempts: DefaultAttempts,
		backoff:  200 * time.Millisecond,
		log:      logger.WithFields(logrus.Fields{"module": "kafka.consumer", "topic": topic, "group": group}),
	}
}

// Start fetches messages and fans them out to the worker pool until ctx ends.
// A failing message is retried in place; once the attempts run out it is logged and
// skipped, and the partition moves on.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := c.log.WithField("worker", id)
			for m := range jobs {
				if err := retry(ctx, h, m, c.attempts, c.backoff, log); err != nil {
					if ctx.Err() != nil {
						continue
					}
					log.WithError(err).WithFields(logrus.Fields{"partition": m.Partition, "offset": m.Offset}).Error("skip message")
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					log.WithError(err).Warn("commit offset")
				}
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// retry runs h until it succeeds, attempts are used up, or ctx ends.
func retry(ctx context.Context, h Handler, m kafka.Message, attempts int, backoff time.Duration, log logrus.FieldLogger) error {
	n := max(attempts, 1)
	var err error
	for i := 1; i <= n; i++ {
		if err = h(ctx, m); err == nil {
			return nil
		}
		log.WithError(err).WithFields(logrus.Fields{"offset": m.Offset, "attempt": i}).Warn("handle message")
		if i == n {
			break
		}
		select {
		case <-time.After(backoff * time.Duration(i)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
