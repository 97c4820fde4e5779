// Package notify publishes best-effort "resource changed" events to Kafka
// after a Storage Service operation commits, the same outbox-flavored,
// fire-and-forget shape as the teacher's core/backend notification pipeline
// (core/backend/notifications.go), minus the durable Postgres queue: a
// dropped or delayed notification never blocks or fails the HTTP response
// that triggered it, since the object store itself remains the single
// source of truth.
package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/model"
)

// Operation names the committed change a Event reports.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

// Event is the JSON payload published for every committed Create, Update
// or Delete. It carries only what a downstream consumer needs to decide
// whether to re-fetch the resource; it is not itself a representation.
type Event struct {
	Resource  model.ResourceURI `json:"resource"`
	Operation Operation         `json:"operation"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher publishes Events to a single Kafka topic. The zero Publisher
// (Writer == nil) is a valid no-op, so composition roots that do not
// configure KAFKA_BROKERS can skip wiring one up entirely.
type Publisher struct {
	Writer *kafka.Writer
}

// New returns a Publisher that writes to topic on the given brokers. Writes
// are fire-and-forget (RequiredAcks: kafka.RequireNone) because a lost
// change notification is recoverable — a consumer that missed one can
// always re-derive current state from the object store — while blocking a
// resource write on broker availability is not an acceptable tradeoff for
// a storage core.
func New(brokers []string, topic string) *Publisher {
	return &Publisher{Writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireNone,
		Async:        true,
	}}
}

// Publish emits ev without blocking the caller's operation: it is run in
// its own goroutine and any error is logged, never returned, matching the
// "best-effort" contract of SPEC_FULL's change-notification feature.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil || p.Writer == nil {
		return
	}
	log := logger.FromContext(ctx)
	payload, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("notify: marshalling event")
		return
	}
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Writer.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(ev.Resource),
			Value: payload,
		}); err != nil {
			logger.Default().WithFields(logrus.Fields{
				"resource":  ev.Resource,
				"operation": ev.Operation,
			}).WithError(err).Warn("notify: publishing resource-changed event")
		}
	}()
}

// Close releases the underlying Kafka writer's connections.
func (p *Publisher) Close() error {
	if p == nil || p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
