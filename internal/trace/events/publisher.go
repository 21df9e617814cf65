// Package events publishes trace domain events to the message broker.
package events

import (
	"context"

	"github.com/agrotrace/agrotrace-backend/pkg/logger"
	"github.com/agrotrace/agrotrace-backend/pkg/messaging"
)

// TraceEventPublisher publishes trace events on the trace.events exchange.
// Publishing is fire-and-forget: consumers react to completed transactions
// and balance adjustments, but the transaction itself never waits on them.
type TraceEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewTraceEventPublisher creates a new trace event publisher
func NewTraceEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*TraceEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeTraceEvents, "trace-service", log)
	if err != nil {
		return nil, err
	}

	return &TraceEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// Publish publishes an event with the event type as routing key.
func (p *TraceEventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return p.publisher.Publish(ctx, eventType, payload)
}
