package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/caribe-transfers/service-transfer/internal/platform/kafka"
)

// QuoteEventConsumer listens to transfer events and forwards quote requests
// to the configured operator channels.
type QuoteEventConsumer struct {
	consumer  *kafka.Consumer
	notifiers []QuoteNotifier
	logger    *zap.Logger
}

// NewQuoteEventConsumer creates a new QuoteEventConsumer.
func NewQuoteEventConsumer(
	brokers []string,
	groupID string,
	notifiers []QuoteNotifier,
	logger *zap.Logger,
) *QuoteEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicTransferEvents, logger)
	return &QuoteEventConsumer{
		consumer:  consumer,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Start begins consuming transfer events. This blocks until the context is cancelled.
func (c *QuoteEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *QuoteEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *QuoteEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from transfer topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case TransferQuoteRequested:
		return c.handleQuoteRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled transfer event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handleQuoteRequested notifies every channel. A failing channel is logged and
// skipped; redelivering would duplicate the message on the channels that worked.
func (c *QuoteEventConsumer) handleQuoteRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt QuoteRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse QuoteRequestedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	for _, n := range c.notifiers {
		if err := n.NotifyQuote(ctx, evt); err != nil {
			c.logger.Warn("failed to deliver quote notification",
				zap.String("channel", n.Name()),
				zap.String("route_id", evt.RouteID),
				zap.Error(err),
			)
			continue
		}
		c.logger.Debug("quote notification delivered",
			zap.String("channel", n.Name()),
			zap.String("route_id", evt.RouteID),
		)
	}
	return nil
}
