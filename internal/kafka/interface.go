package kafka

import (
	"context"

	"github.com/PapNorbert/WatchWise/internal/domain"
)

// MessageProducer publishes committed chat messages to the event feed.
type MessageProducer interface {
	ProduceMessage(ctx context.Context, msg *domain.ChatMessage) error
	Close() error
}

// NoopProducer is used when the event feed is disabled.
type NoopProducer struct{}

func (NoopProducer) ProduceMessage(context.Context, *domain.ChatMessage) error { return nil }
func (NoopProducer) Close() error                                           { return nil }
