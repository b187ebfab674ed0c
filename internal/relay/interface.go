package relay

import (
	"context"

	"github.com/PapNorbert/WatchWise/internal/domain"
)

// Handler receives messages committed by other gateway instances.
type Handler func(ctx context.Context, msg *domain.ChatMessage)

// Relay fans committed messages out to the other gateway instances.
type Relay interface {
	Publish(ctx context.Context, msg *domain.ChatMessage, connectionID string) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// NoopRelay is used when the gateway runs as a single instance.
type NoopRelay struct{}

func (NoopRelay) Publish(context.Context, *domain.ChatMessage, string) error { return nil }
func (NoopRelay) Subscribe(context.Context, Handler) error                   { return nil }
func (NoopRelay) Close() error                                              { return nil }
