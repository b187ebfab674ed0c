package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/pkg/log"
	"github.com/PapNorbert/WatchWise/pkg/pubsub"
)

// PubSubRelay relays over the shared pubsub bus. Events carry the origin
// instance id and each instance drops its own.
type PubSubRelay struct {
	ps     pubsub.PubSub
	origin string
}

var _ Relay = (*PubSubRelay)(nil)

func NewPubSubRelay(ps pubsub.PubSub, origin string) *PubSubRelay {
	return &PubSubRelay{ps: ps, origin: origin}
}

func (r *PubSubRelay) Publish(ctx context.Context, msg *domain.ChatMessage, connectionID string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	event, err := pubsub.NewEvent(pubsub.EventChatMessage, msg.RoomID, pubsub.ChatMessagePayload{
		Origin:       r.origin,
		ConnectionID: connectionID,
		Message:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to build relay event: %w", err)
	}

	return r.ps.Publish(ctx, pubsub.RoomToGatewayChannel(msg.RoomID), event)
}

// Subscribe consumes every room's gateway channel until ctx ends.
func (r *PubSubRelay) Subscribe(ctx context.Context, handler Handler) error {
	events, err := r.ps.SubscribePattern(ctx, pubsub.PatternRoomToGateway)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pubsub.PatternRoomToGateway, err)
	}

	go func() {
		for event := range events {
			r.dispatch(ctx, event, handler)
		}
	}()
	return nil
}

func (r *PubSubRelay) dispatch(ctx context.Context, event *pubsub.Event, handler Handler) {
	if event.Type != pubsub.EventChatMessage {
		return
	}
	l := log.Ctx(ctx)

	var payload pubsub.ChatMessagePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("dropping malformed relay event")
		return
	}
	if payload.Origin == r.origin {
		return
	}

	var msg domain.ChatMessage
	if err := json.Unmarshal(payload.Message, &msg); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, event.RoomID).Msg("dropping malformed relayed message")
		return
	}
	handler(ctx, &msg)
}

func (r *PubSubRelay) Close() error {
	return r.ps.Close()
}
