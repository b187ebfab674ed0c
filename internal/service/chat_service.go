package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PapNorbert/WatchWise/internal/audit"
	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/hub"
	"github.com/PapNorbert/WatchWise/internal/kafka"
	"github.com/PapNorbert/WatchWise/internal/relay"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

type chatService struct {
	hub       *hub.Hub
	persister MessagePersister
	history   HistoryReader
	relay     relay.Relay
	producer  kafka.MessageProducer
	sequencer *roomSequencer
}

func NewChatService(
	h *hub.Hub,
	persister MessagePersister,
	history HistoryReader,
	rly relay.Relay,
	producer kafka.MessageProducer,
) ChatService {
	if rly == nil {
		rly = relay.NoopRelay{}
	}
	if producer == nil {
		producer = kafka.NoopProducer{}
	}
	return &chatService{
		hub:       h,
		persister: persister,
		history:   history,
		relay:     rly,
		producer:  producer,
		sequencer: newRoomSequencer(),
	}
}

// HandleJoinRoom makes the client a member of roomID and replays the room
// history to it alone.
func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "room_id is required"))
	}

	previous, ok := s.hub.Join(c, roomID)
	if !ok {
		return hub.ErrClientClosed
	}
	if previous != "" && previous != roomID {
		audit.LogWithDetail(ctx, audit.ActionLeaveRoom, previous, "switched to "+roomID, "client left room")
	}
	audit.Log(ctx, audit.ActionJoinRoom, roomID, "client joined room")

	msgs := s.history.LoadHistory(ctx, roomID)
	return c.SendMessage(domain.NewMessageHistory(roomID, msgs))
}

// HandleSendMessage persists the message and, only after the append
// succeeded, queues it for every other member of the room. Persist, the
// local enqueue and the relay publish all happen under the room's sequencer
// lock, so every instance sees the room's messages in commit order.
func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, payload domain.SendPayload) error {
	l := log.Ctx(ctx)

	unlock := s.sequencer.lock(payload.RoomID)
	msg, err := s.persister.Persist(ctx, payload.RoomID, payload)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrMalformedPayload) {
			l.Warn().Err(err).Str(log.FieldRoomID, payload.RoomID).Msg("rejected chat message")
		} else {
			l.Error().Err(err).Str(log.FieldRoomID, payload.RoomID).Msg("failed to persist chat message")
		}
		if sendErr := c.SendMessage(domain.NewErrorMessage(domain.ErrorCode(err), errorText(err))); sendErr != nil {
			l.Debug().Err(sendErr).Msg("could not report send failure")
		}
		return fmt.Errorf("persist message: %w", err)
	}
	broadcastErr := s.hub.BroadcastToRoom(msg.RoomID, domain.NewReceiveMessage(msg), c.ID)
	s.publish(ctx, c.ID, msg)
	unlock()

	if broadcastErr != nil {
		l.Error().Err(broadcastErr).Str(log.FieldMessageID, msg.ID).Msg("failed to queue broadcast")
	}
	audit.LogWithTarget(ctx, audit.ActionSendMessage, msg.RoomID, msg.ID, "chat message committed")
	return nil
}

// publish forwards a committed message to the other instances and the event
// feed. Failures never affect local delivery.
func (s *chatService) publish(ctx context.Context, connectionID string, msg *domain.ChatMessage) {
	l := log.Ctx(ctx)
	if err := s.relay.Publish(ctx, msg, connectionID); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, msg.RoomID).Str(log.FieldMessageID, msg.ID).Msg("failed to relay chat message")
	}
	if err := s.producer.ProduceMessage(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, msg.RoomID).Str(log.FieldMessageID, msg.ID).Msg("failed to produce chat event")
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		return err.Error()
	case errors.Is(err, domain.ErrRoomNotFound):
		return "No chat exists for this watch group"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Message could not be saved, try again"
	default:
		return "Failed to send message"
	}
}

func (s *chatService) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if s.hub.Leave(c, roomID) {
		audit.Log(ctx, audit.ActionLeaveRoom, roomID, "client left room")
	}
	return nil
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	roomID := s.hub.RoomOf(c.ID)
	s.hub.Unregister(c)
	audit.Log(ctx, audit.ActionDisconnect, roomID, "client disconnected")
	return nil
}

// HandleRelayed delivers a message committed on another instance to the
// local members of its room.
func (s *chatService) HandleRelayed(ctx context.Context, msg *domain.ChatMessage) error {
	if msg == nil || msg.RoomID == "" {
		return fmt.Errorf("%w: relayed message without room", domain.ErrMalformedPayload)
	}
	unlock := s.sequencer.lock(msg.RoomID)
	defer unlock()
	return s.hub.BroadcastToRoom(msg.RoomID, domain.NewReceiveMessage(msg), "")
}

func (s *chatService) Start(ctx context.Context) error {
	err := s.relay.Subscribe(ctx, func(ctx context.Context, msg *domain.ChatMessage) {
		if err := s.HandleRelayed(ctx, msg); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("failed to deliver relayed message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start relay subscription: %w", err)
	}
	l := log.Ctx(ctx)
	l.Info().Msg("chat service started")
	return nil
}

func (s *chatService) Stop() error {
	l := log.L()
	if err := s.relay.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close relay")
	}
	if err := s.producer.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close kafka producer")
	}
	return nil
}
