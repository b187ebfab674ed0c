package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/store"
)

const (
	// Rooms whose last timestamp is older than clampWindow need no clamp,
	// the clock is already past it.
	clampWindow     = time.Second
	maxTrackedRooms = 1024
)

type messagePersister struct {
	store   store.ChatStore
	maxBody int
	now     func() time.Time

	mu   sync.Mutex
	last map[string]time.Time // roomID -> last committed CreatedAt
}

func NewMessagePersister(s store.ChatStore, maxBodyLength int) MessagePersister {
	return &messagePersister{
		store:   s,
		maxBody: maxBodyLength,
		now:     time.Now,
		last:    make(map[string]time.Time),
	}
}

// Persist validates the payload, stamps id and creation time and appends
// the message. The returned message is only non-nil once the append
// succeeded.
func (p *messagePersister) Persist(ctx context.Context, roomID string, payload domain.SendPayload) (*domain.ChatMessage, error) {
	payload.RoomID = roomID
	if err := payload.Validate(p.maxBody); err != nil {
		return nil, err
	}

	createdAt := p.nextTimestamp(roomID)
	id, err := ulid.New(ulid.Timestamp(createdAt), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	msg := &domain.ChatMessage{
		ID:        id.String(),
		RoomID:    roomID,
		Sender:    payload.Sender,
		Body:      payload.Body,
		CreatedAt: createdAt,
	}
	if err := p.store.Append(ctx, roomID, msg); err != nil {
		return nil, err
	}
	p.commit(roomID, createdAt)
	return msg, nil
}

// nextTimestamp returns UTC now at microsecond precision, bumped past the
// last timestamp committed for the room. Callers serialize Persist per room.
func (p *messagePersister) nextTimestamp(roomID string) time.Time {
	t := p.now().UTC().Truncate(time.Microsecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.last[roomID]; ok && !t.After(last) {
		t = last.Add(time.Microsecond)
	}
	return t
}

// commit records the timestamp of an appended message. Past maxTrackedRooms
// entries, rooms idle for longer than clampWindow are forgotten.
func (p *messagePersister) commit(roomID string, t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last[roomID] = t
	if len(p.last) <= maxTrackedRooms {
		return
	}
	cutoff := p.now().UTC().Add(-clampWindow)
	for id, last := range p.last {
		if last.Before(cutoff) {
			delete(p.last, id)
		}
	}
}

func (p *messagePersister) tracked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.last)
}
