package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/PapNorbert/WatchWise/internal/domain"
)

type memoryLog struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

// MemoryChatStore is an in-process ChatStore. Appends to different rooms
// only contend on the edge map read lock.
type MemoryChatStore struct {
	mu    sync.RWMutex
	edges map[string]string // roomID -> chatID
	logs  map[string]*memoryLog
}

var _ ChatStore = (*MemoryChatStore)(nil)

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		edges: make(map[string]string),
		logs:  make(map[string]*memoryLog),
	}
}

func (s *MemoryChatStore) logFor(roomID string) *memoryLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chatID, ok := s.edges[roomID]
	if !ok {
		return nil
	}
	return s.logs[chatID]
}

func (s *MemoryChatStore) Append(ctx context.Context, roomID string, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	cl := s.logFor(roomID)
	if cl == nil {
		return domain.ErrRoomNotFound
	}

	cl.mu.Lock()
	cl.msgs = append(cl.msgs, *msg)
	cl.mu.Unlock()
	return nil
}

func (s *MemoryChatStore) ReadAll(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	cl := s.logFor(roomID)
	if cl == nil {
		return []domain.ChatMessage{}, nil
	}

	cl.mu.Lock()
	out := make([]domain.ChatMessage, len(cl.msgs))
	for i, m := range cl.msgs {
		out[len(cl.msgs)-1-i] = m
	}
	cl.mu.Unlock()

	// Reversed append order breaks timestamp ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryChatStore) CreateChatLog(ctx context.Context, roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chatID, ok := s.edges[roomID]; ok {
		return chatID, nil
	}
	chatID := uuid.New().String()
	s.edges[roomID] = chatID
	s.logs[chatID] = &memoryLog{}
	return chatID, nil
}

func (s *MemoryChatStore) Close() error {
	return nil
}
