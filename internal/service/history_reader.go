package service

import (
	"context"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/store"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

type historyReader struct {
	store store.ChatStore
}

func NewHistoryReader(s store.ChatStore) HistoryReader {
	return &historyReader{store: s}
}

func (r *historyReader) LoadHistory(ctx context.Context, roomID string) []domain.ChatMessage {
	msgs, err := r.ReadHistory(ctx, roomID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load chat history")
		return []domain.ChatMessage{}
	}
	return msgs
}

func (r *historyReader) ReadHistory(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	msgs, err := r.store.ReadAll(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}
