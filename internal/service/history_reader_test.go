package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/store"
)

func TestHistoryReader_LoadHistory(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryChatStore()
	_, err := s.CreateChatLog(ctx, "g1")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, "g1", &domain.ChatMessage{ID: "1", RoomID: "g1", Body: "old", CreatedAt: base}))
	require.NoError(t, s.Append(ctx, "g1", &domain.ChatMessage{ID: "2", RoomID: "g1", Body: "new", CreatedAt: base.Add(time.Minute)}))

	r := NewHistoryReader(s)
	msgs := r.LoadHistory(ctx, "g1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "new", msgs[0].Body)

	empty := r.LoadHistory(ctx, "unknown")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHistoryReader_StoreFailureYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	s := &mockChatStore{}
	s.On("ReadAll", ctx, "g1").Return(nil, fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable))

	r := NewHistoryReader(s)
	msgs := r.LoadHistory(ctx, "g1")
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err := r.ReadHistory(ctx, "g1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
