package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/pkg/database"
)

func newGormStore(t *testing.T) *GormChatStore {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "chat.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)

	s := NewGormChatStore(db)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]ChatStore {
	return map[string]ChatStore{
		"memory": NewMemoryChatStore(),
		"gorm":   newGormStore(t),
	}
}

func msgAt(id, roomID, body string, at time.Time) *domain.ChatMessage {
	return &domain.ChatMessage{ID: id, RoomID: roomID, Sender: "ann", Body: body, CreatedAt: at}
}

func TestChatStore_UnknownRoom(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Append(ctx, "missing", msgAt("01A", "missing", "hi", time.Now().UTC()))
			assert.ErrorIs(t, err, domain.ErrRoomNotFound)

			msgs, err := s.ReadAll(ctx, "missing")
			require.NoError(t, err)
			assert.NotNil(t, msgs)
			assert.Empty(t, msgs)
		})
	}
}

func TestChatStore_CanceledContextIsUnavailable(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateChatLog(context.Background(), "g1")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err = s.Append(ctx, "g1", msgAt("01A", "g1", "hi", time.Now().UTC()))
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, domain.ErrCodeStoreUnavailable, domain.ErrorCode(err))

			_, err = s.ReadAll(ctx, "g1")
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		})
	}
}

func TestChatStore_CreateChatLogIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id1, err := s.CreateChatLog(ctx, "g1")
			require.NoError(t, err)
			id2, err := s.CreateChatLog(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, id1, id2)

			other, err := s.CreateChatLog(ctx, "g2")
			require.NoError(t, err)
			assert.NotEqual(t, id1, other)

			msgs, err := s.ReadAll(ctx, "g1")
			require.NoError(t, err)
			assert.Empty(t, msgs)
		})
	}
}

func TestChatStore_ReadAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateChatLog(ctx, "g1")
			require.NoError(t, err)

			require.NoError(t, s.Append(ctx, "g1", msgAt("01A", "g1", "first", base)))
			require.NoError(t, s.Append(ctx, "g1", msgAt("01B", "g1", "second", base.Add(time.Second))))
			// Same timestamp as the previous one: append order decides.
			require.NoError(t, s.Append(ctx, "g1", msgAt("01C", "g1", "third", base.Add(time.Second))))

			msgs, err := s.ReadAll(ctx, "g1")
			require.NoError(t, err)
			require.Len(t, msgs, 3)
			assert.Equal(t, []string{"01C", "01B", "01A"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
			assert.Equal(t, "third", msgs[0].Body)
			assert.True(t, msgs[2].CreatedAt.Equal(base))
			assert.Equal(t, "g1", msgs[0].RoomID)
			assert.Equal(t, "ann", msgs[0].Sender)
		})
	}
}

func TestChatStore_RoomIsolation(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateChatLog(ctx, "g1")
			require.NoError(t, err)
			_, err = s.CreateChatLog(ctx, "g2")
			require.NoError(t, err)

			require.NoError(t, s.Append(ctx, "g1", msgAt("01A", "g1", "for g1", time.Now().UTC())))

			msgs, err := s.ReadAll(ctx, "g2")
			require.NoError(t, err)
			assert.Empty(t, msgs)
		})
	}
}

func TestChatStore_ConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	const n = 40

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateChatLog(ctx, "g1")
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			now := time.Now().UTC()
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("01M%04d", i)
					errs <- s.Append(ctx, "g1", msgAt(id, "g1", id, now.Add(time.Duration(i)*time.Millisecond)))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			msgs, err := s.ReadAll(ctx, "g1")
			require.NoError(t, err)
			require.Len(t, msgs, n)

			seen := make(map[string]bool, n)
			for _, m := range msgs {
				seen[m.ID] = true
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestGormChatStore_SequenceAndCounter(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)

	chatID, err := s.CreateChatLog(ctx, "g1")
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, "g1", msgAt(fmt.Sprintf("01S%d", i), "g1", "x", now)))
	}

	var chatLog ChatLogModel
	require.NoError(t, s.db.Where("id = ?", chatID).Take(&chatLog).Error)
	assert.EqualValues(t, 3, chatLog.CommentCount)

	var seqs []int64
	require.NoError(t, s.db.Model(&ChatCommentModel{}).Where("chat_id = ?", chatID).Order("seq").Pluck("seq", &seqs).Error)
	assert.Equal(t, []int64{1, 2, 3}, seqs)
}

func TestGormChatStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s := newGormStore(t)
	_, err := s.CreateChatLog(ctx, "g1")
	require.NoError(t, err)

	require.NoError(t, s.Close())

	err = s.Append(ctx, "g1", msgAt("01A", "g1", "hi", time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = s.ReadAll(ctx, "g1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
