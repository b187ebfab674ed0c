package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/store"
	"github.com/PapNorbert/WatchWise/pkg/storage"
)

func newChatLogService(t *testing.T) (*chatLogService, *store.MemoryChatStore, storage.Storage) {
	t.Helper()
	s := store.NewMemoryChatStore()
	blobs, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	svc := NewChatLogService(s, NewHistoryReader(s), blobs, time.Minute).(*chatLogService)
	return svc, s, blobs
}

func TestChatLogService_Provision(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newChatLogService(t)

	id1, err := svc.Provision(ctx, "g1")
	require.NoError(t, err)
	id2, err := svc.Provision(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	_, err = svc.Provision(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestChatLogService_ArchiveAndList(t *testing.T) {
	ctx := context.Background()
	svc, s, blobs := newChatLogService(t)
	svc.now = func() time.Time { return time.UnixMilli(1714564800000) }

	_, err := svc.Provision(ctx, "g1")
	require.NoError(t, err)
	p := NewMessagePersister(s, 0)
	for _, body := range []string{"first", "second"} {
		_, err := p.Persist(ctx, "g1", domain.SendPayload{Sender: "ann", Body: body})
		require.NoError(t, err)
	}

	res, err := svc.Archive(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "chat-logs/g1/1714564800000.json", res.Key)
	assert.Equal(t, 2, res.MessageCount)
	assert.NotEmpty(t, res.URL)

	rc, err := blobs.Read(ctx, res.Key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var doc archiveDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "g1", doc.RoomID)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "second", doc.Messages[0].Body)

	svc.now = func() time.Time { return time.UnixMilli(1714564900000) }
	_, err = svc.Archive(ctx, "g1")
	require.NoError(t, err)

	files, err := svc.ListArchives(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "chat-logs/g1/1714564900000.json", files[0].Key)

	none, err := svc.ListArchives(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestChatLogService_ArchiveWithoutStorage(t *testing.T) {
	s := store.NewMemoryChatStore()
	svc := NewChatLogService(s, NewHistoryReader(s), nil, time.Minute)

	_, err := svc.Archive(context.Background(), "g1")
	assert.Error(t, err)
}

func TestChatLogService_RejectsDotRoomIDs(t *testing.T) {
	ctx := context.Background()
	svc, s, blobs := newChatLogService(t)
	for _, room := range []string{".", ".."} {
		_, err := s.CreateChatLog(ctx, room)
		require.NoError(t, err)
	}
	require.NoError(t, blobs.Write(ctx, "chat-logs/g1/1.json", strings.NewReader("{}"), 2, "application/json"))

	for _, room := range []string{".", "..", " "} {
		_, err := svc.Archive(ctx, room)
		assert.ErrorIs(t, err, domain.ErrMalformedPayload, "archive %q", room)

		files, err := svc.ListArchives(ctx, room)
		assert.ErrorIs(t, err, domain.ErrMalformedPayload, "list %q", room)
		assert.Nil(t, files)
	}

	all, err := blobs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "chat-logs/g1/1.json", all[0].Key)
}
