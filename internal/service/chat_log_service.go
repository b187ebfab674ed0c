package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PapNorbert/WatchWise/internal/audit"
	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/store"
	"github.com/PapNorbert/WatchWise/pkg/log"
	"github.com/PapNorbert/WatchWise/pkg/storage"
)

const archivePrefix = "chat-logs"

type chatLogService struct {
	store     store.ChatStore
	history   HistoryReader
	storage   storage.Storage
	urlExpiry time.Duration
	now       func() time.Time
}

// NewChatLogService creates the service behind the chat-log HTTP API.
// blobs may be nil, in which case archiving is unavailable.
func NewChatLogService(s store.ChatStore, history HistoryReader, blobs storage.Storage, urlExpiry time.Duration) ChatLogService {
	return &chatLogService{
		store:     s,
		history:   history,
		storage:   blobs,
		urlExpiry: urlExpiry,
		now:       time.Now,
	}
}

func (s *chatLogService) Provision(ctx context.Context, roomID string) (string, error) {
	if strings.TrimSpace(roomID) == "" {
		return "", fmt.Errorf("%w: room_id is required", domain.ErrMalformedPayload)
	}
	chatID, err := s.store.CreateChatLog(ctx, roomID)
	if err != nil {
		return "", err
	}
	audit.LogWithTarget(ctx, audit.ActionProvision, roomID, chatID, "chat log provisioned")
	return chatID, nil
}

func (s *chatLogService) History(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	return s.history.ReadHistory(ctx, roomID)
}

type archiveDocument struct {
	RoomID     string               `json:"room_id"`
	ArchivedAt time.Time            `json:"archived_at"`
	Messages   []domain.ChatMessage `json:"messages"`
}

// archiveDir returns the storage prefix holding the room's archives. Dot
// segments would escape chat-logs/<room>/ and are rejected.
func archiveDir(roomID string) (string, error) {
	if strings.TrimSpace(roomID) == "" || roomID == "." || roomID == ".." {
		return "", fmt.Errorf("%w: invalid room_id %q", domain.ErrMalformedPayload, roomID)
	}
	return archivePrefix + "/" + url.PathEscape(roomID), nil
}

// Archive writes the full room history as one JSON document.
func (s *chatLogService) Archive(ctx context.Context, roomID string) (*ArchiveResult, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("archive storage is not configured")
	}
	dir, err := archiveDir(roomID)
	if err != nil {
		return nil, err
	}
	l := log.Ctx(ctx)

	msgs, err := s.history.ReadHistory(ctx, roomID)
	if err != nil {
		return nil, err
	}

	archivedAt := s.now().UTC()
	data, err := json.Marshal(archiveDocument{RoomID: roomID, ArchivedAt: archivedAt, Messages: msgs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive: %w", err)
	}

	key := fmt.Sprintf("%s/%d.json", dir, archivedAt.UnixMilli())
	if err := s.storage.Write(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Str("key", key).Msg("failed to write chat archive")
		return nil, err
	}

	link, err := s.storage.GetURL(ctx, key, s.urlExpiry)
	if err != nil {
		l.Warn().Err(err).Str("key", key).Msg("failed to build archive url")
	}

	audit.LogWithTarget(ctx, audit.ActionArchive, roomID, key, "chat log archived")
	return &ArchiveResult{
		Key:          key,
		URL:          link,
		MessageCount: len(msgs),
		ArchivedAt:   archivedAt,
	}, nil
}

// ListArchives returns the room's archives, newest first.
func (s *chatLogService) ListArchives(ctx context.Context, roomID string) ([]storage.FileInfo, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("archive storage is not configured")
	}
	dir, err := archiveDir(roomID)
	if err != nil {
		return nil, err
	}
	files, err := s.storage.List(ctx, dir+"/")
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Key > files[j].Key
	})
	return files, nil
}
