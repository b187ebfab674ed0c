package service

import (
	"context"
	"time"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/internal/hub"
	"github.com/PapNorbert/WatchWise/pkg/storage"
)

// ChatService handles the websocket chat protocol for one gateway instance.
type ChatService interface {
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleSendMessage(ctx context.Context, client *hub.Client, payload domain.SendPayload) error
	HandleLeaveRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	HandleRelayed(ctx context.Context, msg *domain.ChatMessage) error
	Start(ctx context.Context) error
	Stop() error
}

// MessagePersister turns a send payload into a durably stored message.
type MessagePersister interface {
	Persist(ctx context.Context, roomID string, payload domain.SendPayload) (*domain.ChatMessage, error)
}

// HistoryReader reads a room's messages, newest first.
type HistoryReader interface {
	// LoadHistory never fails; store errors yield an empty history.
	LoadHistory(ctx context.Context, roomID string) []domain.ChatMessage
	ReadHistory(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
}

// ArchiveResult describes a written chat-log archive.
type ArchiveResult struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	MessageCount int       `json:"message_count"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// ChatLogService backs the HTTP chat-log API.
type ChatLogService interface {
	Provision(ctx context.Context, roomID string) (string, error)
	History(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	Archive(ctx context.Context, roomID string) (*ArchiveResult, error)
	ListArchives(ctx context.Context, roomID string) ([]storage.FileInfo, error)
}
