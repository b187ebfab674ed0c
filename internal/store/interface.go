package store

import (
	"context"

	"github.com/PapNorbert/WatchWise/internal/domain"
)

// ChatStore persists the append-only chat log of each watch group.
type ChatStore interface {
	// Append adds msg to the log reachable from roomID. Concurrent appends to
	// the same room never lose a message.
	Append(ctx context.Context, roomID string, msg *domain.ChatMessage) error
	// ReadAll returns every message of the room, newest first. A room without
	// messages yields an empty slice.
	ReadAll(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	// CreateChatLog provisions the log for a room and returns its id. Calling
	// it again for the same room returns the existing id.
	CreateChatLog(ctx context.Context, roomID string) (string, error)
	Close() error
}
