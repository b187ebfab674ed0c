package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PapNorbert/WatchWise/internal/domain"
	"github.com/PapNorbert/WatchWise/pkg/database"
	"github.com/PapNorbert/WatchWise/pkg/log"
)

// GormChatStore implements ChatStore using GORM.
type GormChatStore struct {
	db *gorm.DB
}

var _ ChatStore = (*GormChatStore)(nil)

// NewGormChatStore creates a new GORM-based chat store.
func NewGormChatStore(db *gorm.DB) *GormChatStore {
	return &GormChatStore{db: db}
}

// Migrate creates or updates the chat tables.
func (s *GormChatStore) Migrate() error {
	return database.AutoMigrate(s.db, Models()...)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

// Append adds a comment to the room's chat log inside one transaction.
// Bumping comment_count first takes the row lock that serializes appends to
// the same log; the new count becomes the comment's seq.
func (s *GormChatStore) Append(ctx context.Context, roomID string, msg *domain.ChatMessage) error {
	l := log.Ctx(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge ChatEdgeModel
		if err := tx.Where("from_key = ?", roomID).Take(&edge).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRoomNotFound
			}
			return unavailable(err)
		}

		res := tx.Model(&ChatLogModel{}).
			Where("id = ?", edge.ToID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if res.Error != nil {
			return unavailable(res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrRoomNotFound
		}

		var chatLog ChatLogModel
		if err := tx.Select("id", "comment_count").Where("id = ?", edge.ToID).Take(&chatLog).Error; err != nil {
			return unavailable(err)
		}

		if err := tx.Create(commentFromDomain(edge.ToID, chatLog.CommentCount, msg)).Error; err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return err
		}
		// Begin and commit failures come back from gorm unwrapped.
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = unavailable(err)
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to append chat message")
		return err
	}

	l.Debug().Str(log.FieldRoomID, roomID).Str(log.FieldMessageID, msg.ID).Msg("chat message appended")
	return nil
}

// ReadAll returns the room's messages, newest first.
func (s *GormChatStore) ReadAll(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	var edge ChatEdgeModel
	if err := s.db.WithContext(ctx).Where("from_key = ?", roomID).Take(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []domain.ChatMessage{}, nil
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to resolve chat log")
		return nil, unavailable(err)
	}

	var models []ChatCommentModel
	if err := s.db.WithContext(ctx).
		Where("chat_id = ?", edge.ToID).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to read chat messages")
		return nil, unavailable(err)
	}

	msgs := make([]domain.ChatMessage, len(models))
	for i := range models {
		msgs[i] = models[i].ToDomain()
	}
	return msgs, nil
}

// CreateChatLog provisions an empty chat log and its edge for the room.
func (s *GormChatStore) CreateChatLog(ctx context.Context, roomID string) (string, error) {
	l := log.Ctx(ctx)

	if id, err := s.chatIDFor(ctx, roomID); err == nil {
		return id, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", unavailable(err)
	}

	chatID := uuid.New().String()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ChatLogModel{ID: chatID}).Error; err != nil {
			return err
		}
		return tx.Create(&ChatEdgeModel{FromKey: roomID, ToID: chatID}).Error
	})
	if err != nil {
		// A concurrent provisioning call may have won the unique from_key.
		if id, lookupErr := s.chatIDFor(ctx, roomID); lookupErr == nil {
			return id, nil
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to create chat log")
		return "", unavailable(err)
	}

	l.Info().Str(log.FieldRoomID, roomID).Str("chat_id", chatID).Msg("chat log created")
	return chatID, nil
}

func (s *GormChatStore) chatIDFor(ctx context.Context, roomID string) (string, error) {
	var edge ChatEdgeModel
	if err := s.db.WithContext(ctx).Where("from_key = ?", roomID).Take(&edge).Error; err != nil {
		return "", err
	}
	return edge.ToID, nil
}

// Close releases the database connection pool.
func (s *GormChatStore) Close() error {
	return database.Close(s.db)
}
