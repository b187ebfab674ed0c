package store

import (
	"time"

	"github.com/PapNorbert/WatchWise/internal/domain"
)

// ChatEdgeModel links a watch group to its chat log.
type ChatEdgeModel struct {
	FromKey   string `gorm:"primaryKey;size:191"`
	ToID      string `gorm:"size:36;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (ChatEdgeModel) TableName() string {
	return "his_group_chat"
}

// ChatLogModel is the chat log document. CommentCount doubles as the
// sequence counter for appended comments.
type ChatLogModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	CommentCount int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (ChatLogModel) TableName() string {
	return "watch_group_chats"
}

type ChatCommentModel struct {
	ID        string    `gorm:"primaryKey;size:26"`
	ChatID    string    `gorm:"size:36;not null;uniqueIndex:idx_chat_seq,priority:1"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_chat_seq,priority:2"`
	RoomID    string    `gorm:"size:191;not null"`
	Sender    string    `gorm:"size:400;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (ChatCommentModel) TableName() string {
	return "chat_comments"
}

// ToDomain converts a comment row to a ChatMessage.
func (m *ChatCommentModel) ToDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func commentFromDomain(chatID string, seq int64, msg *domain.ChatMessage) *ChatCommentModel {
	return &ChatCommentModel{
		ID:        msg.ID,
		ChatID:    chatID,
		Seq:       seq,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt.UTC(),
	}
}

// Models lists every table the gorm store needs.
func Models() []interface{} {
	return []interface{}{&ChatEdgeModel{}, &ChatLogModel{}, &ChatCommentModel{}}
}
