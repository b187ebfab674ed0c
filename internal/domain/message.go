package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxSenderLength bounds the sender field in runes.
const MaxSenderLength = 100

// ChatMessage is a single committed chat entry. It is never mutated after
// the persister hands it out.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// SendPayload is the client-supplied part of a message.
type SendPayload struct {
	RoomID string `json:"room_id"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// Validate checks required fields and length limits. maxBody <= 0 disables
// the body limit.
func (p SendPayload) Validate(maxBody int) error {
	if strings.TrimSpace(p.RoomID) == "" {
		return fmt.Errorf("%w: room_id is required", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.Sender) == "" {
		return fmt.Errorf("%w: sender is required", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrMalformedPayload)
	}
	if utf8.RuneCountInString(p.Sender) > MaxSenderLength {
		return fmt.Errorf("%w: sender exceeds %d characters", ErrMalformedPayload, MaxSenderLength)
	}
	if maxBody > 0 && utf8.RuneCountInString(p.Body) > maxBody {
		return fmt.Errorf("%w: body exceeds %d characters", ErrMalformedPayload, maxBody)
	}
	return nil
}
