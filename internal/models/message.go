package models

import (
	"strings"
	"time"
)

// TempIDPrefix marks client-generated ids for not-yet-confirmed sends.
// The server never issues ids with this prefix.
const TempIDPrefix = "temp-"

// MessageStatus is the delivery state of a message from the viewer's side.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses so merges can refuse regressions (read never drops
// back to delivered, nothing drops back to sending).
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return -1
	}
}

// Message represents a chat message.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Body           string        `json:"body"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
	EditedAt       *time.Time    `json:"edited_at,omitempty"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
	ReplyToID      string        `json:"reply_to_id,omitempty"`
	Status         MessageStatus `json:"status,omitempty"`
	Reactions      []Reaction    `json:"reactions,omitempty"`
}

// IsTemp reports whether the message still carries a client-generated id.
func (m Message) IsTemp() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// IsDeleted reports whether the message has been soft-deleted.
func (m Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// WithDerivedStatus fills Status for records loaded from the server, which
// carry read receipts instead of a client-local status.
func (m Message) WithDerivedStatus() Message {
	if m.Status != "" {
		return m
	}
	if m.ReadAt != nil {
		m.Status = StatusRead
	} else {
		m.Status = StatusDelivered
	}
	return m
}

// Reaction is a single (emoji, user) pair embedded in a message. A user
// contributes at most one entry per emoji.
type Reaction struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"user_id"`
}
