package message

import (
	"context"
	"errors"
	"time"
)

// Status is the per-message delivery lifecycle. It only moves forward:
// SENT -> DELIVERED -> READ, though a message can be read before any
// delivery sweep runs and skip the visible DELIVERED step.
type Status string

const (
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
)

// Message is a single chat message between two users. Only Status and
// UpdatedAt change after creation.
type Message struct {
	ID        int       `json:"id"`
	FromID    int       `json:"fromId"`
	ToID      int       `json:"toId"`
	Text      string    `json:"message"`
	Files     string    `json:"files"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrMessageNotFound = errors.New("message not found")

// Store defines message persistence operations.
type Store interface {
	// Create persists a new message with status SENT and fills the
	// generated id.
	Create(ctx context.Context, m *Message) error
	// HistoryBetween returns every message exchanged between two users,
	// oldest first.
	HistoryBetween(ctx context.Context, userID, friendID int) ([]Message, error)
	// MarkRead flips all messages from fromID to toID that are not yet READ
	// and returns how many rows changed.
	MarkRead(ctx context.Context, fromID, toID int) (int, error)
	// MarkDelivered flips SENT messages from fromID to toID to DELIVERED
	// and returns how many rows changed.
	MarkDelivered(ctx context.Context, fromID, toID int) (int, error)
	// Partners returns the distinct ids of users that have exchanged at
	// least one message with userID: senders to userID first, then
	// recipients from userID, without duplicates.
	Partners(ctx context.Context, userID int) ([]int, error)
	// LatestBetween returns the most recently updated message between two
	// users.
	LatestBetween(ctx context.Context, userID, partnerID int) (*Message, error)
	// UnreadCount counts messages from partnerID to userID not yet READ.
	UnreadCount(ctx context.Context, userID, partnerID int) (int, error)
}
