package contact

import (
	"context"
	"errors"
)

// Status of a contact link.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
)

// Link is a directed contact relationship: the owner has the contact in
// their list. A link from A to B does not imply one from B to A.
type Link struct {
	ID          int    `json:"id"`
	OwnerID     int    `json:"ownerId"`
	ContactID   int    `json:"contactId"`
	DisplayName string `json:"displayName"`
	Status      Status `json:"status"`
}

var (
	ErrLinkNotFound = errors.New("contact link not found")
	ErrLinkExists   = errors.New("contact link already exists")
)

// Store defines contact-link persistence operations.
type Store interface {
	Get(ctx context.Context, ownerID, contactID int) (*Link, error)
	Create(ctx context.Context, l *Link) error
	ListActiveByOwner(ctx context.Context, ownerID int) ([]Link, error)
}
