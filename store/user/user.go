package user

import (
	"context"
	"errors"
	"time"
)

// Status is a user's presence flag, driven by connection lifecycle.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
)

// User is a registered account.
type User struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CountryCode  string    `json:"countryCode"`
	ContactNo    string    `json:"contactNo"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName returns the display name used in conversation summaries.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateContactNo = errors.New("contact number already exists")
)

// Store defines user persistence operations.
type Store interface {
	Get(ctx context.Context, id int) (*User, error)
	GetByContactNo(ctx context.Context, contactNo string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u *User) error
	UpdateStatus(ctx context.Context, id int, status Status) error
}
