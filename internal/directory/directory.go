// Package directory answers the roster and contact-management side of the
// connection protocol: who is on the app, who the caller has as contacts,
// and individual profile lookups.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/protocol"
	"chatlink/store/contact"
	"chatlink/store/user"
)

// ImageResolver resolves a user's profile image URL, "" when absent.
type ImageResolver interface {
	ImageURL(userID int) string
}

// Profile is the wire representation of a user annotated with their profile
// image and, in roster listings, the caller's contact status for them.
type Profile struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CountryCode  string    `json:"countryCode"`
	ContactNo    string    `json:"contactNo"`
	Status       string    `json:"status"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Service provides roster and contact operations.
type Service struct {
	users    user.Store
	contacts contact.Store
	images   ImageResolver
	log      *zap.Logger
}

// NewService creates a Service.
func NewService(users user.Store, contacts contact.Store, images ImageResolver, log *zap.Logger) *Service {
	return &Service{users: users, contacts: contacts, images: images, log: log}
}

func (s *Service) profileOf(u *user.User) Profile {
	return Profile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CountryCode:  u.CountryCode,
		ContactNo:    u.ContactNo,
		Status:       string(u.Status),
		ProfileImage: s.images.ImageURL(u.ID),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Profile returns one user's profile.
func (s *Service) Profile(ctx context.Context, userID int) (*Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := s.profileOf(u)
	return &p, nil
}

// Roster lists every user on the app. Entries the caller already has as a
// non-blocked contact carry status ACTIVE instead of the user's presence.
func (s *Service) Roster(ctx context.Context, callerID int) ([]Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	roster := make([]Profile, 0, len(users))
	for i := range users {
		u := &users[i]
		p := s.profileOf(u)

		link, err := s.contacts.Get(ctx, callerID, u.ID)
		if err == nil && link.Status != contact.StatusBlocked {
			p.Status = string(contact.StatusActive)
		} else if err != nil && !errors.Is(err, contact.ErrLinkNotFound) {
			s.log.Warn("contact lookup failed",
				zap.Int("callerId", callerID), zap.Int("userId", u.ID), zap.Error(err))
		}

		roster = append(roster, p)
	}
	return roster, nil
}

// AddContact links the user with the given contact number into callerID's
// contact list. The outcome is always expressed as a ContactResult; only
// infrastructure failures surface as errors.
func (s *Service) AddContact(ctx context.Context, callerID int, contactNo, displayName string) (protocol.ContactResult, error) {
	friend, err := s.users.GetByContactNo(ctx, contactNo)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return protocol.ContactResult{Message: "This user is not on this app"}, nil
		}
		return protocol.ContactResult{}, fmt.Errorf("look up contact number: %w", err)
	}

	if _, err := s.contacts.Get(ctx, callerID, friend.ID); err == nil {
		return protocol.ContactResult{Message: "This user is already your friend"}, nil
	} else if !errors.Is(err, contact.ErrLinkNotFound) {
		return protocol.ContactResult{}, fmt.Errorf("look up contact link: %w", err)
	}

	link := &contact.Link{
		OwnerID:     callerID,
		ContactID:   friend.ID,
		DisplayName: displayName,
		Status:      contact.StatusActive,
	}
	if err := s.contacts.Create(ctx, link); err != nil {
		if errors.Is(err, contact.ErrLinkExists) {
			return protocol.ContactResult{Message: "This user is already your friend"}, nil
		}
		return protocol.ContactResult{}, fmt.Errorf("create contact link: %w", err)
	}

	s.log.Info("contact added",
		zap.Int("owner", callerID), zap.Int("contact", friend.ID))
	return protocol.ContactResult{ResponseStatus: true, Message: "User added as friend"}, nil
}
