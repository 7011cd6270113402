// Package chat implements the delivery engine: it persists messages, drives
// their delivery lifecycle, and fans both the message and each participant's
// refreshed conversation summary out to live connections.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/protocol"
	"chatlink/store/contact"
	"chatlink/store/message"
	"chatlink/store/user"
)

// Pusher delivers an envelope to a user's live connection, if any.
type Pusher interface {
	Send(userID int, v any) error
}

// ImageResolver resolves a user's profile image URL, "" when absent.
type ImageResolver interface {
	ImageURL(userID int) string
}

// Summary is one entry of a user's conversation list: a distinct partner
// with the latest message and unread count. It is derived on demand and
// never stored.
type Summary struct {
	PartnerID    int       `json:"friendId"`
	PartnerName  string    `json:"friendName"`
	LastMessage  string    `json:"lastMessage"`
	LastUpdated  time.Time `json:"lastTimeStamp"`
	UnreadCount  int       `json:"unreadCount"`
	ProfileImage string    `json:"profileImage"`
}

// Service routes messages between the persistence layer and live
// connections.
type Service struct {
	users    user.Store
	messages message.Store
	contacts contact.Store
	pusher   Pusher
	images   ImageResolver
	log      *zap.Logger
}

// NewService creates a Service.
func NewService(users user.Store, messages message.Store, contacts contact.Store,
	pusher Pusher, images ImageResolver, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		messages: messages,
		contacts: contacts,
		pusher:   pusher,
		images:   images,
		log:      log,
	}
}

// DeliverChat persists a message from fromID to toID with status SENT, then
// pushes the message and a rebuilt summary list to both participants. Pushes
// happen only after the message is durably stored; push failures never roll
// it back.
func (s *Service) DeliverChat(ctx context.Context, fromID, toID int, text string) (*message.Message, error) {
	if _, err := s.users.Get(ctx, fromID); err != nil {
		return nil, fmt.Errorf("resolve sender %d: %w", fromID, err)
	}
	if _, err := s.users.Get(ctx, toID); err != nil {
		return nil, fmt.Errorf("resolve recipient %d: %w", toID, err)
	}

	msg := &message.Message{FromID: fromID, ToID: toID, Text: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.log.Info("chat delivered",
		zap.Int("from", fromID), zap.Int("to", toID), zap.Int("messageId", msg.ID))

	s.fanOut(ctx, msg, protocol.Chat(msg))
	return msg, nil
}

// SaveNewChat persists a message from userID to friendID, creating the
// contact link on first exchange, then performs the same dual push as
// DeliverChat using the new_message envelope.
func (s *Service) SaveNewChat(ctx context.Context, userID, friendID int, text string) (*message.Message, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("resolve sender %d: %w", userID, err)
	}
	if _, err := s.users.Get(ctx, friendID); err != nil {
		return nil, fmt.Errorf("resolve recipient %d: %w", friendID, err)
	}

	if err := s.ensureContact(ctx, userID, friendID); err != nil {
		return nil, err
	}

	msg := &message.Message{FromID: userID, ToID: friendID, Text: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.log.Info("message saved",
		zap.Int("from", userID), zap.Int("to", friendID), zap.Int("messageId", msg.ID))

	s.fanOut(ctx, msg, protocol.NewMessage(msg))
	return msg, nil
}

func (s *Service) ensureContact(ctx context.Context, ownerID, contactID int) error {
	_, err := s.contacts.Get(ctx, ownerID, contactID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, contact.ErrLinkNotFound) {
		return fmt.Errorf("look up contact link: %w", err)
	}

	link := &contact.Link{OwnerID: ownerID, ContactID: contactID, Status: contact.StatusActive}
	if err := s.contacts.Create(ctx, link); err != nil && !errors.Is(err, contact.ErrLinkExists) {
		return fmt.Errorf("create contact link: %w", err)
	}

	s.log.Info("contact link created on first message",
		zap.Int("owner", ownerID), zap.Int("contact", contactID))
	return nil
}

// fanOut pushes env and a refreshed summary list to both participants. Live
// delivery is best-effort; failures are logged by the pusher and ignored.
func (s *Service) fanOut(ctx context.Context, msg *message.Message, env protocol.Envelope) {
	_ = s.pusher.Send(msg.ToID, env)
	_ = s.pusher.Send(msg.FromID, env)

	s.PushSummaries(ctx, msg.ToID)
	s.PushSummaries(ctx, msg.FromID)
}

// Summaries computes the conversation list for userID: one entry per
// distinct partner, in discovery order.
func (s *Service) Summaries(ctx context.Context, userID int) ([]Summary, error) {
	partners, err := s.messages.Partners(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat partners: %w", err)
	}

	summaries := make([]Summary, 0, len(partners))
	for _, partnerID := range partners {
		latest, err := s.messages.LatestBetween(ctx, userID, partnerID)
		if err != nil {
			if errors.Is(err, message.ErrMessageNotFound) {
				continue
			}
			s.log.Warn("skipping chat partner",
				zap.Int("userId", userID), zap.Int("partnerId", partnerID), zap.Error(err))
			continue
		}

		partner, err := s.users.Get(ctx, partnerID)
		if err != nil {
			s.log.Warn("skipping chat partner",
				zap.Int("userId", userID), zap.Int("partnerId", partnerID), zap.Error(err))
			continue
		}

		unread, err := s.messages.UnreadCount(ctx, userID, partnerID)
		if err != nil {
			s.log.Warn("counting unread messages failed",
				zap.Int("userId", userID), zap.Int("partnerId", partnerID), zap.Error(err))
			unread = 0
		}

		summaries = append(summaries, Summary{
			PartnerID:    partnerID,
			PartnerName:  partner.FullName(),
			LastMessage:  latest.Text,
			LastUpdated:  latest.UpdatedAt,
			UnreadCount:  unread,
			ProfileImage: s.images.ImageURL(partnerID),
		})
	}

	return summaries, nil
}

// PushSummaries rebuilds and pushes userID's conversation list. Errors are
// logged; a summary push is never worth failing the operation that caused it.
func (s *Service) PushSummaries(ctx context.Context, userID int) {
	summaries, err := s.Summaries(ctx, userID)
	if err != nil {
		s.log.Error("building conversation summaries failed",
			zap.Int("userId", userID), zap.Error(err))
		return
	}
	_ = s.pusher.Send(userID, protocol.FriendList(summaries))
}

// History returns the full message history between userID and friendID,
// oldest first, after marking every message from friendID to userID as READ.
// Messages from userID to friendID are untouched.
func (s *Service) History(ctx context.Context, userID, friendID int) ([]message.Message, error) {
	if _, err := s.messages.MarkRead(ctx, friendID, userID); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}

	history, err := s.messages.HistoryBetween(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return history, nil
}
