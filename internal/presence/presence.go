// Package presence flips users' online flags with connection lifecycle and
// reconciles messages that became deliverable when their recipient came
// back.
package presence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chatlink/store/contact"
	"chatlink/store/message"
	"chatlink/store/user"
)

// Updater maintains user presence and the reconnect delivery sweep.
type Updater struct {
	users    user.Store
	contacts contact.Store
	messages message.Store
	log      *zap.Logger
}

// NewUpdater creates an Updater.
func NewUpdater(users user.Store, contacts contact.Store, messages message.Store, log *zap.Logger) *Updater {
	return &Updater{users: users, contacts: contacts, messages: messages, log: log}
}

// Online marks userID ONLINE. The returned error is informational: callers
// must not let a presence failure stop a connection from opening.
func (u *Updater) Online(ctx context.Context, userID int) error {
	if err := u.users.UpdateStatus(ctx, userID, user.StatusOnline); err != nil {
		return fmt.Errorf("set user %d online: %w", userID, err)
	}
	u.log.Info("user online", zap.Int("userId", userID))
	return nil
}

// Offline marks userID OFFLINE. Same contract as Online: the connection
// close must complete whether or not this succeeds.
func (u *Updater) Offline(ctx context.Context, userID int) error {
	if err := u.users.UpdateStatus(ctx, userID, user.StatusOffline); err != nil {
		return fmt.Errorf("set user %d offline: %w", userID, err)
	}
	u.log.Info("user offline", zap.Int("userId", userID))
	return nil
}

// SweepDelivered flips to DELIVERED every SENT message addressed to userID
// from one of their ACTIVE contacts, provided userID is ONLINE. This is how
// a reconnecting user's backlog becomes delivered without the senders
// resending. Returns how many messages changed.
func (u *Updater) SweepDelivered(ctx context.Context, userID int) (int, error) {
	owner, err := u.users.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user %d: %w", userID, err)
	}
	if owner.Status != user.StatusOnline {
		return 0, nil
	}

	links, err := u.contacts.ListActiveByOwner(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list contacts of user %d: %w", userID, err)
	}

	total := 0
	for _, link := range links {
		n, err := u.messages.MarkDelivered(ctx, link.ContactID, userID)
		if err != nil {
			u.log.Warn("delivery sweep failed for contact",
				zap.Int("userId", userID), zap.Int("contactId", link.ContactID), zap.Error(err))
			continue
		}
		total += n
	}

	if total > 0 {
		u.log.Info("delivery sweep completed",
			zap.Int("userId", userID), zap.Int("delivered", total))
	}
	return total, nil
}
