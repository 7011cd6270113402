// Package ws is the websocket connection endpoint: it owns the connection
// lifecycle and dispatches decoded envelopes to the chat, directory and
// presence services.
package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatlink/internal/chat"
	"chatlink/internal/directory"
	"chatlink/internal/presence"
	"chatlink/internal/protocol"
	"chatlink/internal/registry"
	"chatlink/store/user"
)

// Endpoint upgrades HTTP requests to chat connections and runs their read
// loops. Each connection gets its own goroutine; inbound envelopes on one
// connection are processed strictly in order.
type Endpoint struct {
	registry  *registry.Registry
	chats     *chat.Service
	directory *directory.Service
	presence  *presence.Updater
	users     user.Store
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

// NewEndpoint creates an Endpoint.
func NewEndpoint(reg *registry.Registry, chats *chat.Service, dir *directory.Service,
	pres *presence.Updater, users user.Store, log *zap.Logger) *Endpoint {
	return &Endpoint{
		registry:  reg,
		chats:     chats,
		directory: dir,
		presence:  pres,
		users:     users,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles a connect: it validates the identity in the query,
// upgrades, registers the session, flips presence, sweeps deliverable
// messages and pushes the initial conversation summary before entering the
// read loop.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("userId"))
	if err != nil || userID <= 0 {
		e.log.Warn("rejecting connect with invalid userId",
			zap.String("userId", r.URL.Query().Get("userId")))
		http.Error(w, "valid userId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("websocket upgrade failed", zap.Int("userId", userID), zap.Error(err))
		return
	}

	ctx := r.Context()
	e.open(ctx, userID, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Graceful close and transport errors end the loop the
			// same way; teardown is idempotent either way.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				e.log.Info("connection read ended", zap.Int("userId", userID), zap.Error(err))
			}
			break
		}
		e.dispatch(ctx, userID, data)
	}

	e.close(ctx, userID, conn)
}

func (e *Endpoint) open(ctx context.Context, userID int, conn *websocket.Conn) {
	if old := e.registry.Register(userID, conn); old != nil {
		e.log.Info("superseding previous connection", zap.Int("userId", userID))
	}

	if err := e.presence.Online(ctx, userID); err != nil {
		e.log.Error("presence update failed on connect", zap.Int("userId", userID), zap.Error(err))
	}
	if _, err := e.presence.SweepDelivered(ctx, userID); err != nil {
		e.log.Error("delivery sweep failed on connect", zap.Int("userId", userID), zap.Error(err))
	}

	e.chats.PushSummaries(ctx, userID)
	e.log.Info("user connected", zap.Int("userId", userID))
}

// close deregisters the session and flips presence OFFLINE. A second close
// for the same connection, or the close of a superseded connection, is a
// no-op: the registry only removes entries for the connection that owns
// them, and presence follows the registry's decision.
func (e *Endpoint) close(ctx context.Context, userID int, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	if !e.registry.Unregister(userID, conn) {
		return
	}

	if err := e.presence.Offline(ctx, userID); err != nil {
		e.log.Error("presence update failed on disconnect", zap.Int("userId", userID), zap.Error(err))
	}
	e.log.Info("user disconnected", zap.Int("userId", userID))
}

// dispatch decodes one inbound envelope and runs its effect. Malformed and
// unknown envelopes are dropped with a warning; the connection stays open.
func (e *Endpoint) dispatch(ctx context.Context, userID int, data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		e.log.Warn("dropping inbound envelope", zap.Int("userId", userID), zap.Error(err))
		return
	}

	switch m := in.(type) {
	case protocol.SendChat:
		if _, err := e.chats.DeliverChat(ctx, m.FromID, m.ToID, m.Text); err != nil {
			e.log.Error("deliver chat failed", zap.Int("userId", userID), zap.Error(err))
		}

	case protocol.SaveMessage:
		if _, err := e.chats.SaveNewChat(ctx, userID, m.ToID, m.Text); err != nil {
			e.log.Error("save message failed", zap.Int("userId", userID), zap.Error(err))
		}

	case protocol.ChatListRequest:
		e.chats.PushSummaries(ctx, userID)

	case protocol.SingleChatRequest:
		history, err := e.chats.History(ctx, userID, m.FriendID)
		if err != nil {
			e.log.Error("load single chat failed",
				zap.Int("userId", userID), zap.Int("friendId", m.FriendID), zap.Error(err))
			return
		}
		_ = e.registry.Send(userID, protocol.SingleChat(history))
		e.chats.PushSummaries(ctx, userID)

	case protocol.FriendDataRequest:
		p, err := e.directory.Profile(ctx, m.FriendID)
		if err != nil {
			if !errors.Is(err, user.ErrUserNotFound) {
				e.log.Error("load friend data failed",
					zap.Int("friendId", m.FriendID), zap.Error(err))
				return
			}
			_ = e.registry.Send(userID, protocol.FriendData(nil))
			return
		}
		_ = e.registry.Send(userID, protocol.FriendData(p))

	case protocol.AllUsersRequest:
		roster, err := e.directory.Roster(ctx, userID)
		if err != nil {
			e.log.Error("load roster failed", zap.Int("userId", userID), zap.Error(err))
			return
		}
		_ = e.registry.Send(userID, protocol.AllUsers(roster))

	case protocol.NewContact:
		result, err := e.directory.AddContact(ctx, userID, m.ContactNo, m.DisplayName)
		if err != nil {
			e.log.Error("save contact failed", zap.Int("userId", userID), zap.Error(err))
			return
		}
		_ = e.registry.Send(userID, protocol.ContactResponse(result))

	case protocol.ProfileRequest:
		p, err := e.directory.Profile(ctx, userID)
		if err != nil {
			e.log.Error("load own profile failed", zap.Int("userId", userID), zap.Error(err))
			return
		}
		_ = e.registry.Send(userID, protocol.UserProfile(p))

	case protocol.Ping:
		_ = e.registry.Send(userID, protocol.Pong())
	}
}
