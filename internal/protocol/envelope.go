// Package protocol defines the typed JSON envelopes exchanged over a chat
// connection. Inbound envelopes are decoded once at the boundary into a
// closed set of variants; anything with an unknown or missing type tag is
// rejected there and never reaches dispatch.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMissingType = errors.New("envelope has no type")
	ErrUnknownType = errors.New("unknown envelope type")
)

// IntValue decodes a JSON number or a numeric string into an int. Clients
// are inconsistent about quoting ids, so both forms are accepted; anything
// else fails the decode of that one envelope.
type IntValue int

func (n *IntValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" || s == "" {
		return fmt.Errorf("not a number: %s", data)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = IntValue(v)
	return nil
}

// Inbound is one decoded client envelope.
type Inbound interface {
	inbound()
}

// SendChat asks the server to deliver a message between two users.
type SendChat struct {
	FromID int
	ToID   int
	Text   string
}

// SaveMessage asks the server to persist and notify a message from the
// connection's user, creating the contact link on first exchange.
type SaveMessage struct {
	ToID int
	Text string
}

// ChatListRequest asks for the caller's conversation summary list.
type ChatListRequest struct{}

// SingleChatRequest asks for the full history with one partner.
type SingleChatRequest struct {
	FriendID int
}

// FriendDataRequest asks for one partner's stored profile.
type FriendDataRequest struct {
	FriendID int
}

// AllUsersRequest asks for the full user roster.
type AllUsersRequest struct{}

// NewContact asks to add a user, found by contact number, to the caller's
// contact list.
type NewContact struct {
	ContactNo   string
	DisplayName string
}

// ProfileRequest asks for the caller's own profile.
type ProfileRequest struct{}

// Ping is a liveness probe.
type Ping struct{}

func (SendChat) inbound()          {}
func (SaveMessage) inbound()       {}
func (ChatListRequest) inbound()   {}
func (SingleChatRequest) inbound() {}
func (FriendDataRequest) inbound() {}
func (AllUsersRequest) inbound()   {}
func (NewContact) inbound()        {}
func (ProfileRequest) inbound()    {}
func (Ping) inbound()              {}

type rawContact struct {
	ContactNo   string `json:"contactNo"`
	DisplayName string `json:"displayName"`
}

type rawEnvelope struct {
	Type     *string     `json:"type"`
	FromID   *IntValue   `json:"fromId"`
	ToID     *IntValue   `json:"toId"`
	ToUserID *IntValue   `json:"toUserId"`
	FriendID *IntValue   `json:"friendId"`
	Message  string      `json:"message"`
	User     *rawContact `json:"user"`
}

// Decode parses one inbound envelope. Unknown and missing types come back as
// ErrUnknownType/ErrMissingType so the caller can drop the envelope without
// tearing down the connection.
func Decode(data []byte) (Inbound, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Type == nil || *raw.Type == "" {
		return nil, ErrMissingType
	}

	switch *raw.Type {
	case "send_chat":
		if raw.FromID == nil || raw.ToID == nil {
			return nil, errors.New("send_chat: missing fromId or toId")
		}
		return SendChat{FromID: int(*raw.FromID), ToID: int(*raw.ToID), Text: raw.Message}, nil

	case "send_message":
		if raw.ToUserID == nil {
			return nil, errors.New("send_message: missing toUserId")
		}
		return SaveMessage{ToID: int(*raw.ToUserID), Text: raw.Message}, nil

	case "get_chat_list":
		return ChatListRequest{}, nil

	case "get_single_chat":
		if raw.FriendID == nil {
			return nil, errors.New("get_single_chat: missing friendId")
		}
		return SingleChatRequest{FriendID: int(*raw.FriendID)}, nil

	case "friend_data":
		if raw.FriendID == nil {
			return nil, errors.New("friend_data: missing friendId")
		}
		return FriendDataRequest{FriendID: int(*raw.FriendID)}, nil

	case "get_all_users":
		return AllUsersRequest{}, nil

	case "save_new_contact":
		if raw.User == nil {
			return nil, errors.New("save_new_contact: missing user")
		}
		return NewContact{ContactNo: raw.User.ContactNo, DisplayName: raw.User.DisplayName}, nil

	case "use_user_profile":
		return ProfileRequest{}, nil

	case "ping":
		return Ping{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *raw.Type)
	}
}
