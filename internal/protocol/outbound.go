package protocol

// Envelope is the shape of every server push: a type tag plus payload.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Outbound envelope types.
const (
	TypeChat            string = "chat"
	TypeNewMessage      string = "new_message"
	TypeFriendList      string = "friend_list"
	TypeSingleChat      string = "single_chat"
	TypeFriendData      string = "friend_data"
	TypeAllUsers        string = "get_all_users"
	TypeContactResponse string = "new_contact_response_text"
	TypeUserProfile     string = "user_profile"
	TypePong            string = "PONG"
)

func Chat(payload any) Envelope        { return Envelope{Type: TypeChat, Payload: payload} }
func NewMessage(payload any) Envelope  { return Envelope{Type: TypeNewMessage, Payload: payload} }
func FriendList(payload any) Envelope  { return Envelope{Type: TypeFriendList, Payload: payload} }
func SingleChat(payload any) Envelope  { return Envelope{Type: TypeSingleChat, Payload: payload} }
func FriendData(payload any) Envelope  { return Envelope{Type: TypeFriendData, Payload: payload} }
func AllUsers(payload any) Envelope    { return Envelope{Type: TypeAllUsers, Payload: payload} }
func UserProfile(payload any) Envelope { return Envelope{Type: TypeUserProfile, Payload: payload} }
func Pong() Envelope                   { return Envelope{Type: TypePong, Payload: "PONG"} }

// ContactResult is the payload pushed back after save_new_contact.
type ContactResult struct {
	ResponseStatus bool   `json:"responseStatus"`
	Message        string `json:"message"`
}

func ContactResponse(result ContactResult) Envelope {
	return Envelope{Type: TypeContactResponse, Payload: result}
}
