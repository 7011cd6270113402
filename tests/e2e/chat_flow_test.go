package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func serverAddr() string {
	if v := os.Getenv("TEST_SERVER_ADDR"); v != "" {
		return v
	}
	return "http://localhost:8081"
}

func wsAddr(userID int) string {
	return "ws" + strings.TrimPrefix(serverAddr(), "http") + fmt.Sprintf("/ws?userId=%d", userID)
}

// registerUser creates a fresh account and returns its id. Contact numbers
// embed a timestamp so reruns against a persistent database don't collide.
func registerUser(t *testing.T, firstName, lastName, contactNo string) int {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"firstName":   firstName,
		"lastName":    lastName,
		"countryCode": "+94",
		"contactNo":   contactNo,
		"password":    "secret123",
	})
	resp, err := http.Post(serverAddr()+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	if out.ID <= 0 {
		t.Fatalf("register returned invalid id %d", out.ID)
	}
	return out.ID
}

func login(t *testing.T, contactNo, password string) (string, int) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"contactNo": contactNo,
		"password":  password,
	})
	resp, err := http.Post(serverAddr()+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Token  string `json:"token"`
		UserID int    `json:"userId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("login returned empty token")
	}
	return out.Token, out.UserID
}

func dialWS(t *testing.T, userID int) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsAddr(userID), nil)
	if err != nil {
		t.Fatalf("websocket dial for user %d failed: %v", userID, err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// uploadProfileImage posts a small image for the authenticated user and
// verifies the returned URL serves the same bytes back.
func uploadProfileImage(t *testing.T, token string) {
	t.Helper()

	content := []byte("\x89PNG\r\n\x1a\ne2e-test-image")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("profileImage", "avatar.png")
	if err != nil {
		t.Fatalf("creating multipart field: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing multipart field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverAddr()+"/api/profile-image", &buf)
	if err != nil {
		t.Fatalf("building upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("profile image upload failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile image upload: expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		ProfileImage string `json:"profileImage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	if out.ProfileImage == "" {
		t.Fatal("upload returned empty profileImage URL")
	}

	imgResp, err := http.Get(out.ProfileImage)
	if err != nil {
		t.Fatalf("fetching uploaded image: %v", err)
	}
	defer func() {
		_ = imgResp.Body.Close()
	}()
	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("fetching uploaded image: expected 200, got %d", imgResp.StatusCode)
	}
	got, err := io.ReadAll(imgResp.Body)
	if err != nil {
		t.Fatalf("reading uploaded image: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("served image does not match the uploaded bytes")
	}
}

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readWSUntil(t *testing.T, conn *websocket.Conn, wantType string) wsEnvelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %q envelope: %v", wantType, err)
		}
		if env.Type == wantType {
			return env
		}
	}
}

func TestRegisterLoginAndChatFlow(t *testing.T) {
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	contactA := "77a" + suffix
	contactB := "77b" + suffix

	idA := registerUser(t, "Amara", "Perera", contactA)
	idB := registerUser(t, "Bimal", "Silva", contactB)

	// Duplicate registration is rejected.
	body, _ := json.Marshal(map[string]string{
		"firstName":   "Amara",
		"lastName":    "Perera",
		"countryCode": "+94",
		"contactNo":   contactA,
		"password":    "secret123",
	})
	resp, err := http.Post(serverAddr()+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("duplicate register request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	token, loginID := login(t, contactA, "secret123")
	if loginID != idA {
		t.Fatalf("login returned userId %d, registered as %d", loginID, idA)
	}

	uploadProfileImage(t, token)

	// Both users connect; each gets an initial (empty) summary push.
	connA := dialWS(t, idA)
	readWSUntil(t, connA, "friend_list")
	connB := dialWS(t, idB)
	readWSUntil(t, connB, "friend_list")

	// A adds B as a contact.
	addContact := fmt.Sprintf(
		`{"type":"save_new_contact","user":{"contactNo":%q,"displayName":"Bimal"}}`, contactB)
	if err := connA.WriteMessage(websocket.TextMessage, []byte(addContact)); err != nil {
		t.Fatalf("sending save_new_contact: %v", err)
	}
	contactResp := readWSUntil(t, connA, "new_contact_response_text")
	var result struct {
		ResponseStatus bool   `json:"responseStatus"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(contactResp.Payload, &result); err != nil {
		t.Fatalf("decoding contact response: %v", err)
	}
	if !result.ResponseStatus {
		t.Fatalf("adding contact failed: %s", result.Message)
	}

	// A sends B a message; B receives the live push.
	sendChat := fmt.Sprintf(
		`{"type":"send_chat","fromId":%d,"toId":%d,"message":"hello from e2e"}`, idA, idB)
	if err := connA.WriteMessage(websocket.TextMessage, []byte(sendChat)); err != nil {
		t.Fatalf("sending send_chat: %v", err)
	}

	chatEnv := readWSUntil(t, connB, "chat")
	var pushed struct {
		FromID int    `json:"fromId"`
		ToID   int    `json:"toId"`
		Text   string `json:"message"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(chatEnv.Payload, &pushed); err != nil {
		t.Fatalf("decoding chat push: %v", err)
	}
	if pushed.FromID != idA || pushed.ToID != idB || pushed.Text != "hello from e2e" {
		t.Fatalf("unexpected chat push: %+v", pushed)
	}
	if pushed.Status != "SENT" {
		t.Fatalf("expected SENT status on fresh message, got %q", pushed.Status)
	}

	// B's refreshed summary lists A with one unread message.
	listEnv := readWSUntil(t, connB, "friend_list")
	var summaries []struct {
		FriendID    int    `json:"friendId"`
		LastMessage string `json:"lastMessage"`
		UnreadCount int    `json:"unreadCount"`
	}
	if err := json.Unmarshal(listEnv.Payload, &summaries); err != nil {
		t.Fatalf("decoding summary list: %v", err)
	}
	found := false
	for _, s := range summaries {
		if s.FriendID == idA {
			found = true
			if s.UnreadCount != 1 {
				t.Fatalf("expected 1 unread from A, got %d", s.UnreadCount)
			}
			if s.LastMessage != "hello from e2e" {
				t.Fatalf("unexpected lastMessage %q", s.LastMessage)
			}
		}
	}
	if !found {
		t.Fatal("summary list does not mention A")
	}

	// B opens the conversation; messages flip to READ.
	getChat := fmt.Sprintf(`{"type":"get_single_chat","friendId":%d}`, idA)
	if err := connB.WriteMessage(websocket.TextMessage, []byte(getChat)); err != nil {
		t.Fatalf("sending get_single_chat: %v", err)
	}
	historyEnv := readWSUntil(t, connB, "single_chat")
	var history []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(historyEnv.Payload, &history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 message in history, got %d", len(history))
	}
	if history[0].Status != "READ" {
		t.Fatalf("expected READ after opening the chat, got %q", history[0].Status)
	}

	// Ping keepalive.
	if err := connA.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("sending ping: %v", err)
	}
	pong := readWSUntil(t, connA, "PONG")
	if string(pong.Payload) != `"PONG"` {
		t.Fatalf("unexpected pong payload %s", pong.Payload)
	}
}

func TestUserLookupReflectsPresence(t *testing.T) {
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	contactNo := "77c" + suffix
	id := registerUser(t, "Chatura", "Fernando", contactNo)

	conn := dialWS(t, id)
	readWSUntil(t, conn, "friend_list")

	resp, err := http.Get(fmt.Sprintf("%s/api/users/%d", serverAddr(), id))
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("user lookup: expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding user response: %v", err)
	}
	if out.ID != id {
		t.Fatalf("expected id %d, got %d", id, out.ID)
	}
	if out.Status != "ONLINE" {
		t.Fatalf("expected ONLINE while connected, got %q", out.Status)
	}
}
