package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"friendchat/internal/app/archive"
	"friendchat/internal/app/chat"
	"friendchat/internal/app/identity"
	"friendchat/internal/configs"
)

// memUserStore is an in-memory identity.Store so the full event surface can be
// exercised over a real websocket without PostgreSQL.
type memUserStore struct {
	mu     sync.Mutex
	byName map[string]*identity.User
	byCode map[string]*identity.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byName: make(map[string]*identity.User),
		byCode: make(map[string]*identity.User),
	}
}

func (s *memUserStore) GetUserByName(_ context.Context, name string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byName[name]; ok {
		return user, nil
	}
	return nil, identity.ErrNotFound
}

func (s *memUserStore) GetUserByInviteCode(_ context.Context, code string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byCode[code]; ok {
		return user, nil
	}
	return nil, identity.ErrNotFound
}

func (s *memUserStore) CreateUser(_ context.Context, name string, inviteCode string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return nil, &identity.ConflictError{Field: identity.FieldName}
	}
	if _, ok := s.byCode[inviteCode]; ok {
		return nil, &identity.ConflictError{Field: identity.FieldInviteCode}
	}

	user := &identity.User{ID: uuid.New(), Name: name, InviteCode: inviteCode, CreatedAt: time.Now()}
	s.byName[name] = user
	s.byCode[inviteCode] = user
	return user, nil
}

// memMessageStore is an in-memory archive.Store.
type memMessageStore struct {
	mu       sync.Mutex
	messages []archive.Message
	nextID   int64
}

func (s *memMessageStore) InsertMessage(_ context.Context, msg archive.Message) (archive.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *memMessageStore) RecentMessages(_ context.Context, limit int) ([]archive.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.messages) - limit
	if start < 0 {
		start = 0
	}
	return append([]archive.Message(nil), s.messages[start:]...), nil
}

// wsEvent mirrors the outbound frame with an undecoded payload.
type wsEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsMessage struct {
	User string    `json:"user"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type wsLoginResult struct {
	User *struct {
		Name       string `json:"name"`
		InviteCode string `json:"inviteCode"`
	} `json:"user"`
	Inviter *string `json:"inviter"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hub := chat.NewHub()
	t.Cleanup(hub.Shutdown)

	deps := &AppDeps{
		Hub:      hub,
		Config:   &configs.AppConfig{Environment: "development", PublicDir: t.TempDir(), HistoryLimit: 100},
		Registry: identity.NewRegistry(newMemUserStore()),
		Archive:  archive.NewArchive(&memMessageStore{}, 100),
	}

	server := httptest.NewServer(Router(deps))
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var event wsEvent
	require.NoError(t, json.Unmarshal(frame, &event))
	return event
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()

	event := readEvent(t, conn)
	require.Equal(t, "message", event.Type)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(event.Payload, &msg))
	return msg
}

func readLoginResult(t *testing.T, conn *websocket.Conn) wsLoginResult {
	t.Helper()

	event := readEvent(t, conn)
	require.Equal(t, "loginResult", event.Type)

	var result wsLoginResult
	require.NoError(t, json.Unmarshal(event.Payload, &result))
	return result
}

func TestWebSocket_FullChatFlow(t *testing.T) {
	req := require.New(t)
	server := startTestServer(t)

	// Alice logs in without an invite code.
	alice := dialWS(t, server)
	sendEvent(t, alice, `{"type":"login","payload":{"name":"Alice"}}`)

	aliceResult := readLoginResult(t, alice)
	req.Nil(aliceResult.Error)
	req.Equal("Alice", aliceResult.User.Name)
	req.Len(aliceResult.User.InviteCode, 6)
	req.Nil(aliceResult.Inviter)

	arrival := readMessage(t, alice)
	req.Equal("系統", arrival.User)
	req.Equal("歡迎 Alice 加入聊天室！", arrival.Text)

	// Bob joins with Alice's invite code.
	bob := dialWS(t, server)
	sendEvent(t, bob, `{"type":"login","payload":{"name":"Bob","inviteCode":"`+aliceResult.User.InviteCode+`"}}`)

	bobResult := readLoginResult(t, bob)
	req.Nil(bobResult.Error)
	req.Equal("Bob", bobResult.User.Name)
	req.NotNil(bobResult.Inviter)
	req.Equal("Alice", *bobResult.Inviter)

	req.Equal("歡迎 Bob 加入聊天室！", readMessage(t, bob).Text)
	req.Equal("歡迎 Bob 加入聊天室！", readMessage(t, alice).Text)

	// Bob sends a message; every session receives it.
	sendEvent(t, bob, `{"type":"sendMessage","payload":{"user":"Bob","text":"hello everyone"}}`)

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readMessage(t, conn)
		req.Equal("Bob", msg.User)
		req.Equal("hello everyone", msg.Text)
		req.False(msg.Time.IsZero())
	}

	// A third, anonymous session sees the archived message in history replay.
	observer := dialWS(t, server)
	sendEvent(t, observer, `{"type":"loadMessages"}`)

	historyEvent := readEvent(t, observer)
	req.Equal("loadMessages", historyEvent.Type)

	var history []wsMessage
	req.NoError(json.Unmarshal(historyEvent.Payload, &history))
	req.Len(history, 1)
	req.Equal("Bob", history[0].User)
	req.Equal("hello everyone", history[0].Text)

	// Bob disconnects; Alice sees exactly one departure announcement.
	req.NoError(bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	bob.Close()

	departure := readMessage(t, alice)
	req.Equal("系統", departure.User)
	req.Equal("Bob 已離開聊天室", departure.Text)
}

func TestWebSocket_LoginWithUnknownInviteCode(t *testing.T) {
	req := require.New(t)
	server := startTestServer(t)

	alice := dialWS(t, server)
	sendEvent(t, alice, `{"type":"login","payload":{"name":"Alice"}}`)
	readLoginResult(t, alice)
	readMessage(t, alice) // Alice's own arrival

	stranger := dialWS(t, server)
	sendEvent(t, stranger, `{"type":"login","payload":{"name":"Mallory","inviteCode":"ZZ99ZZ"}}`)

	result := readLoginResult(t, stranger)
	req.NotNil(result.Error)
	req.Nil(result.User)

	// The failed login broadcasts nothing; Alice's next frame must not be an
	// arrival for Mallory. Closing the stranger's anonymous session must not
	// produce a departure either.
	stranger.Close()

	sendEvent(t, alice, `{"type":"sendMessage","payload":{"user":"Alice","text":"ping"}}`)
	msg := readMessage(t, alice)
	req.Equal("Alice", msg.User)
	req.Equal("ping", msg.Text)
}

func TestWebSocket_GetInviteCodeLifecycle(t *testing.T) {
	req := require.New(t)
	server := startTestServer(t)

	conn := dialWS(t, server)

	// Anonymous sessions get an error token.
	sendEvent(t, conn, `{"type":"getInviteCode"}`)
	event := readEvent(t, conn)
	req.Equal("getInviteCode", event.Type)

	var reply struct {
		InviteCode string `json:"inviteCode"`
		Error      *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	req.NoError(json.Unmarshal(event.Payload, &reply))
	req.NotNil(reply.Error)

	// After login the session's own code comes back.
	sendEvent(t, conn, `{"type":"login","payload":{"name":"Alice"}}`)
	result := readLoginResult(t, conn)
	readMessage(t, conn) // arrival

	sendEvent(t, conn, `{"type":"getInviteCode"}`)
	event = readEvent(t, conn)
	reply.Error = nil
	req.NoError(json.Unmarshal(event.Payload, &reply))
	req.Nil(reply.Error)
	req.Equal(result.User.InviteCode, reply.InviteCode)
}

func TestHealthEndpoint(t *testing.T) {
	req := require.New(t)
	server := startTestServer(t)

	res, err := server.Client().Get(server.URL + "/health")
	req.NoError(err)
	defer res.Body.Close()

	req.Equal(200, res.StatusCode)
}
