/*
Package chat contains the core logic for handling live sessions and message broadcasting.

This file defines the Session struct, the runtime state bound to one live websocket
connection. A session starts anonymous, may hold at most one resolved identity after a
successful login, and is destroyed on disconnect. It manages the read/write pumps and
dispatches every inbound event to the identity registry, the archive, or the hub.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"friendchat/internal/app/archive"
	"friendchat/internal/app/identity"
	"friendchat/internal/pkg/errs"
	"friendchat/internal/pkg/logx"
	"friendchat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 4096

	// MaxTextBytes is the maximum allowed size (in bytes) for message text.
	MaxTextBytes = 2000

	// maxNameRunes bounds the display name accepted at login.
	maxNameRunes = 32

	// sendQueueSize is the per-session buffered frame queue capacity.
	sendQueueSize = 256
)

// IdentityRegistry is the identity contract the session depends on.
type IdentityRegistry interface {
	ResolveOrCreate(ctx context.Context, name string) (*identity.User, error)
	ValidateInviteCode(ctx context.Context, code string) (*identity.User, error)
}

// MessageArchive is the archive contract the session depends on.
type MessageArchive interface {
	Append(ctx context.Context, user string, text string, sentAt time.Time) (archive.Message, error)
	Recent(ctx context.Context, limit int) ([]archive.Message, error)
}

// Session represents one live connection and its login state machine.
// The user reference is read and written only from the session's own read pump
// goroutine; the identity itself is owned by the registry and outlives the session.
type Session struct {
	// id identifies the session in logs; it is never a user identity.
	id string

	// hub is the broadcast fanout this session is registered with.
	hub *Hub

	// conn is the underlying WebSocket connection.
	conn *websocket.Conn

	registry     IdentityRegistry
	archive      MessageArchive
	historyLimit int

	// user is nil while the session is anonymous.
	user *identity.User

	// send is the buffered queue of frames waiting for the write pump.
	send chan []byte

	// sendMu guards send against enqueue-after-close.
	sendMu     sync.Mutex
	sendClosed bool

	// structured logger with session context.
	logger zerolog.Logger
}

// NewSession constructs a Session for an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn, registry IdentityRegistry, msgArchive MessageArchive, historyLimit int) *Session {
	id := randx.MessageID()

	return &Session{
		id:           id,
		hub:          hub,
		conn:         conn,
		registry:     registry,
		archive:      msgArchive,
		historyLimit: historyLimit,
		send:         make(chan []byte, sendQueueSize),
		logger:       logx.Logger().With().Str("session_id", id).Logger(),
	}
}

// enqueue attempts a non-blocking delivery of one frame into the send queue.
// Returns false when the queue is full or already closed.
func (s *Session) enqueue(frame []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue exactly once, terminating the write pump.
func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), event dispatch, and performs cleanup upon
// connection closure. Persistence awaits happen on this goroutine, so one
// session's pending store operation never blocks another session's progress.
func (s *Session) ReadPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.handleEvent(context.Background(), frame)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the session's
// ReadPump terminates. An authenticated session announces its departure exactly
// once; a session that never authenticated announces nothing.
func (s *Session) cleanupOnDisconnect() {
	s.logger.Info().Msg("Session cleanup starting.")

	if s.user != nil {
		s.announceDeparture()
		s.user = nil
	}

	s.hub.Unregister(s)

	if err := s.conn.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Session connection close error")
	}
}

// handleEvent decodes one inbound frame and dispatches it to the matching handler.
func (s *Session) handleEvent(ctx context.Context, frame []byte) {
	envelope, err := DecodeEnvelope(frame)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid JSON frame")
		return
	}

	switch envelope.Type {
	case EventLogin:
		s.handleLogin(ctx, envelope.Payload)

	case EventSendMessage:
		s.handleSendMessage(ctx, envelope.Payload)

	case EventLoadMessages:
		s.handleLoadMessages(ctx)

	case EventGetInviteCode:
		s.handleGetInviteCode()

	case EventLogout:
		s.handleLogout()

	default:
		s.logger.Warn().Str("event_type", string(envelope.Type)).Msg("Session sent unsupported event type")
	}
}

// handleLogin resolves or creates the identity for the given name, validates
// any supplied invite code, attaches the identity to the session, replies with
// the login result, and broadcasts the system arrival message. On any failure
// the session stays anonymous and only the requester learns about the error.
func (s *Session) handleLogin(ctx context.Context, payload json.RawMessage) {
	var login LoginPayload
	if err := json.Unmarshal(payload, &login); err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid login payload")
		s.replyLoginError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	name := strings.TrimSpace(login.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		s.replyLoginError(errs.NewError(errs.ErrNameInvalid))
		return
	}
	if name == SystemSender {
		s.replyLoginError(errs.NewError(errs.ErrNameReserved))
		return
	}

	var inviter *identity.User
	if login.InviteCode != "" {
		var err error
		inviter, err = s.registry.ValidateInviteCode(ctx, login.InviteCode)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				s.replyLoginError(errs.NewError(errs.ErrInvalidInviteCode))
				return
			}

			s.logger.Error().Err(err).Msg("Invite code lookup failed")
			s.replyLoginError(errs.NewError(errs.ErrUnknown))
			return
		}
	}

	user, err := s.registry.ResolveOrCreate(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("Login failed resolving user")
		s.replyLoginError(errs.NewError(errs.ErrUnknown))
		return
	}

	s.user = user

	var inviterName *string
	if inviter != nil {
		inviterName = &inviter.Name
	}

	s.reply(EventLoginResult, LoginResultPayload{
		User: &UserInfo{
			Name:       user.Name,
			InviteCode: user.InviteCode,
		},
		Inviter: inviterName,
	})

	s.hub.BroadcastEvent(EventMessage, MessagePayload{
		User: SystemSender,
		Text: fmt.Sprintf(arrivalTextFormat, user.Name),
		Time: time.Now(),
	})
}

// handleSendMessage archives one message and broadcasts it to all sessions.
// The event is one-way: every failure is reported to the operator log only,
// and an archive failure suppresses the broadcast.
func (s *Session) handleSendMessage(ctx context.Context, payload json.RawMessage) {
	var send SendMessagePayload
	if err := json.Unmarshal(payload, &send); err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid sendMessage payload")
		return
	}

	if strings.TrimSpace(send.Text) == "" {
		s.logger.Warn().Str("user", send.User).Msg("Dropping empty message")
		return
	}
	if len(send.Text) > MaxTextBytes {
		s.logger.Warn().Str("user", send.User).Int("bytes", len(send.Text)).Msg("Dropping oversized message")
		return
	}

	msg, err := s.archive.Append(ctx, send.User, send.Text, time.Time{})
	if err != nil {
		s.logger.Error().Err(err).Str("user", send.User).Msg("Failed to archive message, broadcast suppressed")
		return
	}

	s.hub.BroadcastEvent(EventMessage, MessagePayload{
		User: msg.User,
		Text: msg.Text,
		Time: msg.Time,
	})
}

// handleLoadMessages replays recent history to the requesting session only.
func (s *Session) handleLoadMessages(ctx context.Context) {
	messages, err := s.archive.Recent(ctx, s.historyLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load message history")
		return
	}

	if messages == nil {
		messages = []archive.Message{}
	}

	s.reply(EventLoadMessages, messages)
}

// handleGetInviteCode replies with the session user's invite code, or a
// NotAuthenticated error token while the session is anonymous.
func (s *Session) handleGetInviteCode() {
	if s.user == nil {
		notAuthed := errs.NewError(errs.ErrNotAuthenticated)
		s.reply(EventGetInviteCode, InviteCodePayload{
			Error: &ErrorInfo{
				Code:    notAuthed.Code,
				Message: notAuthed.Message,
			},
		})
		return
	}

	s.reply(EventGetInviteCode, InviteCodePayload{
		InviteCode: s.user.InviteCode,
	})
}

// handleLogout clears the session's identity and announces the departure.
// A logout on an anonymous session is a no-op.
func (s *Session) handleLogout() {
	if s.user == nil {
		return
	}

	s.announceDeparture()
	s.user = nil
}

// announceDeparture broadcasts the system departure message for the current user.
func (s *Session) announceDeparture() {
	s.hub.BroadcastEvent(EventMessage, MessagePayload{
		User: SystemSender,
		Text: fmt.Sprintf(departureTextFormat, s.user.Name),
		Time: time.Now(),
	})
}

// reply marshals an outbound event and delivers it only to this session.
func (s *Session) reply(eventType EventType, payload any) {
	frame, err := MarshalEvent(eventType, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal reply")
		return
	}

	s.hub.EmitToOne(s, frame)
}

// replyLoginError sends a failed login result to the requesting session.
func (s *Session) replyLoginError(customErr *errs.CustomError) {
	s.reply(EventLoginResult, LoginResultPayload{
		Error: &ErrorInfo{
			Code:    customErr.Code,
			Message: customErr.Message,
		},
	})
}

// WritePump handles writing frames from the send queue to the WebSocket
// connection and maintains the heartbeat.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Session connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
