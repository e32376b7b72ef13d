/*
Package chat contains the core logic for handling live sessions and message broadcasting.

This file defines the event surface spoken over each websocket connection: the tagged
inbound envelope, the typed payload for every event, and the outbound frame builder.
Untyped payloads never reach the core; every frame is validated at this boundary.
*/
package chat

import (
	"bytes"
	"encoding/json"
	"time"

	"friendchat/internal/pkg/randx"
)

// EventType tags every frame exchanged with a client.
type EventType string

// Inbound event types.
const (
	EventLogin         EventType = "login"
	EventSendMessage   EventType = "sendMessage"
	EventLoadMessages  EventType = "loadMessages"
	EventGetInviteCode EventType = "getInviteCode"
	EventLogout        EventType = "logout"
)

// Outbound event types. EventLoadMessages and EventGetInviteCode double as the
// reply types for their requests.
const (
	EventMessage     EventType = "message"
	EventLoginResult EventType = "loginResult"
)

const (
	// SystemSender is the reserved sender identity for arrival and departure
	// announcements. No user may log in under this name.
	SystemSender = "系統"

	arrivalTextFormat   = "歡迎 %s 加入聊天室！"
	departureTextFormat = "%s 已離開聊天室"
)

// Envelope is the tagged union wrapper for inbound frames.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LoginPayload carries the login request.
type LoginPayload struct {
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode,omitempty"`
}

// SendMessagePayload carries one chat message to relay. User is recorded as
// sent; the session's authenticated identity is deliberately not substituted.
type SendMessagePayload struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// MessagePayload is the outbound shape of one chat or system message.
type MessagePayload struct {
	User string    `json:"user"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// UserInfo is the public view of a resolved identity in a login reply.
type UserInfo struct {
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
}

// ErrorInfo carries a business error code and message inside a reply payload.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LoginResultPayload answers a login event. Exactly one of User or Error is
// set; Inviter is null unless a valid invite code accompanied the login.
type LoginResultPayload struct {
	User    *UserInfo  `json:"user,omitempty"`
	Inviter *string    `json:"inviter"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// InviteCodePayload answers a getInviteCode event.
type InviteCodePayload struct {
	InviteCode string     `json:"inviteCode,omitempty"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// Event is the outbound frame. Every frame gets a fresh UUID so clients can
// de-duplicate on reconnect.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// MarshalEvent builds and serializes an outbound frame.
func MarshalEvent(eventType EventType, payload any) ([]byte, error) {
	return json.Marshal(Event{
		ID:      randx.MessageID(),
		Type:    eventType,
		Payload: payload,
	})
}

// DecodeEnvelope parses an inbound frame into the tagged envelope. Unknown
// top-level fields are rejected at the boundary.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var envelope Envelope

	decoder := json.NewDecoder(bytes.NewReader(frame))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&envelope); err != nil {
		return Envelope{}, err
	}

	return envelope, nil
}
