/*
Package archive contains the append-only durable log of chat messages.

It defines the Message struct, the store contract the archive runs against, and the
Archive struct exposing the two operations the chat core needs: Append on every send
event, and Recent for history replay on join.
*/
package archive

import (
	"context"
	"fmt"
	"time"
)

// Message is one archived chat message. Messages are immutable once archived.
type Message struct {
	// ID is the insertion-order sequence assigned by the store. It provides the
	// stable tie-break for messages sharing a timestamp.
	ID int64 `json:"-"`

	// User is the sender's display name at send time. It is recorded verbatim
	// from the send event and is not validated against the identity registry.
	User string `json:"user"`

	// Text is the message body, non-empty.
	Text string `json:"text"`

	// Time is the send time.
	Time time.Time `json:"time"`
}

// Store is the persistence contract the archive depends on. The production
// implementation lives in internal/app/store.
type Store interface {
	// InsertMessage appends a message and returns it with the assigned ID.
	InsertMessage(ctx context.Context, msg Message) (Message, error)

	// RecentMessages returns the limit most recently archived messages ordered
	// ascending by time, with insertion order breaking timestamp ties.
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}

// Archive persists and retrieves chat messages in time order.
type Archive struct {
	store Store

	// maxHistory caps the number of messages a Recent call may return.
	maxHistory int

	// now is the archive clock, swappable in tests.
	now func() time.Time
}

// NewArchive constructs an Archive backed by the given store. maxHistory bounds
// history replay; values <= 0 fall back to 100.
func NewArchive(store Store, maxHistory int) *Archive {
	if maxHistory <= 0 {
		maxHistory = 100
	}

	return &Archive{
		store:      store,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Append persists one message. A zero sentAt defaults to the archive's current
// time. The stored message, including its assigned ID, is returned so the caller
// broadcasts exactly what was archived.
func (a *Archive) Append(ctx context.Context, user string, text string, sentAt time.Time) (Message, error) {
	if sentAt.IsZero() {
		sentAt = a.now()
	}

	msg, err := a.store.InsertMessage(ctx, Message{
		User: user,
		Text: text,
		Time: sentAt,
	})
	if err != nil {
		return Message{}, fmt.Errorf("archive message: %w", err)
	}

	return msg, nil
}

// Recent returns up to limit of the most recently archived messages in ascending
// time order. Requests beyond the configured maximum are clamped to it, as are
// non-positive limits.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 || limit > a.maxHistory {
		limit = a.maxHistory
	}

	msgs, err := a.store.RecentMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	return msgs, nil
}
