package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubStore is an in-memory archive.Store recording calls made against it.
type stubStore struct {
	messages  []Message
	nextID    int64
	insertErr error
	recentErr error

	// lastLimit records the limit passed to the most recent RecentMessages call.
	lastLimit int
}

func (s *stubStore) InsertMessage(_ context.Context, msg Message) (Message, error) {
	if s.insertErr != nil {
		return Message{}, s.insertErr
	}

	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubStore) RecentMessages(_ context.Context, limit int) ([]Message, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}

	s.lastLimit = limit

	start := len(s.messages) - limit
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), s.messages[start:]...), nil
}

func TestAppend_DefaultsTimeToArchiveClock(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	a := NewArchive(store, 100)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	msg, err := a.Append(context.Background(), "Alice", "hello", time.Time{})
	req.NoError(err)
	req.Equal(fixed, msg.Time)
	req.Equal(int64(1), msg.ID)
}

func TestAppend_KeepsExplicitTime(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	a := NewArchive(store, 100)

	sent := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	msg, err := a.Append(context.Background(), "Alice", "hello", sent)
	req.NoError(err)
	req.Equal(sent, msg.Time)
	req.Equal("Alice", msg.User)
	req.Equal("hello", msg.Text)
}

func TestAppend_StoreFailureSurfaces(t *testing.T) {
	req := require.New(t)
	store := &stubStore{insertErr: errors.New("connection refused")}
	a := NewArchive(store, 100)

	_, err := a.Append(context.Background(), "Alice", "hello", time.Time{})
	req.Error(err)
}

func TestRecent_ClampsLimit(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	a := NewArchive(store, 100)

	_, err := a.Recent(context.Background(), 50)
	req.NoError(err)
	req.Equal(50, store.lastLimit)

	_, err = a.Recent(context.Background(), 500)
	req.NoError(err)
	req.Equal(100, store.lastLimit)

	_, err = a.Recent(context.Background(), 0)
	req.NoError(err)
	req.Equal(100, store.lastLimit)

	_, err = a.Recent(context.Background(), -3)
	req.NoError(err)
	req.Equal(100, store.lastLimit)
}

func TestRecent_ReturnsMostRecentInOrder(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	a := NewArchive(store, 3)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		_, err := a.Append(context.Background(), "Alice", "msg", base.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	msgs, err := a.Recent(context.Background(), 3)
	req.NoError(err)
	req.Len(msgs, 3)

	// The three newest, ascending.
	req.Equal(int64(3), msgs[0].ID)
	req.Equal(int64(5), msgs[2].ID)
	for i := 1; i < len(msgs); i++ {
		req.False(msgs[i].Time.Before(msgs[i-1].Time), "messages must be in non-decreasing time order")
	}
}

func TestNewArchive_FallbackHistoryLimit(t *testing.T) {
	req := require.New(t)
	store := &stubStore{}
	a := NewArchive(store, 0)

	_, err := a.Recent(context.Background(), 0)
	req.NoError(err)
	req.Equal(100, store.lastLimit)
}
