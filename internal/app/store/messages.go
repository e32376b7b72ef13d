/*
Package store provides the PostgreSQL implementations of the identity and archive
persistence contracts, built on a pgx connection pool.

This file implements the archive.Store contract. Messages are append-only; the
bigserial id provides the stable total order for rows sharing a sent_at value.
*/
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"friendchat/internal/app/archive"
)

// MessageStore persists chat messages in PostgreSQL.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore constructs a MessageStore on the given connection pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// InsertMessage appends one message row and returns it with the assigned id.
func (s *MessageStore) InsertMessage(ctx context.Context, msg archive.Message) (archive.Message, error) {
	const query = `
		INSERT INTO messages (sender, body, sent_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query, msg.User, msg.Text, msg.Time).Scan(&msg.ID)
	if err != nil {
		return archive.Message{}, err
	}

	return msg, nil
}

// RecentMessages returns the limit most recently archived messages, reordered
// ascending by sent_at with id as the tie-break. The inner query selects the
// newest rows; the outer one restores chronological presentation order.
func (s *MessageStore) RecentMessages(ctx context.Context, limit int) ([]archive.Message, error) {
	const query = `
		SELECT id, sender, body, sent_at
		FROM (
			SELECT id, sender, body, sent_at
			FROM messages
			ORDER BY sent_at DESC, id DESC
			LIMIT $1
		) recent
		ORDER BY sent_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]archive.Message, 0, limit)

	for rows.Next() {
		var msg archive.Message
		if err := rows.Scan(&msg.ID, &msg.User, &msg.Text, &msg.Time); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
