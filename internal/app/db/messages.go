package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmchat/internal/app/message"
	"dmchat/internal/pkg/randx"
)

// MessageStore is the PostgreSQL implementation of message.Store.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore returns a MessageStore backed by pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const insertMessageSQL = `
INSERT INTO messages (id, sender, recipient, text, file, attachment_failed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Append implements message.Store.
func (s *MessageStore) Append(ctx context.Context, msg message.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := randx.MessageID()

	_, err := s.pool.Exec(ctx, insertMessageSQL,
		id, msg.Sender, msg.Recipient, msg.Text, msg.File, msg.AttachmentFailed, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	return id, nil
}

const selectConversationSQL = `
SELECT id::text, sender, recipient, text, file, attachment_failed, created_at
FROM messages
WHERE LEAST(sender, recipient) = LEAST($1::text, $2::text)
  AND GREATEST(sender, recipient) = GREATEST($1::text, $2::text)
ORDER BY created_at ASC, id ASC`

// QueryBetween implements message.Store.
func (s *MessageStore) QueryBetween(ctx context.Context, userA, userB string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx, selectConversationSQL, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		var m message.Message
		err := row.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Text, &m.File, &m.AttachmentFailed, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	return messages, nil
}
