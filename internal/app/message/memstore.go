package message

import (
	"context"
	"sort"
	"sync"

	"dmchat/internal/pkg/randx"
)

// MemStore is an in-process Store used in development and tests.
type MemStore struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append implements Store.
func (s *MemStore) Append(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	msg.ID = randx.MessageID()

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg.ID, nil
}

// QueryBetween implements Store. Messages with equal timestamps keep insertion order.
func (s *MemStore) QueryBetween(ctx context.Context, userA, userB string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	result := make([]Message, 0)
	for _, m := range s.messages {
		if (m.Sender == userA && m.Recipient == userB) || (m.Sender == userB && m.Recipient == userA) {
			result = append(result, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Len returns the number of stored messages.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
