package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken is returned by Create for a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
)

// Store persists accounts. It backs registration, login and the people list.
type Store interface {
	// Create stores a new account and returns it with ID and CreatedAt set.
	Create(ctx context.Context, username, passwordHash string) (Account, error)

	// GetByUsername returns the account with the given username.
	GetByUsername(ctx context.Context, username string) (Account, error)

	// List returns every account's identity ordered by username.
	List(ctx context.Context) ([]Identity, error)
}

// MemStore is an in-process Store used in development and tests.
type MemStore struct {
	mu         sync.RWMutex
	byUsername map[string]Account
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{byUsername: make(map[string]Account)}
}

// Create implements Store.
func (s *MemStore) Create(ctx context.Context, username, passwordHash string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return Account{}, ErrUsernameTaken
	}

	account := Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byUsername[username] = account

	return account, nil
}

// GetByUsername implements Store.
func (s *MemStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byUsername[username]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

// List implements Store.
func (s *MemStore) List(ctx context.Context) ([]Identity, error) {
	s.mu.RLock()
	people := make([]Identity, 0, len(s.byUsername))
	for _, account := range s.byUsername {
		people = append(people, account.Identity())
	}
	s.mu.RUnlock()

	sort.Slice(people, func(i, j int) bool {
		return people[i].Username < people[j].Username
	})

	return people, nil
}
