package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmchat/internal/app/user"
)

// UserStore is the PostgreSQL implementation of user.Store.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a UserStore backed by pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const insertUserSQL = `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1, $2, $3, $4)`

// Create implements user.Store.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (user.Account, error) {
	account := user.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, insertUserSQL, account.ID, account.Username, account.PasswordHash, account.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.Account{}, user.ErrUsernameTaken
		}
		return user.Account{}, fmt.Errorf("insert user: %w", err)
	}

	return account, nil
}

const selectUserByUsernameSQL = `
SELECT id::text, username, password_hash, created_at
FROM users
WHERE username = $1`

// GetByUsername implements user.Store.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (user.Account, error) {
	var a user.Account

	err := s.pool.QueryRow(ctx, selectUserByUsernameSQL, username).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return user.Account{}, user.ErrNotFound
		}
		return user.Account{}, fmt.Errorf("select user: %w", err)
	}
	return a, nil
}

const selectPeopleSQL = `
SELECT id::text, username
FROM users
ORDER BY username ASC`

// List implements user.Store.
func (s *UserStore) List(ctx context.Context) ([]user.Identity, error) {
	rows, err := s.pool.Query(ctx, selectPeopleSQL)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	people, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.Identity, error) {
		var identity user.Identity
		err := row.Scan(&identity.ID, &identity.Username)
		return identity, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}

	return people, nil
}
