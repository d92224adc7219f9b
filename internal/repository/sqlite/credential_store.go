package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nursery-tracker/internal/repository"
)

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// CredentialStore keeps session credentials in a local sqlite file. Each key
// is written in its own statement; there is deliberately no transaction
// spanning the token and username writes.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) repository.CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCredentialsTable); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
SELECT value
FROM credentials
WHERE key = ?`,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credential %s: %w", key, err)
	}
	return value, true, nil
}

func (s *CredentialStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credentials (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write credential %s: %w", key, err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete credential %s: %w", key, err)
	}
	return nil
}
