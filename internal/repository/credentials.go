package repository

import "context"

// Keys of the two persisted credential entries. Writes are atomic per key
// only; a crash between the two writes leaves partial state, which readers
// must treat as "no session".
const (
	KeyToken    = "token"
	KeyUsername = "username"
)

// CredentialStore defines persistence operations for session credentials.
type CredentialStore interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
