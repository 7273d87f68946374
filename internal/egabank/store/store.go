package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface for client-side state. Drivers
// (sqlite, memory) implement it and expose sub-repositories so a transaction
// scope can never open another transaction.
type Store interface {
	Credentials() Credentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Credential is one stored secret, such as the access token.
type Credential struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Credentials interface {
	// GetCredential returns ErrNotFound when key was never stored or was deleted.
	GetCredential(ctx context.Context, key string) (Credential, error)

	// PutCredential inserts or replaces the value under key.
	PutCredential(ctx context.Context, key, value string, at time.Time) error

	// DeleteCredential removes key. Deleting an absent key is not an error.
	DeleteCredential(ctx context.Context, key string) error

	// ClearCredentials removes every stored credential.
	ClearCredentials(ctx context.Context) error

	// ListCredentialKeys returns the stored keys in lexical order.
	ListCredentialKeys(ctx context.Context) ([]string, error)
}
