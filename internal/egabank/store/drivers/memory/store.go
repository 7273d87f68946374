// Package memory is a map-backed store for tests and ephemeral sessions.
// Nothing survives the process.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/store"
)

var errNestedTx = errors.New("memory: nested transactions are not supported")

type Store struct {
	mu          sync.RWMutex
	credentials map[string]store.Credential
	closed      bool
}

func NewStore() *Store {
	return &Store{credentials: make(map[string]store.Credential)}
}

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("memory: store closed")
	}
	return ctx.Err()
}

func (s *Store) Credentials() store.Credentials {
	return &credentialsRepo{s: s}
}

// Tx stages writes on a copy and swaps it in on Commit. The last commit wins.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	staged := maps.Clone(s.credentials)
	s.mu.RUnlock()

	return &txStore{parent: s, staged: &Store{credentials: staged}}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	parent *Store
	staged *Store
	done   bool
}

func (t *txStore) Credentials() store.Credentials { return t.staged.Credentials() }
func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, errNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return errNestedTx }

func (t *txStore) Commit() error {
	if t.done {
		return errors.New("memory: transaction already finished")
	}
	t.done = true

	t.staged.mu.RLock()
	committed := maps.Clone(t.staged.credentials)
	t.staged.mu.RUnlock()

	t.parent.mu.Lock()
	t.parent.credentials = committed
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	t.done = true
	return nil
}

type credentialsRepo struct {
	s *Store
}

func (r *credentialsRepo) GetCredential(_ context.Context, key string) (store.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.credentials[key]
	if !ok {
		return store.Credential{}, store.ErrNotFound
	}
	return c, nil
}

func (r *credentialsRepo) PutCredential(_ context.Context, key, value string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.credentials[key] = store.Credential{Key: key, Value: value, UpdatedAt: at.UTC()}
	return nil
}

func (r *credentialsRepo) DeleteCredential(_ context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.credentials, key)
	return nil
}

func (r *credentialsRepo) ClearCredentials(context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clear(r.s.credentials)
	return nil
}

func (r *credentialsRepo) ListCredentialKeys(context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.s.credentials)), nil
}
