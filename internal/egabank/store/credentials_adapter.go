package store

import (
	"context"
	"errors"
	"time"
)

// CredentialsAdapter adapts the store.Store interface to the
// banksdk.CredentialStore interface, so the SDK keeps its credential pair in
// durable storage without depending on this package.
type CredentialsAdapter struct {
	store Store
	now   func() time.Time
}

// NewCredentialsAdapter creates an adapter over store.
func NewCredentialsAdapter(store Store) *CredentialsAdapter {
	return &CredentialsAdapter{store: store, now: time.Now}
}

// Get returns "" when key is absent.
func (a *CredentialsAdapter) Get(ctx context.Context, key string) (string, error) {
	c, err := a.store.Credentials().GetCredential(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func (a *CredentialsAdapter) Set(ctx context.Context, key, value string) error {
	return a.store.Credentials().PutCredential(ctx, key, value, a.now())
}

func (a *CredentialsAdapter) Delete(ctx context.Context, key string) error {
	return a.store.Credentials().DeleteCredential(ctx, key)
}

// Clear removes every stored credential, not just the pair the SDK knows.
func (a *CredentialsAdapter) Clear(ctx context.Context) error {
	return a.store.Credentials().ClearCredentials(ctx)
}

// UpdatedAt returns when key was last written, or the zero time.
func (a *CredentialsAdapter) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	c, err := a.store.Credentials().GetCredential(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return c.UpdatedAt, nil
}
