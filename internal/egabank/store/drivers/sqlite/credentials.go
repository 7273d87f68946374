package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/egabank/internal/egabank/store"
	"github.com/aussiebroadwan/egabank/pkg/cryptox"
)

const (
	getCredential = `SELECT value, updated_at FROM credentials WHERE key = ?`

	putCredential = `
INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	deleteCredential = `DELETE FROM credentials WHERE key = ?`

	clearCredentials = `DELETE FROM credentials`

	listCredentialKeys = `SELECT key FROM credentials ORDER BY key`
)

type credentialsRepo struct {
	db     dbtx
	sealer *cryptox.Sealer
}

func (r *credentialsRepo) GetCredential(ctx context.Context, key string) (store.Credential, error) {
	var (
		sealed    []byte
		updatedAt int64
	)
	if err := r.db.QueryRowContext(ctx, getCredential, key).Scan(&sealed, &updatedAt); err != nil {
		return store.Credential{}, mapNotFound(err)
	}

	plain, err := r.sealer.Open(sealed, []byte(key))
	if err != nil {
		return store.Credential{}, fmt.Errorf("open credential %q: %w", key, err)
	}

	return store.Credential{
		Key:       key,
		Value:     string(plain),
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}, nil
}

func (r *credentialsRepo) PutCredential(ctx context.Context, key, value string, at time.Time) error {
	sealed, err := r.sealer.Seal([]byte(value), []byte(key))
	if err != nil {
		return fmt.Errorf("seal credential %q: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, putCredential, key, sealed, at.UnixMilli())
	return err
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, deleteCredential, key)
	return err
}

func (r *credentialsRepo) ClearCredentials(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, clearCredentials)
	return err
}

func (r *credentialsRepo) ListCredentialKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listCredentialKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
