package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/egabank/internal/egabank/store"
	"github.com/aussiebroadwan/egabank/pkg/cryptox"
)

type txStore struct {
	tx     *sql.Tx
	sealer *cryptox.Sealer
}

func newTx(tx *sql.Tx, sealer *cryptox.Sealer) *txStore {
	return &txStore{tx: tx, sealer: sealer}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Credentials() store.Credentials {
	return &credentialsRepo{db: t.tx, sealer: t.sealer}
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
