package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_partitions (
	key        TEXT PRIMARY KEY,
	value      BYTEA,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// KV stores cart partitions in Postgres. A NULL value marks a key that was
// locked for update but never written.
type KV struct {
	db *sql.DB
}

func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

func (k *KV) Migrate(ctx context.Context) error {
	_, err := k.db.ExecContext(ctx, schema)
	return err
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := k.db.QueryRowContext(ctx, `SELECT value FROM cart_partitions WHERE key = $1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (k *KV) execTX(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Update ensures the row exists, locks it, and rewrites it in one transaction
// so concurrent writers to the same partition queue behind each other.
func (k *KV) Update(ctx context.Context, key string, fn func(cur []byte, ok bool) ([]byte, error)) error {
	return k.execTX(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cart_partitions (key, value) VALUES ($1, NULL) ON CONFLICT (key) DO NOTHING`, key,
		); err != nil {
			return err
		}

		var cur []byte
		if err := tx.QueryRowContext(ctx,
			`SELECT value FROM cart_partitions WHERE key = $1 FOR UPDATE`, key,
		).Scan(&cur); err != nil {
			return err
		}

		next, err := fn(cur, cur != nil)
		if err != nil {
			return err
		}
		if next == nil {
			next = []byte{}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE cart_partitions SET value = $2, updated_at = NOW() WHERE key = $1`, key, next,
		)
		return err
	})
}
