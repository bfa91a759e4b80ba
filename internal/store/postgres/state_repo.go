package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"client_go/internal/domain"
)

// StateRepo stores client state rows scoped to one owner (an installation id).
type StateRepo struct {
	db    *sql.DB
	owner string
}

func NewStateRepo(db *sql.DB, owner string) *StateRepo {
	return &StateRepo{db: db, owner: owner}
}

var _ domain.StateRepository = (*StateRepo)(nil)

func (r *StateRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE owner = $1 AND key = $2`, r.owner, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

func (r *StateRepo) Put(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO client_state (owner, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, r.owner, k, v); err != nil {
			return fmt.Errorf("put state %q: %w", k, err)
		}
	}
	return tx.Commit()
}

func (r *StateRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM client_state WHERE owner = $1 AND key = $2`, r.owner, k,
		); err != nil {
			return fmt.Errorf("delete state %q: %w", k, err)
		}
	}
	return tx.Commit()
}
