package postgres

import (
	"context"
	"database/sql"

	"homeguard/internal/repository"
)

// LedgerPostgres is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerPostgres struct {
	db *sql.DB
}

// NewLedgerPostgres creates a new LedgerPostgres repository.
func NewLedgerPostgres(db *sql.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

var _ repository.LedgerRepository = (*LedgerPostgres)(nil)

// Add appends fileID to the user's set. Adding an id twice is a no-op.
func (r *LedgerPostgres) Add(ctx context.Context, userID, fileID string) error {
	const q = `
		INSERT INTO user_files (user_id, file_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, file_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, q, userID, fileID)
	return err
}

// Remove pulls fileID from the user's set. Removing an absent id is a no-op.
func (r *LedgerPostgres) Remove(ctx context.Context, userID, fileID string) error {
	const q = `DELETE FROM user_files WHERE user_id = $1 AND file_id = $2`
	_, err := r.db.ExecContext(ctx, q, userID, fileID)
	return err
}

// List returns the ids owned by the user in insertion order.
func (r *LedgerPostgres) List(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT file_id FROM user_files WHERE user_id = $1 ORDER BY added_at, file_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
