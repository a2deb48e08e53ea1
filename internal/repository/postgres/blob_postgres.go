package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"homeguard/internal/model"
	"homeguard/internal/repository"
)

// BlobPostgres is a PostgreSQL implementation of repository.BlobRepository.
type BlobPostgres struct {
	db *sql.DB
}

// NewBlobPostgres creates a new BlobPostgres repository.
func NewBlobPostgres(db *sql.DB) *BlobPostgres {
	return &BlobPostgres{db: db}
}

var _ repository.BlobRepository = (*BlobPostgres)(nil)

const blobColumns = `id, filename, owner_id, original_name, mimetype, size, chunk_size, chunk_count, upload_date`

// Insert writes the metadata record of a finished blob.
func (r *BlobPostgres) Insert(ctx context.Context, f *model.BlobFile) error {
	const q = `
		INSERT INTO blob_files (` + blobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		f.ID,
		f.Filename,
		f.OwnerID,
		f.OriginalName,
		f.Mimetype,
		f.Size,
		f.ChunkSize,
		f.ChunkCount,
		f.UploadDate,
	)
	return err
}

// Find returns one keyset page of records matching the filter.
func (r *BlobPostgres) Find(ctx context.Context, filter repository.BlobFilter, after *repository.BlobPosition, limit int) ([]model.BlobFile, error) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, vals ...any) {
		placeholders := make([]any, len(vals))
		for i, v := range vals {
			args = append(args, v)
			placeholders[i] = len(args)
		}
		conds = append(conds, fmt.Sprintf(expr, placeholders...))
	}

	if filter.ID != "" {
		add("id = $%d", filter.ID)
	}
	if filter.OwnerID != "" {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.OriginalName != "" {
		add("original_name = $%d", filter.OriginalName)
	}
	if after != nil {
		add("(upload_date, id) > ($%d, $%d)", after.UploadDate, after.ID)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + blobColumns + ` FROM blob_files`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY upload_date, id LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.BlobFile, 0)
	for rows.Next() {
		var f model.BlobFile
		if err := rows.Scan(
			&f.ID,
			&f.Filename,
			&f.OwnerID,
			&f.OriginalName,
			&f.Mimetype,
			&f.Size,
			&f.ChunkSize,
			&f.ChunkCount,
			&f.UploadDate,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a single record by id.
func (r *BlobPostgres) Get(ctx context.Context, id string) (*model.BlobFile, error) {
	const q = `SELECT ` + blobColumns + ` FROM blob_files WHERE id = $1`
	return scanBlob(r.db.QueryRowContext(ctx, q, id))
}

// Delete removes a record and returns what was removed.
func (r *BlobPostgres) Delete(ctx context.Context, id string) (*model.BlobFile, error) {
	const q = `DELETE FROM blob_files WHERE id = $1 RETURNING ` + blobColumns
	return scanBlob(r.db.QueryRowContext(ctx, q, id))
}

func scanBlob(row *sql.Row) (*model.BlobFile, error) {
	var f model.BlobFile
	if err := row.Scan(
		&f.ID,
		&f.Filename,
		&f.OwnerID,
		&f.OriginalName,
		&f.Mimetype,
		&f.Size,
		&f.ChunkSize,
		&f.ChunkCount,
		&f.UploadDate,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
