package repository

import (
	"context"
	"time"

	"homeguard/internal/model"
)

// BlobFilter is a conjunctive equality match; empty fields are ignored.
type BlobFilter struct {
	ID           string
	OwnerID      string
	OriginalName string
}

// BlobPosition is a keyset position in (upload_date, id) order.
type BlobPosition struct {
	UploadDate time.Time
	ID         string
}

// BlobRepository stores blob metadata records.
type BlobRepository interface {
	// Insert makes a finished blob visible.
	Insert(ctx context.Context, f *model.BlobFile) error

	// Find returns up to limit records matching filter, strictly after the given
	// position, ordered by (upload_date, id). A nil position starts from the beginning.
	Find(ctx context.Context, filter BlobFilter, after *BlobPosition, limit int) ([]model.BlobFile, error)

	Get(ctx context.Context, id string) (*model.BlobFile, error)

	// Delete removes the record and returns it. A missing id yields ErrNotFound.
	Delete(ctx context.Context, id string) (*model.BlobFile, error)
}
