package repository

import (
	"context"
	"time"

	"homeguard/internal/model"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create inserts a user and returns the stored row. A taken email yields ErrDuplicate.
	Create(ctx context.Context, email, passwordHash string) (*model.User, error)

	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	// TouchLastLogin sets last_login for the user and returns the updated row.
	TouchLastLogin(ctx context.Context, id string, at time.Time) (*model.User, error)
}

// LedgerRepository keeps the set of blob ids each user owns.
// Add and Remove are single-row operations, so concurrent calls for one user
// never overwrite each other.
type LedgerRepository interface {
	Add(ctx context.Context, userID, fileID string) error
	Remove(ctx context.Context, userID, fileID string) error
	List(ctx context.Context, userID string) ([]string, error)
}
