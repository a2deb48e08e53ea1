// Package memory implements the repository interfaces in process memory. It
// backs DATABASE_DRIVER=memory for local runs without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeguard/internal/model"
	"homeguard/internal/repository"
)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return nil, repository.ErrDuplicate
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.LastLogin = &at
	r.byID[id] = u
	return &u, nil
}

type LedgerRepo struct {
	mu    sync.RWMutex
	files map[string][]string
}

func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{files: make(map[string][]string)}
}

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

func (r *LedgerRepo) Add(ctx context.Context, userID, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.files[userID] {
		if id == fileID {
			return nil
		}
	}
	r.files[userID] = append(r.files[userID], fileID)
	return nil
}

func (r *LedgerRepo) Remove(ctx context.Context, userID, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.files[userID]
	for i, id := range ids {
		if id == fileID {
			r.files[userID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *LedgerRepo) List(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(make([]string, 0, len(r.files[userID])), r.files[userID]...), nil
}

type BlobRepo struct {
	mu    sync.RWMutex
	files map[string]model.BlobFile
}

func NewBlobRepo() *BlobRepo {
	return &BlobRepo{files: make(map[string]model.BlobFile)}
}

var _ repository.BlobRepository = (*BlobRepo)(nil)

func (r *BlobRepo) Insert(ctx context.Context, f *model.BlobFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[f.ID]; ok {
		return repository.ErrDuplicate
	}
	r.files[f.ID] = *f
	return nil
}

// Find orders by (upload_date, id) like the postgres implementation.
func (r *BlobRepo) Find(ctx context.Context, filter repository.BlobFilter, after *repository.BlobPosition, limit int) ([]model.BlobFile, error) {
	r.mu.RLock()
	matched := make([]model.BlobFile, 0)
	for _, f := range r.files {
		if filter.ID != "" && f.ID != filter.ID {
			continue
		}
		if filter.OwnerID != "" && f.OwnerID != filter.OwnerID {
			continue
		}
		if filter.OriginalName != "" && f.OriginalName != filter.OriginalName {
			continue
		}
		if after != nil && !before(after.UploadDate, after.ID, f) {
			continue
		}
		matched = append(matched, f)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return before(matched[i].UploadDate, matched[i].ID, matched[j])
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *BlobRepo) Get(ctx context.Context, id string) (*model.BlobFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (r *BlobRepo) Delete(ctx context.Context, id string) (*model.BlobFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.files, id)
	return &f, nil
}

// Len reports how many blob records exist.
func (r *BlobRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// before reports whether position (at, id) sorts strictly before f.
func before(at time.Time, id string, f model.BlobFile) bool {
	if !at.Equal(f.UploadDate) {
		return at.Before(f.UploadDate)
	}
	return id < f.ID
}
