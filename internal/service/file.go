package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"homeguard/internal/blobstore"
	"homeguard/internal/model"
	"homeguard/internal/repository"
)

// FileService orchestrates the blob store and the ownership ledger for one
// user at a time.
type FileService interface {
	// Upload stores r as a new blob owned by userID and records ownership.
	Upload(ctx context.Context, userID string, r io.Reader, originalName, mimetype string, size int64) (*model.BlobFile, error)

	// List returns the user's files oldest first.
	List(ctx context.Context, userID string) ([]model.BlobFile, error)

	// Download resolves ref (a file id or an original name) and opens its content.
	Download(ctx context.Context, userID, ref string) (io.ReadCloser, *model.BlobFile, error)

	// Delete resolves ref like Download and removes the blob and its ledger entry.
	Delete(ctx context.Context, userID, ref string) (*model.BlobFile, error)
}

type fileService struct {
	blobs  blobstore.BlobStore
	ledger repository.LedgerRepository
	log    *slog.Logger
}

// NewFileService constructs a new FileService.
func NewFileService(blobs blobstore.BlobStore, ledger repository.LedgerRepository, log *slog.Logger) FileService {
	return &fileService{blobs: blobs, ledger: ledger, log: log.With("component", "files")}
}

func (s *fileService) Upload(ctx context.Context, userID string, r io.Reader, originalName, mimetype string, size int64) (*model.BlobFile, error) {
	if r == nil || size == 0 || originalName == "" {
		return nil, ErrFileRequired
	}

	f, err := s.blobs.UploadFromStream(ctx, originalName, blobstore.Metadata{
		OwnerID:      userID,
		OriginalName: originalName,
		Mimetype:     mimetype,
	}, r)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	if err := s.ledger.Add(ctx, userID, f.ID); err != nil {
		s.log.Error("ledger_update_failed",
			"file_id", f.ID,
			"user_id", userID,
			"error_message", err.Error(),
		)
		return nil, ErrLedgerUpdate
	}
	return f, nil
}

func (s *fileService) List(ctx context.Context, userID string) ([]model.BlobFile, error) {
	return s.blobs.FindAll(ctx, blobstore.Filter{OwnerID: userID})
}

// resolve looks ref up as an id first, then as one of the caller's original
// names. The oldest upload wins among duplicate names.
func (s *fileService) resolve(ctx context.Context, userID, ref string) (*model.BlobFile, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	if _, err := uuid.Parse(ref); err == nil {
		f, err := s.blobs.FindOne(ctx, blobstore.Filter{ID: ref})
		switch {
		case err == nil:
			if f.OwnerID != userID {
				return nil, ErrForbidden
			}
			return f, nil
		case !errors.Is(err, blobstore.ErrNotFound):
			return nil, err
		}
	}

	f, err := s.blobs.FindOne(ctx, blobstore.Filter{OwnerID: userID, OriginalName: ref})
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *fileService) Download(ctx context.Context, userID, ref string) (io.ReadCloser, *model.BlobFile, error) {
	f, err := s.resolve(ctx, userID, ref)
	if err != nil {
		return nil, nil, err
	}
	rc, f, err := s.blobs.OpenDownloadStream(ctx, f.ID)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *fileService) Delete(ctx context.Context, userID, ref string) (*model.BlobFile, error) {
	f, err := s.resolve(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Delete(ctx, f.ID); err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// the blob is gone; a stale ledger entry is only logged
	if err := s.ledger.Remove(ctx, userID, f.ID); err != nil {
		s.log.Error("ledger_remove_failed",
			"file_id", f.ID,
			"user_id", userID,
			"error_message", err.Error(),
		)
	}
	return f, nil
}
