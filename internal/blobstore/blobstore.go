// Package blobstore stores arbitrarily large files as fixed-size chunks in object
// storage, with one metadata record per file in PostgreSQL.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"homeguard/internal/model"
	"homeguard/internal/repository"
	"homeguard/internal/storage"
)

var (
	ErrNotFound     = errors.New("blob not found")
	ErrUnavailable  = errors.New("blob storage not ready")
	ErrStreamClosed = errors.New("upload stream closed")
)

const (
	DefaultChunkSize = 255 * 1024
	DefaultFindBatch = 100
)

// Metadata is attached to a blob when it is opened for upload.
type Metadata struct {
	OwnerID      string
	OriginalName string
	Mimetype     string
}

// Filter is a conjunctive equality match; empty fields match anything.
type Filter struct {
	ID           string
	OwnerID      string
	OriginalName string
}

// BlobStore is the subset of Bucket used by the service layer.
type BlobStore interface {
	Ready() bool
	UploadFromStream(ctx context.Context, filename string, meta Metadata, r io.Reader) (*model.BlobFile, error)
	FindOne(ctx context.Context, filter Filter) (*model.BlobFile, error)
	FindAll(ctx context.Context, filter Filter) ([]model.BlobFile, error)
	OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, *model.BlobFile, error)
	Delete(ctx context.Context, id string) error
}

type backend struct {
	storage.Storage
}

// Bucket is safe for concurrent use. It answers ErrUnavailable until a storage
// backend has been attached.
type Bucket struct {
	meta      repository.BlobRepository
	backend   atomic.Pointer[backend]
	chunkSize int
	findBatch int
	log       *slog.Logger
	now       func() time.Time
}

var _ BlobStore = (*Bucket)(nil)

func New(meta repository.BlobRepository, chunkSize, findBatch int, log *slog.Logger) *Bucket {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if findBatch <= 0 {
		findBatch = DefaultFindBatch
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bucket{
		meta:      meta,
		chunkSize: chunkSize,
		findBatch: findBatch,
		log:       log.With("component", "blobstore"),
		now:       time.Now,
	}
}

// Attach makes the bucket ready. Calling it again swaps the backend.
func (b *Bucket) Attach(st storage.Storage) {
	b.backend.Store(&backend{Storage: st})
	b.log.Info("blob_storage_ready")
}

func (b *Bucket) Ready() bool {
	return b.backend.Load() != nil
}

func (b *Bucket) storage() (storage.Storage, error) {
	be := b.backend.Load()
	if be == nil {
		return nil, ErrUnavailable
	}
	return be.Storage, nil
}

// AttachWhenReady calls connect until it succeeds or ctx is done, waiting
// interval between attempts, then attaches the result.
func (b *Bucket) AttachWhenReady(ctx context.Context, interval time.Duration, connect func(context.Context) (storage.Storage, error)) error {
	attempt := 0
	constant := retry.BackoffFunc(func() (time.Duration, bool) { return interval, false })

	err := retry.Do(ctx, constant, func(ctx context.Context) error {
		attempt++
		st, err := connect(ctx)
		if err != nil {
			b.log.Warn("blob_storage_connect_failed",
				"attempt", attempt,
				"error_message", err.Error(),
				"retry_in", interval.String(),
			)
			return retry.RetryableError(err)
		}
		b.Attach(st)
		return nil
	})
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return ctxErr
	}
	return err
}

func chunkKey(id string, index int) string {
	return fmt.Sprintf("chunks/%s/%06d", id, index)
}

// UploadFromStream copies r into a new blob and returns its record once both
// the content and the metadata are durable.
func (b *Bucket) UploadFromStream(ctx context.Context, filename string, meta Metadata, r io.Reader) (*model.BlobFile, error) {
	us, err := b.OpenUploadStream(ctx, filename, meta)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(us, r); err != nil {
		us.Abort()
		return nil, fmt.Errorf("upload %s: %w", us.ID(), err)
	}
	if err := us.Close(); err != nil {
		return nil, err
	}
	return us.File(), nil
}

func (b *Bucket) Find(ctx context.Context, filter Filter) *Cursor {
	c := &Cursor{
		ctx:   ctx,
		meta:  b.meta,
		batch: b.findBatch,
		filter: repository.BlobFilter{
			ID:           filter.ID,
			OwnerID:      filter.OwnerID,
			OriginalName: filter.OriginalName,
		},
	}
	if !b.Ready() {
		c.err = ErrUnavailable
		return c
	}
	// ids are UUID columns; anything else cannot match
	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			c.empty = true
		}
	}
	return c
}

// FindOne returns the first match in (upload date, id) order.
func (b *Bucket) FindOne(ctx context.Context, filter Filter) (*model.BlobFile, error) {
	c := b.Find(ctx, filter)
	if c.Next() {
		f := c.File()
		return &f, nil
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func (b *Bucket) FindAll(ctx context.Context, filter Filter) ([]model.BlobFile, error) {
	return b.Find(ctx, filter).All()
}

func (b *Bucket) lookup(ctx context.Context, id string) (*model.BlobFile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	f, err := b.meta.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return f, err
}

// OpenDownloadStream returns a reader over the blob content. Chunks are fetched
// one at a time as the reader advances.
func (b *Bucket) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, *model.BlobFile, error) {
	st, err := b.storage()
	if err != nil {
		return nil, nil, err
	}
	f, err := b.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &downloadStream{ctx: ctx, st: st, file: f}, f, nil
}

// Delete removes the metadata record and then every chunk. Chunk removal
// failures are logged; the blob is already invisible at that point.
func (b *Bucket) Delete(ctx context.Context, id string) error {
	st, err := b.storage()
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	f, err := b.meta.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	b.removeChunks(context.WithoutCancel(ctx), st, f.ID, f.ChunkCount)
	return nil
}

func (b *Bucket) removeChunks(ctx context.Context, st storage.Storage, id string, count int) {
	for i := 0; i < count; i++ {
		if err := st.Delete(ctx, chunkKey(id, i)); err != nil {
			b.log.Error("blob_chunk_delete_failed",
				"file_id", id,
				"chunk", i,
				"error_message", err.Error(),
			)
		}
	}
}
