package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"homeguard/internal/model"
	"homeguard/internal/storage"
)

// UploadStream writes one blob. Data is buffered up to the chunk size and each
// full chunk is flushed to object storage; Close writes the tail and the
// metadata record. Not safe for concurrent use.
type UploadStream struct {
	ctx      context.Context
	bucket   *Bucket
	st       storage.Storage
	id       string
	filename string
	meta     Metadata
	buf      []byte
	chunks   int
	size     int64
	closed   bool
	err      error
	file     *model.BlobFile
}

func (b *Bucket) OpenUploadStream(ctx context.Context, filename string, meta Metadata) (*UploadStream, error) {
	st, err := b.storage()
	if err != nil {
		return nil, err
	}
	return &UploadStream{
		ctx:      ctx,
		bucket:   b,
		st:       st,
		id:       uuid.NewString(),
		filename: filename,
		meta:     meta,
		buf:      make([]byte, 0, b.chunkSize),
	}, nil
}

func (u *UploadStream) ID() string { return u.id }

// File is the stored record; nil until Close succeeds.
func (u *UploadStream) File() *model.BlobFile { return u.file }

func (u *UploadStream) Write(p []byte) (int, error) {
	if u.closed {
		return 0, ErrStreamClosed
	}
	if u.err != nil {
		return 0, u.err
	}
	size := u.bucket.chunkSize
	written := 0
	for len(p) > 0 {
		n := min(size-len(u.buf), len(p))
		u.buf = append(u.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(u.buf) == size {
			if err := u.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (u *UploadStream) flush() error {
	if len(u.buf) == 0 {
		return nil
	}
	_, err := u.st.Put(u.ctx, chunkKey(u.id, u.chunks), bytes.NewReader(u.buf), storage.PutObjectOptions{
		Size:        int64(len(u.buf)),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		u.err = fmt.Errorf("write chunk %d: %w", u.chunks, err)
		return u.err
	}
	u.chunks++
	u.size += int64(len(u.buf))
	u.buf = u.buf[:0]
	return nil
}

// Close finishes the upload. On failure every chunk already written is removed
// and no metadata record exists.
func (u *UploadStream) Close() error {
	if u.closed {
		if u.file == nil {
			return ErrStreamClosed
		}
		return nil
	}
	u.closed = true

	if u.err == nil {
		_ = u.flush()
	}
	if u.err != nil {
		u.cleanup()
		return u.err
	}

	now := u.bucket.now().UTC()
	f := &model.BlobFile{
		ID:           u.id,
		Filename:     fmt.Sprintf("%d-%s", now.UnixMilli(), u.filename),
		OwnerID:      u.meta.OwnerID,
		OriginalName: u.meta.OriginalName,
		Mimetype:     u.meta.Mimetype,
		Size:         u.size,
		ChunkSize:    u.bucket.chunkSize,
		ChunkCount:   u.chunks,
		UploadDate:   now,
	}
	if err := u.bucket.meta.Insert(u.ctx, f); err != nil {
		u.err = fmt.Errorf("insert blob metadata: %w", err)
		u.cleanup()
		return u.err
	}
	u.file = f
	u.bucket.log.Debug("blob_uploaded",
		slog.String("file_id", f.ID),
		slog.Int64("size", f.Size),
		slog.Int("chunks", f.ChunkCount),
	)
	return nil
}

// Abort discards the upload and removes written chunks.
func (u *UploadStream) Abort() {
	if u.closed {
		return
	}
	u.closed = true
	u.cleanup()
}

func (u *UploadStream) cleanup() {
	u.bucket.removeChunks(context.WithoutCancel(u.ctx), u.st, u.id, u.chunks)
	u.buf = nil
}
