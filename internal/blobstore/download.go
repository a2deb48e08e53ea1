package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"homeguard/internal/model"
	"homeguard/internal/storage"
)

var ErrCorrupt = errors.New("blob chunk missing")

type downloadStream struct {
	ctx  context.Context
	st   storage.Storage
	file *model.BlobFile
	next int
	cur  io.ReadCloser
}

func (d *downloadStream) Read(p []byte) (int, error) {
	for {
		if d.cur == nil {
			if d.next >= d.file.ChunkCount {
				return 0, io.EOF
			}
			rc, _, err := d.st.Get(d.ctx, chunkKey(d.file.ID, d.next))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return 0, fmt.Errorf("%w: %s chunk %d", ErrCorrupt, d.file.ID, d.next)
				}
				return 0, err
			}
			d.cur = rc
			d.next++
		}

		n, err := d.cur.Read(p)
		if errors.Is(err, io.EOF) {
			_ = d.cur.Close()
			d.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (d *downloadStream) Close() error {
	if d.cur == nil {
		return nil
	}
	err := d.cur.Close()
	d.cur = nil
	d.next = d.file.ChunkCount
	return err
}
