package blobstore

import (
	"context"

	"homeguard/internal/model"
	"homeguard/internal/repository"
)

// Cursor iterates blob records lazily, one keyset page at a time. It is not
// safe for concurrent use.
//
//	c := bucket.Find(ctx, blobstore.Filter{OwnerID: uid})
//	for c.Next() {
//		f := c.File()
//	}
//	if err := c.Err(); err != nil { ... }
type Cursor struct {
	ctx    context.Context
	meta   repository.BlobRepository
	filter repository.BlobFilter
	batch  int

	page  []model.BlobFile
	pos   int
	after *repository.BlobPosition
	done  bool
	empty bool
	cur   model.BlobFile
	err   error
}

func (c *Cursor) Next() bool {
	if c.err != nil || c.empty {
		return false
	}
	if c.pos < len(c.page) {
		c.cur = c.page[c.pos]
		c.pos++
		return true
	}
	if c.done {
		return false
	}

	items, err := c.meta.Find(c.ctx, c.filter, c.after, c.batch)
	if err != nil {
		c.err = err
		return false
	}
	if len(items) < c.batch {
		c.done = true
	}
	if len(items) == 0 {
		return false
	}
	last := items[len(items)-1]
	c.after = &repository.BlobPosition{UploadDate: last.UploadDate, ID: last.ID}
	c.page = items
	c.cur = items[0]
	c.pos = 1
	return true
}

// File is the record at the current position.
func (c *Cursor) File() model.BlobFile { return c.cur }

func (c *Cursor) Err() error { return c.err }

// Rewind restarts iteration from the first match. A sticky ErrUnavailable is kept.
func (c *Cursor) Rewind() {
	if c.err == ErrUnavailable {
		return
	}
	c.page, c.pos, c.after = nil, 0, nil
	c.done = false
	c.err = nil
}

// All drains the remaining records.
func (c *Cursor) All() ([]model.BlobFile, error) {
	out := make([]model.BlobFile, 0)
	for c.Next() {
		out = append(out, c.File())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
