package model

import "time"

// BlobFile is the metadata record of a stored blob.
// Filename is the collision-free storage name; OriginalName is what the user uploaded.
type BlobFile struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OwnerID      string    `json:"-"`
	OriginalName string    `json:"originalName"`
	Mimetype     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	ChunkSize    int       `json:"-"`
	ChunkCount   int       `json:"-"`
	UploadDate   time.Time `json:"uploadDate"`
}
