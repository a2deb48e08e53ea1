package service

import (
	"errors"

	"homeguard/internal/blobstore"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email/password")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrFileRequired       = errors.New("no file uploaded")
	ErrLedgerUpdate       = errors.New("file stored but ownership update failed")

	// ErrUnavailable is returned while blob storage is still initializing.
	ErrUnavailable = blobstore.ErrUnavailable
)
