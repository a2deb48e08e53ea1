package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"homeguard/internal/blobstore"
	"homeguard/internal/model"
)

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockBlobStore) UploadFromStream(ctx context.Context, filename string, meta blobstore.Metadata, r io.Reader) (*model.BlobFile, error) {
	args := m.Called(ctx, filename, meta, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}

func (m *MockBlobStore) FindOne(ctx context.Context, filter blobstore.Filter) (*model.BlobFile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}

func (m *MockBlobStore) FindAll(ctx context.Context, filter blobstore.Filter) ([]model.BlobFile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlobFile), args.Error(1)
}

func (m *MockBlobStore) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, *model.BlobFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.BlobFile), args.Error(2)
}

func (m *MockBlobStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
