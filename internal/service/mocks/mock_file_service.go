package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"homeguard/internal/model"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, userID string, r io.Reader, originalName, mimetype string, size int64) (*model.BlobFile, error) {
	args := m.Called(ctx, userID, r, originalName, mimetype, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, userID string) ([]model.BlobFile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlobFile), args.Error(1)
}

func (m *MockFileService) Download(ctx context.Context, userID, ref string) (io.ReadCloser, *model.BlobFile, error) {
	args := m.Called(ctx, userID, ref)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.BlobFile), args.Error(2)
}

func (m *MockFileService) Delete(ctx context.Context, userID, ref string) (*model.BlobFile, error) {
	args := m.Called(ctx, userID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}
