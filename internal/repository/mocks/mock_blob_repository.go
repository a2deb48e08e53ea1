package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"homeguard/internal/model"
	"homeguard/internal/repository"
)

type MockBlobRepository struct {
	mock.Mock
}

func (m *MockBlobRepository) Insert(ctx context.Context, f *model.BlobFile) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockBlobRepository) Find(ctx context.Context, filter repository.BlobFilter, after *repository.BlobPosition, limit int) ([]model.BlobFile, error) {
	args := m.Called(ctx, filter, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlobFile), args.Error(1)
}

func (m *MockBlobRepository) Get(ctx context.Context, id string) (*model.BlobFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}

func (m *MockBlobRepository) Delete(ctx context.Context, id string) (*model.BlobFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobFile), args.Error(1)
}
