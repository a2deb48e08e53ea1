package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"homeguard/internal/notifier"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notifier.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
