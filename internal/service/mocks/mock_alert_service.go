package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"homeguard/internal/service"
)

type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) SendUnknownFaceAlert(ctx context.Context, a service.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
