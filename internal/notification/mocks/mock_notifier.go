package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trackhub/internal/notification"
	"trackhub/internal/repository"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, q repository.DBTX, kind string, titleGroupID int64, title, body string) (notification.Result, error) {
	args := m.Called(ctx, q, kind, titleGroupID, title, body)
	return args.Get(0).(notification.Result), args.Error(1)
}
