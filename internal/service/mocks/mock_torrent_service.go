package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trackhub/internal/model"
)

type MockTorrentService struct {
	mock.Mock
}

func (m *MockTorrentService) Create(ctx context.Context, upload *model.TorrentUpload, user *model.User) (*model.Torrent, error) {
	args := m.Called(ctx, upload, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Torrent), args.Error(1)
}

func (m *MockTorrentService) Download(ctx context.Context, torrentID int64, user *model.User) (*model.TorrentDownload, error) {
	args := m.Called(ctx, torrentID, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TorrentDownload), args.Error(1)
}

func (m *MockTorrentService) Remove(ctx context.Context, del *model.TorrentToDelete, actingUserID int64) error {
	args := m.Called(ctx, del, actingUserID)
	return args.Error(0)
}

func (m *MockTorrentService) ReconcilePeers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTorrentService) IncrementCompleted(ctx context.Context, torrentID int64) error {
	args := m.Called(ctx, torrentID)
	return args.Error(0)
}

func (m *MockTorrentService) ArchiveURL(ctx context.Context, torrentID int64) (string, error) {
	args := m.Called(ctx, torrentID)
	return args.String(0), args.Error(1)
}
