package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trackhub/internal/model"
	"trackhub/internal/repository"
)

type MockTorrentRepository struct {
	mock.Mock
}

func (m *MockTorrentRepository) Insert(ctx context.Context, q repository.DBTX, t *model.Torrent) (*model.Torrent, error) {
	args := m.Called(ctx, q, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Torrent), args.Error(1)
}

func (m *MockTorrentRepository) SnatchForDownload(ctx context.Context, q repository.DBTX, torrentID int64) (*repository.SnatchResult, error) {
	args := m.Called(ctx, q, torrentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SnatchResult), args.Error(1)
}

func (m *MockTorrentRepository) RecordActivity(ctx context.Context, q repository.DBTX, torrentID, userID int64) error {
	args := m.Called(ctx, q, torrentID, userID)
	return args.Error(0)
}

func (m *MockTorrentRepository) TitleGroupForEdition(ctx context.Context, q repository.DBTX, editionGroupID int64) (*model.TitleGroupLite, error) {
	args := m.Called(ctx, q, editionGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TitleGroupLite), args.Error(1)
}

func (m *MockTorrentRepository) Archive(ctx context.Context, q repository.DBTX, torrentID, deletedByID int64, reason string) ([]byte, error) {
	args := m.Called(ctx, q, torrentID, deletedByID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTorrentRepository) DeleteByID(ctx context.Context, q repository.DBTX, torrentID int64) error {
	args := m.Called(ctx, q, torrentID)
	return args.Error(0)
}

func (m *MockTorrentRepository) InfoHashByID(ctx context.Context, q repository.DBTX, torrentID int64) ([]byte, error) {
	args := m.Called(ctx, q, torrentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTorrentRepository) ReconcilePeerCounts(ctx context.Context, q repository.DBTX) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockTorrentRepository) IncrementCompleted(ctx context.Context, q repository.DBTX, torrentID int64) error {
	args := m.Called(ctx, q, torrentID)
	return args.Error(0)
}
