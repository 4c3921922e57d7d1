package vcs

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fe-devtools/devflow/internal/models"
)

var _ Client = (*MockClient)(nil)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) FindOpenMergeRequest(ctx context.Context, source string) (*models.MergeRequest, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MergeRequest), args.Error(1)
}

func (m *MockClient) CreateMergeRequest(ctx context.Context, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MergeRequest), args.Error(1)
}

func (m *MockClient) UpdateMergeRequest(ctx context.Context, iid int, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	args := m.Called(ctx, iid, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MergeRequest), args.Error(1)
}

func (m *MockClient) ListDiscussions(ctx context.Context, iid int) ([]models.Discussion, error) {
	args := m.Called(ctx, iid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Discussion), args.Error(1)
}

func (m *MockClient) CreateDiscussion(ctx context.Context, iid int, body string) (*models.Discussion, error) {
	args := m.Called(ctx, iid, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Discussion), args.Error(1)
}

func (m *MockClient) ReplyToDiscussion(ctx context.Context, iid int, discussionID, body string) (*models.Note, error) {
	args := m.Called(ctx, iid, discussionID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockClient) FindUserID(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockClient) CurrentUser(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
