package review

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fe-devtools/devflow/internal/models"
)

var _ Service = (*MockService)(nil)

type MockService struct {
	mock.Mock
}

func (m *MockService) SubmitReview(ctx context.Context, req SubmitRequest) (*Review, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Review), args.Error(1)
}

func (m *MockService) LatestReview(ctx context.Context, project string, iid int) (*Review, error) {
	args := m.Called(ctx, project, iid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Review), args.Error(1)
}

func (m *MockService) Comments(ctx context.Context, reviewID string) ([]models.ReviewComment, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewComment), args.Error(1)
}

func (m *MockService) Reply(ctx context.Context, reviewID, commentID string, reply Reply) error {
	args := m.Called(ctx, reviewID, commentID, reply)
	return args.Error(0)
}
