package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/labels"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/review"
)

type (
	MockGitService struct {
		mock.Mock
	}

	MockTicketService struct {
		mock.Mock
	}

	MockLabelDecider struct {
		mock.Mock
	}

	MockReviewRelay struct {
		mock.Mock
	}

	MockLinter struct {
		mock.Mock
	}
)

func (m *MockGitService) Remote() string {
	return "origin"
}

func (m *MockGitService) CurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGitService) UserName(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

func (m *MockGitService) HasUncommittedChanges(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitService) HasStagedChanges(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitService) ConflictedFiles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGitService) RebaseInProgress(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitService) Fetch(ctx context.Context, branch string) error {
	args := m.Called(ctx, branch)
	return args.Error(0)
}

func (m *MockGitService) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	args := m.Called(ctx, ancestor, descendant)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitService) Rebase(ctx context.Context, onto string) error {
	args := m.Called(ctx, onto)
	return args.Error(0)
}

func (m *MockGitService) Push(ctx context.Context, opts git.PushOptions) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

func (m *MockGitService) RemoteBranchExists(ctx context.Context, branch string) (bool, error) {
	args := m.Called(ctx, branch)
	return args.Bool(0), args.Error(1)
}

func (m *MockGitService) CreateBranch(ctx context.Context, name, start string) error {
	args := m.Called(ctx, name, start)
	return args.Error(0)
}

func (m *MockGitService) Commit(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockGitService) LogOneline(ctx context.Context, rangeSpec string) ([]string, error) {
	args := m.Called(ctx, rangeSpec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGitService) DiffNameStatus(ctx context.Context, target string) ([]models.ChangedFile, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangedFile), args.Error(1)
}

func (m *MockTicketService) GetTicketInfo(ctx context.Context, key string) (*models.TicketInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketInfo), args.Error(1)
}

func (m *MockTicketService) BrowseURL(key string) string {
	return "https://jira.example.com/browse/" + key
}

func (m *MockLabelDecider) Decide(ctx context.Context, in labels.Input) (labels.Decision, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(labels.Decision), args.Error(1)
}

func (m *MockReviewRelay) Submit(ctx context.Context, mr *models.MergeRequest) (*review.Review, error) {
	args := m.Called(ctx, mr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Review), args.Error(1)
}

func (m *MockLinter) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockReviewRelay) Sync(ctx context.Context, iid int) (*review.SyncResult, error) {
	args := m.Called(ctx, iid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.SyncResult), args.Error(1)
}
