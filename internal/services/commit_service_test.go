package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/git"
)

func TestCommitService_Commit(t *testing.T) {
	ctx := context.Background()

	setup := func() (*CommitService, *MockGitService, *MockLinter) {
		gitMock := new(MockGitService)
		linter := new(MockLinter)
		return NewCommitService(gitMock, linter), gitMock, linter
	}

	t.Run("ticket comes from the branch", func(t *testing.T) {
		svc, gitMock, linter := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("feature/FE-1234", nil)
		gitMock.On("HasStagedChanges", mock.Anything).Return(true, nil)
		linter.On("Run", mock.Anything).Return(nil)
		gitMock.On("Commit", mock.Anything, "fix(FE-1234): correct button padding").Return(nil)

		result, err := svc.Commit(ctx, CommitOptions{Type: "fix", Message: "correct button padding"})
		require.NoError(t, err)
		assert.Equal(t, &CommitResult{Message: "fix(FE-1234): correct button padding", Branch: "feature/FE-1234"}, result)
		gitMock.AssertExpectations(t)
		linter.AssertExpectations(t)
	})

	t.Run("branch without ticket", func(t *testing.T) {
		svc, gitMock, _ := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("main", nil)
		gitMock.On("HasStagedChanges", mock.Anything).Return(true, nil)
		gitMock.On("Commit", mock.Anything, "chore: bump deps").Return(nil)

		result, err := svc.Commit(ctx, CommitOptions{Type: "chore", Message: "bump deps", SkipLint: true})
		require.NoError(t, err)
		assert.Equal(t, "chore: bump deps", result.Message)
	})

	t.Run("auto push sets upstream for a new branch", func(t *testing.T) {
		svc, gitMock, linter := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("feature/FE-9", nil)
		gitMock.On("HasStagedChanges", mock.Anything).Return(true, nil)
		linter.On("Run", mock.Anything).Return(nil)
		gitMock.On("Commit", mock.Anything, "feat(FE-9): add dark mode").Return(nil)
		gitMock.On("RemoteBranchExists", mock.Anything, "feature/FE-9").Return(false, nil)
		gitMock.On("Push", mock.Anything, git.PushOptions{Branch: "feature/FE-9", SetUpstream: true}).Return(nil)

		result, err := svc.Commit(ctx, CommitOptions{Type: "feat", Message: "add dark mode", AutoPush: true})
		require.NoError(t, err)
		assert.True(t, result.Pushed)
		gitMock.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			opts CommitOptions
			want error
		}{
			{"unknown type", CommitOptions{Type: "feature", Message: "x"}, errors.ErrInvalidCommitType},
			{"uppercase message", CommitOptions{Type: "fix", Message: "Fix it"}, errors.ErrInvalidCommitMessage},
			{"empty message", CommitOptions{Type: "fix", Message: "  "}, errors.ErrInvalidCommitMessage},
			{"cjk message", CommitOptions{Type: "fix", Message: "修正 padding"}, errors.ErrInvalidCommitMessage},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, gitMock, _ := setup()
				_, err := svc.Commit(ctx, tt.opts)
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, errors.TypeValidation, errors.KindOf(err))
				gitMock.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("explicit ticket is validated", func(t *testing.T) {
		svc, gitMock, _ := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("feature/FE-1", nil)

		_, err := svc.Commit(ctx, CommitOptions{Type: "fix", Ticket: "fe-1", Message: "x"})
		assert.ErrorIs(t, err, errors.ErrInvalidTicket)
	})

	t.Run("nothing staged", func(t *testing.T) {
		svc, gitMock, linter := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("feature/FE-1", nil)
		gitMock.On("HasStagedChanges", mock.Anything).Return(false, nil)

		_, err := svc.Commit(ctx, CommitOptions{Type: "fix", Message: "x"})
		assert.ErrorIs(t, err, errors.ErrNoStagedChanges)
		linter.AssertNotCalled(t, "Run", mock.Anything)
	})

	t.Run("lint failure prevents the commit", func(t *testing.T) {
		svc, gitMock, linter := setup()
		gitMock.On("CurrentBranch", mock.Anything).Return("feature/FE-1", nil)
		gitMock.On("HasStagedChanges", mock.Anything).Return(true, nil)
		linter.On("Run", mock.Anything).Return(errors.ErrLintFailed)

		_, err := svc.Commit(ctx, CommitOptions{Type: "fix", Message: "x"})
		assert.ErrorIs(t, err, errors.ErrLintFailed)
		gitMock.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	})
}
