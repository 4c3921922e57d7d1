package services

import (
	"context"

	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/labels"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/review"
)

type (
	// GitOperations is the part of the git service the workflows drive.
	GitOperations interface {
		Remote() string
		CurrentBranch(ctx context.Context) (string, error)
		UserName(ctx context.Context) string
		HasUncommittedChanges(ctx context.Context) (bool, error)
		HasStagedChanges(ctx context.Context) (bool, error)
		ConflictedFiles(ctx context.Context) ([]string, error)
		RebaseInProgress(ctx context.Context) (bool, error)
		Fetch(ctx context.Context, branch string) error
		IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
		Rebase(ctx context.Context, onto string) error
		Push(ctx context.Context, opts git.PushOptions) error
		RemoteBranchExists(ctx context.Context, branch string) (bool, error)
		CreateBranch(ctx context.Context, name, start string) error
		Commit(ctx context.Context, message string) error
		LogOneline(ctx context.Context, rangeSpec string) ([]string, error)
		DiffNameStatus(ctx context.Context, target string) ([]models.ChangedFile, error)
	}

	TicketService interface {
		GetTicketInfo(ctx context.Context, key string) (*models.TicketInfo, error)
		BrowseURL(key string) string
	}

	LabelDecider interface {
		Decide(ctx context.Context, in labels.Input) (labels.Decision, error)
	}

	ReviewSubmitter interface {
		Submit(ctx context.Context, mr *models.MergeRequest) (*review.Review, error)
	}

	// Linter runs the project lint command.
	Linter interface {
		Run(ctx context.Context) error
	}
)

var (
	_ GitOperations   = (*git.GitService)(nil)
	_ LabelDecider    = (*labels.Decider)(nil)
	_ ReviewSubmitter = (*review.Relay)(nil)
	_ Linter          = (*LintService)(nil)
)
