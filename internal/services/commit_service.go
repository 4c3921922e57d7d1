package services

import (
	"context"
	"strings"

	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

type CommitOptions struct {
	Type    string
	Ticket  string
	Message string
	// SkipLint commits without running the lint command first.
	SkipLint bool
	AutoPush bool
}

type CommitResult struct {
	Message string
	Branch  string
	Pushed  bool
}

type CommitService struct {
	git  GitOperations
	lint Linter
}

func NewCommitService(git GitOperations, lint Linter) *CommitService {
	return &CommitService{
		git:  git,
		lint: lint,
	}
}

// Commit validates the parts of a conventional commit, lints, commits the
// staged changes and optionally pushes. Without an explicit ticket the one
// carried by the branch name is used.
func (s *CommitService) Commit(ctx context.Context, opts CommitOptions) (*CommitResult, error) {
	opts.Type = strings.TrimSpace(opts.Type)
	opts.Message = strings.TrimSpace(opts.Message)

	if err := commit.ValidateType(opts.Type); err != nil {
		return nil, err
	}
	if err := commit.ValidateMessage(opts.Message); err != nil {
		return nil, err
	}

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	ticket := strings.TrimSpace(opts.Ticket)
	if ticket == "" {
		ticket = git.TicketFromBranch(branch)
	}
	if ticket != models.NoTicket {
		if err := commit.ValidateTicket(ticket); err != nil {
			return nil, err
		}
	}
	log := logger.FromContext(ctx).With("ticket", ticket, "branch", branch)

	staged, err := s.git.HasStagedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if !staged {
		return nil, errors.ErrNoStagedChanges
	}

	if !opts.SkipLint && s.lint != nil {
		if err := s.lint.Run(ctx); err != nil {
			return nil, err
		}
	}

	message := commit.FormatMessage(opts.Type, ticket, opts.Message)
	if err := s.git.Commit(ctx, message); err != nil {
		return nil, err
	}
	log.Info("commit created", "message", message)

	result := &CommitResult{Message: message, Branch: branch}
	if !opts.AutoPush {
		return result, nil
	}

	exists, err := s.git.RemoteBranchExists(ctx, branch)
	if err != nil {
		return result, err
	}
	if err := s.git.Push(ctx, git.PushOptions{Branch: branch, SetUpstream: !exists}); err != nil {
		return result, err
	}
	result.Pushed = true
	log.Info("branch pushed", "set_upstream", !exists)
	return result, nil
}
