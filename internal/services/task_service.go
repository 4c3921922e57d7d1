package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/taskstore"
)

type TaskService struct {
	git         GitOperations
	tickets     TicketService
	starts      taskstore.StartInfoStore
	defaultBase string
	now         func() time.Time
}

func NewTaskService(git GitOperations, tickets TicketService, starts taskstore.StartInfoStore, defaultBase string) *TaskService {
	return &TaskService{
		git:         git,
		tickets:     tickets,
		starts:      starts,
		defaultBase: defaultBase,
		now:         time.Now,
	}
}

// Start creates feature/<ticket> from the remote base branch and records when
// and from where the task was started. The ticket must exist in Jira.
func (s *TaskService) Start(ctx context.Context, ticket, base string) (*models.StartTaskInfo, error) {
	if base == "" {
		base = s.defaultBase
	}
	log := logger.FromContext(ctx).With("ticket", ticket, "base", base)
	start := time.Now()

	if err := commit.ValidateTicket(ticket); err != nil {
		return nil, err
	}

	dirty, err := s.git.HasUncommittedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, errors.ErrUncommittedChanges
	}

	info, err := s.tickets.GetTicketInfo(ctx, ticket)
	if err != nil {
		log.Error("ticket lookup failed", "error", err)
		return nil, err
	}

	if err := s.git.Fetch(ctx, base); err != nil {
		return nil, err
	}
	exists, err := s.git.RemoteBranchExists(ctx, base)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrNoRemoteBranch.WithContext("branch", base)
	}

	branch := git.FeatureBranch(ticket)
	if err := s.git.CreateBranch(ctx, branch, s.git.Remote()+"/"+base); err != nil {
		return nil, err
	}

	record := models.StartTaskInfo{
		Ticket:     ticket,
		Summary:    info.Summary,
		IssueType:  info.IssueType,
		Branch:     branch,
		BaseBranch: base,
		StartedAt:  s.now().UTC(),
		Author:     s.git.UserName(ctx),
	}
	if err := s.starts.SaveStartInfo(ctx, record); err != nil {
		return nil, fmt.Errorf("error saving start info for %s: %w", ticket, err)
	}

	log.Info("task started", "branch", branch, "duration_ms", time.Since(start).Milliseconds())
	return &record, nil
}
