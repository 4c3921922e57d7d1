package services

import (
	"context"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/review"
	"github.com/fe-devtools/devflow/internal/vcs"
)

// ReviewRelay is implemented by review.Relay.
type ReviewRelay interface {
	ReviewSubmitter
	Sync(ctx context.Context, iid int) (*review.SyncResult, error)
}

var _ ReviewRelay = (*review.Relay)(nil)

// ReviewService runs the review relay for an MR given by IID or, when the IID
// is zero, for the open MR of the current branch.
type ReviewService struct {
	git   GitOperations
	mrs   vcs.MergeRequestClient
	relay ReviewRelay
}

func NewReviewService(git GitOperations, mrs vcs.MergeRequestClient, relay ReviewRelay) *ReviewService {
	return &ReviewService{git: git, mrs: mrs, relay: relay}
}

func (s *ReviewService) Submit(ctx context.Context, iid int) (*review.Review, error) {
	mr, err := s.resolve(ctx, iid)
	if err != nil {
		return nil, err
	}
	return s.relay.Submit(ctx, mr)
}

func (s *ReviewService) Sync(ctx context.Context, iid int) (*review.SyncResult, error) {
	mr, err := s.resolve(ctx, iid)
	if err != nil {
		return nil, err
	}
	return s.relay.Sync(ctx, mr.IID)
}

func (s *ReviewService) resolve(ctx context.Context, iid int) (*models.MergeRequest, error) {
	if iid > 0 {
		return &models.MergeRequest{IID: iid}, nil
	}

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	mr, err := s.mrs.FindOpenMergeRequest(ctx, branch)
	if err != nil {
		return nil, err
	}
	if mr == nil {
		return nil, errors.ErrMergeRequestNotFound.WithContext("branch", branch)
	}
	return mr, nil
}
