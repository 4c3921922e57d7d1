package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/labels"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/vcs"
)

type MROptions struct {
	// Target is the requested target branch. When empty the configured
	// default is used and a hotfix fix version may redirect the MR to its
	// release branch.
	Target   string
	Reviewer string
	Title    string
	Draft    bool
	Labels   []string
	NoReview bool

	// BeforePush and AfterPush, when set, run around git push so a caller
	// can release the terminal while git streams its progress.
	BeforePush func()
	AfterPush  func()
}

type MRResult struct {
	MergeRequest *models.MergeRequest
	Created      bool
	Rebased      bool
	Ticket       string
	Target       string
	Decision     labels.Decision
	ReviewID     string
	Warnings     []string
}

func (r *MRResult) warn(log *slog.Logger, msg string, err error) {
	log.Warn(msg, "error", err)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

type MRService struct {
	git     GitOperations
	gitlab  vcs.Client
	decider LabelDecider
	reports *ReportService
	cfg     config.GitLabConfig
	tickets TicketService
	reviews ReviewSubmitter
}

type MROption func(*MRService)

func WithMRTickets(t TicketService) MROption {
	return func(s *MRService) { s.tickets = t }
}

func WithReviews(r ReviewSubmitter) MROption {
	return func(s *MRService) { s.reviews = r }
}

func NewMRService(git GitOperations, gitlab vcs.Client, decider LabelDecider, reports *ReportService, cfg config.GitLabConfig, opts ...MROption) *MRService {
	s := &MRService{
		git:     git,
		gitlab:  gitlab,
		decider: decider,
		reports: reports,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit brings the current branch up to date with its target, pushes it and
// creates or updates its merge request. The steps run strictly in order and
// the first failing one ends the run, except for the optional lookups (task
// origin, assignee, AI review) which only add warnings.
func (s *MRService) Submit(ctx context.Context, opts MROptions) (*MRResult, error) {
	start := time.Now()

	if err := s.preflight(ctx); err != nil {
		return nil, err
	}

	branch, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	ticket := git.TicketFromBranch(branch)
	if ticket != models.NoTicket {
		if err := commit.ValidateTicket(ticket); err != nil {
			return nil, err
		}
	}
	log := logger.FromContext(ctx).With("ticket", ticket, "branch", branch)
	result := &MRResult{Ticket: ticket}

	info, err := s.ticketInfo(ctx, log, ticket, result)
	if err != nil {
		return nil, err
	}

	target := strings.TrimSpace(opts.Target)
	explicit := target != ""
	if !explicit {
		target = s.cfg.DefaultTarget
	}
	if err := s.git.Fetch(ctx, target); err != nil {
		return nil, err
	}

	files, err := s.git.DiffNameStatus(ctx, s.remoteRef(target))
	if err != nil {
		return nil, err
	}
	decision, err := s.decider.Decide(ctx, labels.Input{Ticket: ticket, Files: files, TargetBranch: target})
	if err != nil {
		return nil, err
	}
	result.Decision = decision
	result.Warnings = append(result.Warnings, decision.Warnings...)

	if decision.ReleaseBranch != "" && decision.ReleaseBranch != target {
		if explicit {
			log.Warn("hotfix release branch ignored, target given explicitly",
				"target", target, "release_branch", decision.ReleaseBranch)
		} else {
			log.Info("hotfix redirects target", "from", target, "to", decision.ReleaseBranch)
			target = decision.ReleaseBranch
			if err := s.git.Fetch(ctx, target); err != nil {
				return nil, err
			}
		}
	}
	result.Target = target
	log = log.With("target", target)

	rebased, err := s.syncWithTarget(ctx, log, target)
	if err != nil {
		return nil, err
	}
	result.Rebased = rebased

	exists, err := s.git.RemoteBranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if opts.BeforePush != nil {
		opts.BeforePush()
	}
	err = s.git.Push(ctx, git.PushOptions{Branch: branch, ForceWithLease: rebased && exists, SetUpstream: !exists})
	if opts.AfterPush != nil {
		opts.AfterPush()
	}
	if err != nil {
		return nil, err
	}

	description, err := s.description(ctx, ticket, target)
	if err != nil {
		return nil, err
	}

	mrOpts := models.MergeRequestOptions{
		SourceBranch:       branch,
		TargetBranch:       target,
		Title:              s.title(ctx, opts.Title, ticket, info, target),
		Description:        description,
		Draft:              opts.Draft,
		Reviewer:           firstNonEmpty(opts.Reviewer, s.cfg.Reviewer),
		Labels:             mergeLabels(decision.Labels, opts.Labels),
		RemoveSourceBranch: s.cfg.RemoveSourceBranch,
	}
	if user, err := s.gitlab.CurrentUser(ctx); err != nil {
		result.warn(log, "assignee lookup failed", err)
	} else {
		mrOpts.Assignee = user
	}

	mr, created, err := s.upsert(ctx, mrOpts)
	if err != nil {
		return nil, err
	}
	result.MergeRequest, result.Created = mr, created

	if s.reviews != nil && !opts.NoReview {
		if rv, err := s.reviews.Submit(ctx, mr); err != nil {
			result.warn(log, "ai review submission failed", err)
		} else {
			result.ReviewID = rv.ID
		}
	}

	log.Info("merge request ready",
		"iid", mr.IID,
		"created", created,
		"rebased", rebased,
		"labels_count", len(mrOpts.Labels),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (s *MRService) preflight(ctx context.Context) error {
	inRebase, err := s.git.RebaseInProgress(ctx)
	if err != nil {
		return err
	}
	if inRebase {
		return errors.ErrRebaseInProgress
	}

	conflicted, err := s.git.ConflictedFiles(ctx)
	if err != nil {
		return err
	}
	if len(conflicted) > 0 {
		return errors.ErrRebaseConflict.WithContext("files", conflicted)
	}

	dirty, err := s.git.HasUncommittedChanges(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return errors.ErrUncommittedChanges
	}
	return nil
}

// ticketInfo fetches the ticket. Rejected credentials stop the run; any
// other failure leaves the MR without ticket details.
func (s *MRService) ticketInfo(ctx context.Context, log *slog.Logger, ticket string, result *MRResult) (*models.TicketInfo, error) {
	if ticket == models.NoTicket || s.tickets == nil {
		return nil, nil
	}
	info, err := s.tickets.GetTicketInfo(ctx, ticket)
	if err == nil {
		return info, nil
	}
	if errors.IsKind(err, errors.TypeAuth) {
		log.Error("jira rejected the credentials", "error", err)
		return nil, err
	}
	result.warn(log, "jira lookup failed", err)
	return nil, nil
}

// syncWithTarget rebases onto the remote target unless it is already an
// ancestor of HEAD.
func (s *MRService) syncWithTarget(ctx context.Context, log *slog.Logger, target string) (bool, error) {
	ref := s.remoteRef(target)
	upToDate, err := s.git.IsAncestor(ctx, ref, "HEAD")
	if err != nil {
		return false, err
	}
	if upToDate {
		log.Debug("branch already contains target")
		return false, nil
	}

	log.Info("rebasing onto target", "onto", ref)
	if err := s.git.Rebase(ctx, ref); err != nil {
		return false, err
	}
	return true, nil
}

// description renders the task files when there are any, otherwise the
// commits of the branch.
func (s *MRService) description(ctx context.Context, ticket, target string) (string, error) {
	_, hasTaskFiles, err := s.reports.Info(ticket)
	if err != nil {
		return "", err
	}
	if hasTaskFiles {
		return s.reports.Render(ctx, ticket)
	}

	commits, err := s.git.LogOneline(ctx, s.remoteRef(target)+"..HEAD")
	if err != nil {
		return "", err
	}
	return s.reports.FromCommits(ticket, commits), nil
}

func (s *MRService) title(ctx context.Context, explicit, ticket string, info *models.TicketInfo, target string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if info != nil && info.Summary != "" {
		return fmt.Sprintf("%s: %s", ticket, info.Summary)
	}
	if commits, err := s.git.LogOneline(ctx, s.remoteRef(target)+"..HEAD"); err == nil && len(commits) > 0 {
		if subject := commitSubject(commits[len(commits)-1]); subject != "" {
			return subject
		}
	}
	return ticket
}

func (s *MRService) upsert(ctx context.Context, opts models.MergeRequestOptions) (*models.MergeRequest, bool, error) {
	existing, err := s.gitlab.FindOpenMergeRequest(ctx, opts.SourceBranch)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		mr, err := s.gitlab.UpdateMergeRequest(ctx, existing.IID, opts)
		return mr, false, err
	}
	mr, err := s.gitlab.CreateMergeRequest(ctx, opts)
	return mr, true, err
}

func (s *MRService) remoteRef(branch string) string {
	return s.git.Remote() + "/" + branch
}

func mergeLabels(groups ...[]string) []string {
	set := labels.NewLabelSet()
	for _, g := range groups {
		set.Add(g...)
	}
	return set.List()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
