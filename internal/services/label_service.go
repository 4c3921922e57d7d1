package services

import (
	"context"
	"strings"

	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/labels"
	"github.com/fe-devtools/devflow/internal/models"
)

// LabelPreview is the decision the mr command would make right now.
type LabelPreview struct {
	Ticket   string
	Target   string
	Files    []models.ChangedFile
	Decision labels.Decision
}

// LabelService computes MR labels without pushing or touching GitLab.
type LabelService struct {
	git         GitOperations
	decider     LabelDecider
	defaultBase string
}

func NewLabelService(git GitOperations, decider LabelDecider, defaultBase string) *LabelService {
	return &LabelService{git: git, decider: decider, defaultBase: defaultBase}
}

// Preview decides the labels of the current branch against target. An empty
// ticket is taken from the branch name.
func (s *LabelService) Preview(ctx context.Context, ticket, target string) (*LabelPreview, error) {
	target = firstNonEmpty(target, s.defaultBase)
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		branch, err := s.git.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
		ticket = git.TicketFromBranch(branch)
	}
	if ticket != models.NoTicket {
		if err := commit.ValidateTicket(ticket); err != nil {
			return nil, err
		}
	}

	if err := s.git.Fetch(ctx, target); err != nil {
		return nil, err
	}
	files, err := s.git.DiffNameStatus(ctx, s.git.Remote()+"/"+target)
	if err != nil {
		return nil, err
	}

	decision, err := s.decider.Decide(ctx, labels.Input{Ticket: ticket, Files: files, TargetBranch: target})
	preview := &LabelPreview{Ticket: ticket, Target: target, Files: files, Decision: decision}
	return preview, err
}
