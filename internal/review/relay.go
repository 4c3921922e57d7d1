package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
	"github.com/fe-devtools/devflow/internal/taskstore"
	"github.com/fe-devtools/devflow/internal/vcs"
)

// StateStore keeps the per-MR relay bookkeeping.
type StateStore interface {
	LoadRelayState(iid int) (*taskstore.RelayState, error)
	SaveRelayState(iid int, state *taskstore.RelayState) error
}

// SyncResult counts what one Sync did.
type SyncResult struct {
	ReviewID  string `json:"reviewId"`
	Created   int    `json:"created"`
	Forwarded int    `json:"forwarded"`
	Skipped   int    `json:"skipped"`
}

// Relay mirrors review comments into GitLab discussions and sends the human
// replies in those discussions back to the review service.
type Relay struct {
	service     Service
	discussions vcs.DiscussionClient
	state       StateStore
	project     string
	agentName   string
}

func NewRelay(service Service, discussions vcs.DiscussionClient, state StateStore, project, agentName string) *Relay {
	return &Relay{
		service:     service,
		discussions: discussions,
		state:       state,
		project:     project,
		agentName:   agentName,
	}
}

// Submit asks the review service to review mr.
func (r *Relay) Submit(ctx context.Context, mr *models.MergeRequest) (*Review, error) {
	review, err := r.service.SubmitReview(ctx, SubmitRequest{
		Project:         r.project,
		MergeRequestIID: mr.IID,
		SourceBranch:    mr.SourceBranch,
		TargetBranch:    mr.TargetBranch,
		Title:           mr.Title,
		WebURL:          mr.WebURL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "review submitted", "iid", mr.IID, "review_id", review.ID)
	return review, nil
}

// Sync relays the latest review of MR iid in both directions. Each review
// comment becomes at most one discussion and each human reply is forwarded at
// most once.
func (r *Relay) Sync(ctx context.Context, iid int) (*SyncResult, error) {
	log := logger.FromContext(ctx).With("iid", iid)
	start := time.Now()

	review, err := r.service.LatestReview(ctx, r.project, iid)
	if err != nil {
		return nil, err
	}
	comments, err := r.service.Comments(ctx, review.ID)
	if err != nil {
		return nil, err
	}
	discussions, err := r.discussions.ListDiscussions(ctx, iid)
	if err != nil {
		return nil, err
	}
	state, err := r.state.LoadRelayState(iid)
	if err != nil {
		return nil, err
	}
	state.ReviewID = review.ID

	result := &SyncResult{ReviewID: review.ID}
	relayed := make(map[string]bool)
	for _, d := range discussions {
		if id, ok := RelayedCommentID(d); ok {
			relayed[id] = true
		}
	}

	for _, c := range comments {
		if relayed[c.ID] {
			continue
		}
		if _, err := r.discussions.CreateDiscussion(ctx, iid, r.FormatComment(c)); err != nil {
			return result, err
		}
		log.Debug("review comment relayed", "comment_id", c.ID, "path", c.Path)
		result.Created++
	}

	known := make(map[string]bool, len(comments))
	for _, c := range comments {
		known[c.ID] = true
	}
	for _, d := range discussions {
		commentID, ok := RelayedCommentID(d)
		if !ok || !known[commentID] {
			continue
		}
		for _, n := range d.Notes[1:] {
			if n.System || regex.ReviewMarker.MatchString(n.Body) {
				continue
			}
			if state.IsForwarded(n.ID) {
				result.Skipped++
				continue
			}
			err := r.service.Reply(ctx, review.ID, commentID, Reply{
				Body:     n.Body,
				Author:   n.Author,
				SourceID: fmt.Sprintf("gitlab-note-%d", n.ID),
			})
			if err != nil {
				if saveErr := r.state.SaveRelayState(iid, state); saveErr != nil {
					log.Warn("relay state not saved", "error", saveErr)
				}
				return result, err
			}
			state.MarkForwarded(n.ID)
			result.Forwarded++
		}
	}

	if err := r.state.SaveRelayState(iid, state); err != nil {
		return result, err
	}
	log.Info("review synced",
		"review_id", review.ID,
		"created", result.Created,
		"forwarded", result.Forwarded,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// FormatComment renders a review comment as the first note of a discussion,
// ending with the hidden marker that ties it to the comment.
func (r *Relay) FormatComment(c models.ReviewComment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", r.agentName)
	if c.Severity != "" {
		fmt.Fprintf(&b, " [%s]", c.Severity)
	}
	if c.Path != "" {
		if c.Line > 0 {
			fmt.Fprintf(&b, " `%s:%d`", c.Path, c.Line)
		} else {
			fmt.Fprintf(&b, " `%s`", c.Path)
		}
	}
	fmt.Fprintf(&b, "\n\n%s\n\n%s", strings.TrimSpace(c.Body), Marker(c.ID))
	return b.String()
}

func Marker(commentID string) string {
	return fmt.Sprintf("<!-- devflow-review:%s -->", commentID)
}

// RelayedCommentID returns the review comment a discussion was created for.
func RelayedCommentID(d models.Discussion) (string, bool) {
	if len(d.Notes) == 0 {
		return "", false
	}
	m := regex.ReviewMarker.FindStringSubmatch(d.Notes[0].Body)
	if m == nil {
		return "", false
	}
	return m[1], true
}
