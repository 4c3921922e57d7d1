package vcs

import (
	"context"

	"github.com/fe-devtools/devflow/internal/models"
)

// MergeRequestClient creates and updates merge requests on the configured project.
type MergeRequestClient interface {
	// FindOpenMergeRequest returns the open MR whose source branch is source, or
	// nil when there is none.
	FindOpenMergeRequest(ctx context.Context, source string) (*models.MergeRequest, error)
	CreateMergeRequest(ctx context.Context, opts models.MergeRequestOptions) (*models.MergeRequest, error)
	// UpdateMergeRequest replaces title, description, target, labels and
	// reviewer of an existing MR.
	UpdateMergeRequest(ctx context.Context, iid int, opts models.MergeRequestOptions) (*models.MergeRequest, error)
}

// DiscussionClient reads and writes MR discussion threads.
type DiscussionClient interface {
	ListDiscussions(ctx context.Context, iid int) ([]models.Discussion, error)
	CreateDiscussion(ctx context.Context, iid int, body string) (*models.Discussion, error)
	ReplyToDiscussion(ctx context.Context, iid int, discussionID, body string) (*models.Note, error)
}

type UserClient interface {
	FindUserID(ctx context.Context, username string) (int, error)
	// CurrentUser returns the username the token belongs to.
	CurrentUser(ctx context.Context) (string, error)
}

// Client is everything the workflow needs from GitLab, whatever the transport.
type Client interface {
	MergeRequestClient
	DiscussionClient
	UserClient
}
