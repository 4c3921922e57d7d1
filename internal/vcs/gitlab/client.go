package gitlab

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/vcs"
)

var _ vcs.Client = (*GitLabClient)(nil)

// DraftPrefix marks a draft MR in its title.
const DraftPrefix = "Draft: "

const perPage = 100

type MergeRequestsService interface {
	ListProjectMergeRequests(pid interface{}, opt *gitlab.ListProjectMergeRequestsOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.MergeRequest, *gitlab.Response, error)
	CreateMergeRequest(pid interface{}, opt *gitlab.CreateMergeRequestOptions, options ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error)
	UpdateMergeRequest(pid interface{}, mergeRequest int, opt *gitlab.UpdateMergeRequestOptions, options ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error)
}

type DiscussionsService interface {
	ListMergeRequestDiscussions(pid interface{}, mergeRequest int, opt *gitlab.ListMergeRequestDiscussionsOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.Discussion, *gitlab.Response, error)
	CreateMergeRequestDiscussion(pid interface{}, mergeRequest int, opt *gitlab.CreateMergeRequestDiscussionOptions, options ...gitlab.RequestOptionFunc) (*gitlab.Discussion, *gitlab.Response, error)
	AddMergeRequestDiscussionNote(pid interface{}, mergeRequest int, discussion string, opt *gitlab.AddMergeRequestDiscussionNoteOptions, options ...gitlab.RequestOptionFunc) (*gitlab.Note, *gitlab.Response, error)
}

type UsersService interface {
	ListUsers(opt *gitlab.ListUsersOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.User, *gitlab.Response, error)
	CurrentUser(options ...gitlab.RequestOptionFunc) (*gitlab.User, *gitlab.Response, error)
}

// GitLabClient talks to the GitLab REST v4 API with a personal access token.
type GitLabClient struct {
	mrService         MergeRequestsService
	discussionService DiscussionsService
	usersService      UsersService
	project           string
}

// NewGitLabClient builds a client for project ("group/name" or numeric ID) on host.
func NewGitLabClient(host, project, token string, httpClient *http.Client) (*GitLabClient, error) {
	options := []gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(strings.TrimRight(host, "/") + "/api/v4"),
	}
	if httpClient != nil {
		options = append(options, gitlab.WithHTTPClient(httpClient))
	}

	client, err := gitlab.NewClient(token, options...)
	if err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err).WithContext("host", host)
	}

	return NewGitLabClientWithServices(client.MergeRequests, client.Discussions, client.Users, project), nil
}

// NewGitLabClientWithServices creates a client with injected services (for testing)
func NewGitLabClientWithServices(
	mrService MergeRequestsService,
	discussionService DiscussionsService,
	usersService UsersService,
	project string,
) *GitLabClient {
	return &GitLabClient{
		mrService:         mrService,
		discussionService: discussionService,
		usersService:      usersService,
		project:           project,
	}
}

func (c *GitLabClient) FindOpenMergeRequest(ctx context.Context, source string) (*models.MergeRequest, error) {
	mrs, resp, err := c.mrService.ListProjectMergeRequests(c.project, &gitlab.ListProjectMergeRequestsOptions{
		State:        gitlab.Ptr("opened"),
		SourceBranch: gitlab.Ptr(source),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, resp, "list merge requests")
	}

	for _, mr := range mrs {
		if mr != nil && mr.SourceBranch == source {
			converted := fromMergeRequest(mr)
			return &converted, nil
		}
	}
	return nil, nil
}

// CreateMergeRequest opens an MR. Reviewer and Assignee usernames are resolved
// to user IDs first.
func (c *GitLabClient) CreateMergeRequest(ctx context.Context, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	log := logger.FromContext(ctx)

	create := &gitlab.CreateMergeRequestOptions{
		Title:              gitlab.Ptr(DraftTitle(opts.Title, opts.Draft)),
		Description:        gitlab.Ptr(opts.Description),
		SourceBranch:       gitlab.Ptr(opts.SourceBranch),
		TargetBranch:       gitlab.Ptr(opts.TargetBranch),
		RemoveSourceBranch: gitlab.Ptr(opts.RemoveSourceBranch),
	}
	if len(opts.Labels) > 0 {
		labels := gitlab.LabelOptions(opts.Labels)
		create.Labels = &labels
	}

	if opts.Reviewer != "" {
		id, err := c.FindUserID(ctx, opts.Reviewer)
		if err != nil {
			return nil, err
		}
		create.ReviewerIDs = &[]int{id}
	}
	if opts.Assignee != "" {
		id, err := c.FindUserID(ctx, opts.Assignee)
		if err != nil {
			return nil, err
		}
		create.AssigneeID = gitlab.Ptr(id)
	}

	log.Debug("creating merge request",
		"branch", opts.SourceBranch,
		"target", opts.TargetBranch,
		"labels_count", len(opts.Labels))

	mr, resp, err := c.mrService.CreateMergeRequest(c.project, create, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, resp, "create merge request")
	}

	converted := fromMergeRequest(mr)
	return &converted, nil
}

func (c *GitLabClient) UpdateMergeRequest(ctx context.Context, iid int, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	labels := gitlab.LabelOptions(opts.Labels)
	update := &gitlab.UpdateMergeRequestOptions{
		Title:        gitlab.Ptr(DraftTitle(opts.Title, opts.Draft)),
		Description:  gitlab.Ptr(opts.Description),
		TargetBranch: gitlab.Ptr(opts.TargetBranch),
		Labels:       &labels,
	}
	if opts.Reviewer != "" {
		id, err := c.FindUserID(ctx, opts.Reviewer)
		if err != nil {
			return nil, err
		}
		update.ReviewerIDs = &[]int{id}
	}
	if opts.Assignee != "" {
		id, err := c.FindUserID(ctx, opts.Assignee)
		if err != nil {
			return nil, err
		}
		update.AssigneeID = gitlab.Ptr(id)
	}

	logger.Debug(ctx, "updating merge request", "iid", iid, "labels_count", len(opts.Labels))

	mr, resp, err := c.mrService.UpdateMergeRequest(c.project, iid, update, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, resp, "update merge request")
	}

	converted := fromMergeRequest(mr)
	return &converted, nil
}

// ListDiscussions returns every discussion of the MR, following pagination.
func (c *GitLabClient) ListDiscussions(ctx context.Context, iid int) ([]models.Discussion, error) {
	var result []models.Discussion
	page := 1

	for {
		discussions, resp, err := c.discussionService.ListMergeRequestDiscussions(c.project, iid,
			&gitlab.ListMergeRequestDiscussionsOptions{Page: page, PerPage: perPage},
			gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrapError(err, resp, "list discussions")
		}

		for _, d := range discussions {
			if d != nil {
				result = append(result, fromDiscussion(d))
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}
	return result, nil
}

func (c *GitLabClient) CreateDiscussion(ctx context.Context, iid int, body string) (*models.Discussion, error) {
	d, resp, err := c.discussionService.CreateMergeRequestDiscussion(c.project, iid,
		&gitlab.CreateMergeRequestDiscussionOptions{Body: gitlab.Ptr(body)},
		gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, resp, "create discussion")
	}

	converted := fromDiscussion(d)
	return &converted, nil
}

func (c *GitLabClient) ReplyToDiscussion(ctx context.Context, iid int, discussionID, body string) (*models.Note, error) {
	n, resp, err := c.discussionService.AddMergeRequestDiscussionNote(c.project, iid, discussionID,
		&gitlab.AddMergeRequestDiscussionNoteOptions{Body: gitlab.Ptr(body)},
		gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, resp, "reply to discussion")
	}

	converted := fromNote(n)
	return &converted, nil
}

func (c *GitLabClient) FindUserID(ctx context.Context, username string) (int, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	users, resp, err := c.usersService.ListUsers(&gitlab.ListUsersOptions{
		Username: gitlab.Ptr(username),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, wrapError(err, resp, "find user")
	}

	for _, u := range users {
		if u != nil && strings.EqualFold(u.Username, username) {
			return u.ID, nil
		}
	}
	return 0, errors.ErrUserNotFound.WithContext("username", username)
}

func (c *GitLabClient) CurrentUser(ctx context.Context) (string, error) {
	u, resp, err := c.usersService.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", wrapError(err, resp, "current user")
	}
	return u.Username, nil
}

// DraftTitle adds or strips the draft prefix.
func DraftTitle(title string, draft bool) string {
	bare := StripDraft(title)
	if draft {
		return DraftPrefix + bare
	}
	return bare
}

// StripDraft removes the Draft:/WIP: markers GitLab recognises.
func StripDraft(title string) string {
	t := strings.TrimSpace(title)
	for {
		lower := strings.ToLower(t)
		switch {
		case strings.HasPrefix(lower, "draft:"):
			t = strings.TrimSpace(t[len("draft:"):])
		case strings.HasPrefix(lower, "[draft]"):
			t = strings.TrimSpace(t[len("[draft]"):])
		case strings.HasPrefix(lower, "wip:"):
			t = strings.TrimSpace(t[len("wip:"):])
		default:
			return t
		}
	}
}

func wrapError(err error, resp *gitlab.Response, op string) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	var errResp *gitlab.ErrorResponse
	if status == 0 && stderrors.As(err, &errResp) && errResp.Response != nil {
		status = errResp.Response.StatusCode
	}

	switch status {
	case http.StatusUnauthorized:
		return errors.ErrGitLabAuth.WithError(err).WithContext("operation", op)
	default:
		appErr := errors.ErrGitLabRequest.WithError(fmt.Errorf("%s: %w", op, err))
		if status != 0 {
			appErr = appErr.WithContext("status", status)
		}
		return appErr
	}
}

func fromMergeRequest(mr *gitlab.MergeRequest) models.MergeRequest {
	if mr == nil {
		return models.MergeRequest{}
	}
	return models.MergeRequest{
		IID:          mr.IID,
		WebURL:       mr.WebURL,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Labels:       append([]string(nil), mr.Labels...),
		Draft:        mr.Draft,
	}
}

func fromDiscussion(d *gitlab.Discussion) models.Discussion {
	out := models.Discussion{ID: d.ID}
	for _, n := range d.Notes {
		if n != nil {
			out.Notes = append(out.Notes, fromNote(n))
		}
	}
	return out
}

func fromNote(n *gitlab.Note) models.Note {
	if n == nil {
		return models.Note{}
	}
	return models.Note{
		ID:     n.ID,
		Body:   n.Body,
		Author: n.Author.Username,
		System: n.System,
	}
}
