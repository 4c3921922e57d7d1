package glab

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/shell"
	"github.com/fe-devtools/devflow/internal/vcs"
	"github.com/fe-devtools/devflow/internal/vcs/gitlab"
)

var _ vcs.Client = (*GlabClient)(nil)

// GlabClient drives the glab CLI. It relies on glab's own authentication.
type GlabClient struct {
	runner  shell.Runner
	dir     string
	project string
}

func NewGlabClient(runner shell.Runner, dir, project string) *GlabClient {
	return &GlabClient{runner: runner, dir: dir, project: project}
}

type (
	apiNote struct {
		ID     int    `json:"id"`
		Body   string `json:"body"`
		System bool   `json:"system"`
		Author struct {
			Username string `json:"username"`
		} `json:"author"`
	}

	apiDiscussion struct {
		ID    string    `json:"id"`
		Notes []apiNote `json:"notes"`
	}

	apiUser struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
)

func (c *GlabClient) glab(ctx context.Context, args ...string) (string, error) {
	res, err := c.runner.Run(ctx, shell.Command{Name: "glab", Args: args, Dir: c.dir})
	if err != nil {
		stderr := strings.ToLower(shell.Stderr(err))
		if strings.Contains(stderr, "401") || strings.Contains(stderr, "unauthorized") {
			return "", errors.ErrGitLabAuth.WithError(err).WithContext("stderr", shell.Stderr(err))
		}
		return "", errors.ErrGitLabRequest.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return res.Stdout, nil
}

func (c *GlabClient) projectPath() string {
	return "projects/" + url.PathEscape(c.project)
}

func (c *GlabClient) mrPath(iid int) string {
	return fmt.Sprintf("%s/merge_requests/%d", c.projectPath(), iid)
}

func (c *GlabClient) FindOpenMergeRequest(ctx context.Context, source string) (*models.MergeRequest, error) {
	q := url.Values{}
	q.Set("state", "opened")
	q.Set("source_branch", source)

	out, err := c.glab(ctx, "api", c.projectPath()+"/merge_requests?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var mrs []models.MergeRequest
	if err := decodeAll(out, &mrs); err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err)
	}
	for _, mr := range mrs {
		if mr.SourceBranch == source {
			found := mr
			return &found, nil
		}
	}
	return nil, nil
}

func (c *GlabClient) CreateMergeRequest(ctx context.Context, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	args := []string{
		"mr", "create",
		"--source-branch", opts.SourceBranch,
		"--target-branch", opts.TargetBranch,
		"--title", gitlab.StripDraft(opts.Title),
		"--description", opts.Description,
	}
	if opts.Draft {
		args = append(args, "--draft")
	}
	if opts.Reviewer != "" {
		args = append(args, "--reviewer", strings.TrimPrefix(opts.Reviewer, "@"))
	}
	if opts.Assignee != "" {
		args = append(args, "--assignee", strings.TrimPrefix(opts.Assignee, "@"))
	}
	if len(opts.Labels) > 0 {
		args = append(args, "--label", strings.Join(opts.Labels, ","))
	}
	if opts.RemoveSourceBranch {
		args = append(args, "--remove-source-branch")
	}
	args = append(args, "--yes", "-R", c.project)

	logger.Debug(ctx, "creating merge request with glab", "branch", opts.SourceBranch, "target", opts.TargetBranch)

	if _, err := c.glab(ctx, args...); err != nil {
		return nil, err
	}

	mr, err := c.FindOpenMergeRequest(ctx, opts.SourceBranch)
	if err != nil {
		return nil, err
	}
	if mr == nil {
		return nil, errors.ErrGitLabRequest.
			WithError(fmt.Errorf("merge request for %s not found after creation", opts.SourceBranch))
	}
	return mr, nil
}

// UpdateMergeRequest replaces the label set by unlabelling whatever the MR
// carries that is not in opts.Labels.
func (c *GlabClient) UpdateMergeRequest(ctx context.Context, iid int, opts models.MergeRequestOptions) (*models.MergeRequest, error) {
	out, err := c.glab(ctx, "api", c.mrPath(iid))
	if err != nil {
		return nil, err
	}
	var current models.MergeRequest
	if err := json.Unmarshal([]byte(out), &current); err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err)
	}

	args := []string{
		"mr", "update", strconv.Itoa(iid),
		"--title", gitlab.StripDraft(opts.Title),
		"--description", opts.Description,
		"--target-branch", opts.TargetBranch,
	}
	if opts.Draft {
		args = append(args, "--draft")
	} else {
		args = append(args, "--ready")
	}
	if opts.Reviewer != "" {
		args = append(args, "--reviewer", strings.TrimPrefix(opts.Reviewer, "@"))
	}
	if opts.Assignee != "" {
		args = append(args, "--assignee", strings.TrimPrefix(opts.Assignee, "@"))
	}
	if len(opts.Labels) > 0 {
		args = append(args, "--label", strings.Join(opts.Labels, ","))
	}
	if stale := staleLabels(current.Labels, opts.Labels); len(stale) > 0 {
		args = append(args, "--unlabel", strings.Join(stale, ","))
	}
	args = append(args, "--yes", "-R", c.project)

	if _, err := c.glab(ctx, args...); err != nil {
		return nil, err
	}

	current.Title = gitlab.DraftTitle(opts.Title, opts.Draft)
	current.Description = opts.Description
	current.TargetBranch = opts.TargetBranch
	current.Labels = append([]string(nil), opts.Labels...)
	current.Draft = opts.Draft
	return &current, nil
}

func (c *GlabClient) ListDiscussions(ctx context.Context, iid int) ([]models.Discussion, error) {
	out, err := c.glab(ctx, "api", "--paginate", c.mrPath(iid)+"/discussions?per_page=100")
	if err != nil {
		return nil, err
	}

	var raw []apiDiscussion
	if err := decodeAll(out, &raw); err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err)
	}

	result := make([]models.Discussion, 0, len(raw))
	for _, d := range raw {
		result = append(result, d.toModel())
	}
	return result, nil
}

func (c *GlabClient) CreateDiscussion(ctx context.Context, iid int, body string) (*models.Discussion, error) {
	out, err := c.glab(ctx, "api", "--method", "POST", c.mrPath(iid)+"/discussions", "--raw-field", "body="+body)
	if err != nil {
		return nil, err
	}

	var d apiDiscussion
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err)
	}
	converted := d.toModel()
	return &converted, nil
}

func (c *GlabClient) ReplyToDiscussion(ctx context.Context, iid int, discussionID, body string) (*models.Note, error) {
	path := fmt.Sprintf("%s/discussions/%s/notes", c.mrPath(iid), url.PathEscape(discussionID))
	out, err := c.glab(ctx, "api", "--method", "POST", path, "--raw-field", "body="+body)
	if err != nil {
		return nil, err
	}

	var n apiNote
	if err := json.Unmarshal([]byte(out), &n); err != nil {
		return nil, errors.ErrGitLabRequest.WithError(err)
	}
	converted := n.toModel()
	return &converted, nil
}

func (c *GlabClient) FindUserID(ctx context.Context, username string) (int, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	out, err := c.glab(ctx, "api", "users?username="+url.QueryEscape(username))
	if err != nil {
		return 0, err
	}

	var users []apiUser
	if err := json.Unmarshal([]byte(out), &users); err != nil {
		return 0, errors.ErrGitLabRequest.WithError(err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u.ID, nil
		}
	}
	return 0, errors.ErrUserNotFound.WithContext("username", username)
}

func (c *GlabClient) CurrentUser(ctx context.Context) (string, error) {
	out, err := c.glab(ctx, "api", "user")
	if err != nil {
		return "", err
	}

	var u apiUser
	if err := json.Unmarshal([]byte(out), &u); err != nil {
		return "", errors.ErrGitLabRequest.WithError(err)
	}
	return u.Username, nil
}

func (d apiDiscussion) toModel() models.Discussion {
	out := models.Discussion{ID: d.ID}
	for _, n := range d.Notes {
		out.Notes = append(out.Notes, n.toModel())
	}
	return out
}

func (n apiNote) toModel() models.Note {
	return models.Note{ID: n.ID, Body: n.Body, Author: n.Author.Username, System: n.System}
}

// decodeAll decodes one or more concatenated JSON arrays, as printed by
// glab api --paginate, into out.
func decodeAll[T any](data string, out *[]T) error {
	dec := json.NewDecoder(bytes.NewBufferString(data))
	for {
		var page []T
		err := dec.Decode(&page)
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		*out = append(*out, page...)
	}
}

func staleLabels(current, wanted []string) []string {
	keep := make(map[string]struct{}, len(wanted))
	for _, l := range wanted {
		keep[l] = struct{}{}
	}
	var stale []string
	for _, l := range current {
		if _, ok := keep[l]; !ok {
			stale = append(stale, l)
		}
	}
	return stale
}
