package review

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

type (
	// Review is one AI review run of a merge request.
	Review struct {
		ID              string    `json:"id"`
		Project         string    `json:"project"`
		MergeRequestIID int       `json:"mergeRequestIid"`
		Status          string    `json:"status"`
		CreatedAt       time.Time `json:"createdAt"`
	}

	SubmitRequest struct {
		Project         string `json:"project"`
		MergeRequestIID int    `json:"mergeRequestIid"`
		SourceBranch    string `json:"sourceBranch"`
		TargetBranch    string `json:"targetBranch"`
		Title           string `json:"title"`
		WebURL          string `json:"webUrl"`
	}

	Reply struct {
		Body     string `json:"body"`
		Author   string `json:"author"`
		SourceID string `json:"sourceId"`
	}
)

// Service is the external review service.
type Service interface {
	SubmitReview(ctx context.Context, req SubmitRequest) (*Review, error)
	LatestReview(ctx context.Context, project string, iid int) (*Review, error)
	Comments(ctx context.Context, reviewID string) ([]models.ReviewComment, error)
	Reply(ctx context.Context, reviewID, commentID string, reply Reply) error
}

var _ Service = (*CompassClient)(nil)

// CompassClient talks to the Compass review API with a bearer token.
type CompassClient struct {
	baseURL string
	token   string
	client  httpclient.HTTPClient
}

func NewCompassClient(baseURL, token string, client httpclient.HTTPClient) *CompassClient {
	return &CompassClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (c *CompassClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	err := httpclient.DoJSON(ctx, c.client, httpclient.Request{
		Method: method,
		URL:    c.baseURL + path,
		Header: http.Header{"Authorization": []string{"Bearer " + c.token}},
		Body:   body,
	}, out)
	if err == nil {
		return nil
	}

	var statusErr *httpclient.StatusError
	if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return errors.ErrReviewNotFound.WithError(err).WithContext("path", path)
	}
	appErr := errors.ErrReviewRequest.WithError(err).WithContext("path", path)
	if statusErr != nil {
		appErr = appErr.WithContext("status", statusErr.StatusCode)
	}
	return appErr
}

func (c *CompassClient) SubmitReview(ctx context.Context, req SubmitRequest) (*Review, error) {
	logger.Debug(ctx, "submitting review", "project", req.Project, "iid", req.MergeRequestIID)
	var review Review
	if err := c.do(ctx, http.MethodPost, "/api/v1/reviews", req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// LatestReview returns the most recent review of the MR, or ErrReviewNotFound.
func (c *CompassClient) LatestReview(ctx context.Context, project string, iid int) (*Review, error) {
	q := url.Values{}
	q.Set("project", project)
	q.Set("mergeRequestIid", strconv.Itoa(iid))

	var reviews []Review
	if err := c.do(ctx, http.MethodGet, "/api/v1/reviews?"+q.Encode(), nil, &reviews); err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, errors.ErrReviewNotFound.WithContext("iid", iid)
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return &reviews[0], nil
}

func (c *CompassClient) Comments(ctx context.Context, reviewID string) ([]models.ReviewComment, error) {
	var comments []models.ReviewComment
	path := fmt.Sprintf("/api/v1/reviews/%s/comments", url.PathEscape(reviewID))
	if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *CompassClient) Reply(ctx context.Context, reviewID, commentID string, reply Reply) error {
	path := fmt.Sprintf("/api/v1/reviews/%s/comments/%s/replies", url.PathEscape(reviewID), url.PathEscape(commentID))
	return c.do(ctx, http.MethodPost, path, reply, nil)
}
