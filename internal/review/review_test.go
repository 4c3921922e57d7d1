package review

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/taskstore"
	"github.com/fe-devtools/devflow/internal/vcs"
)

func TestCompassClient_LatestReview(t *testing.T) {
	mockClient := new(httpclient.MockHTTPClient)
	client := NewCompassClient("https://compass.example.com/", "secret", mockClient)

	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet &&
			req.URL.Path == "/api/v1/reviews" &&
			req.URL.Query().Get("project") == "fe/web" &&
			req.URL.Query().Get("mergeRequestIid") == "42" &&
			req.Header.Get("Authorization") == "Bearer secret"
	})).Return(httpclient.NewResponse(http.StatusOK, `[
		{"id": "r1", "createdAt": "2026-01-01T10:00:00Z"},
		{"id": "r2", "createdAt": "2026-01-02T10:00:00Z"}
	]`), nil)

	review, err := client.LatestReview(context.Background(), "fe/web", 42)
	require.NoError(t, err)
	assert.Equal(t, "r2", review.ID)
	mockClient.AssertExpectations(t)
}

func TestCompassClient_Errors(t *testing.T) {
	t.Run("empty list is not found", func(t *testing.T) {
		mockClient := new(httpclient.MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(httpclient.NewResponse(http.StatusOK, `[]`), nil)

		_, err := NewCompassClient("https://c", "t", mockClient).LatestReview(context.Background(), "p", 1)
		assert.ErrorIs(t, err, errors.ErrReviewNotFound)
	})

	t.Run("404 is not found", func(t *testing.T) {
		mockClient := new(httpclient.MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(httpclient.NewResponse(http.StatusNotFound, `{}`), nil)

		_, err := NewCompassClient("https://c", "t", mockClient).Comments(context.Background(), "r1")
		assert.Equal(t, errors.TypeNotFound, errors.KindOf(err))
	})

	t.Run("server error is an API error", func(t *testing.T) {
		mockClient := new(httpclient.MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(httpclient.NewResponse(http.StatusBadGateway, `bad`), nil)

		err := NewCompassClient("https://c", "t", mockClient).Reply(context.Background(), "r1", "c1", Reply{Body: "ok"})
		assert.ErrorIs(t, err, errors.ErrReviewRequest)
		assert.Equal(t, errors.TypeAPI, errors.KindOf(err))
	})
}

func TestCompassClient_SubmitAndReply(t *testing.T) {
	mockClient := new(httpclient.MockHTTPClient)
	client := NewCompassClient("https://compass.example.com", "secret", mockClient)

	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPost || req.URL.Path != "/api/v1/reviews" {
			return false
		}
		var body SubmitRequest
		data, _ := io.ReadAll(req.Body)
		return json.Unmarshal(data, &body) == nil && body.MergeRequestIID == 7 && body.Project == "fe/web"
	})).Return(httpclient.NewResponse(http.StatusCreated, `{"id":"r9","status":"queued"}`), nil).Once()

	review, err := client.SubmitReview(context.Background(), SubmitRequest{Project: "fe/web", MergeRequestIID: 7})
	require.NoError(t, err)
	assert.Equal(t, "r9", review.ID)

	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodPost && req.URL.EscapedPath() == "/api/v1/reviews/r9/comments/c%2F1/replies"
	})).Return(httpclient.NewResponse(http.StatusNoContent, ``), nil).Once()

	require.NoError(t, client.Reply(context.Background(), "r9", "c/1", Reply{Body: "thanks"}))
	mockClient.AssertExpectations(t)
}

func relayFixture(t *testing.T) (*Relay, *MockService, *vcs.MockClient, *taskstore.FileStore) {
	t.Helper()
	service := new(MockService)
	gitlab := new(vcs.MockClient)
	store := taskstore.NewFileStore(t.TempDir())
	return NewRelay(service, gitlab, store, "fe/web", "Compass Bot"), service, gitlab, store
}

func TestFormatComment(t *testing.T) {
	relay, _, _, _ := relayFixture(t)
	body := relay.FormatComment(models.ReviewComment{ID: "c1", Path: "src/a.ts", Line: 12, Body: " Use the token. ", Severity: "minor"})

	assert.Equal(t, "**Compass Bot** [minor] `src/a.ts:12`\n\nUse the token.\n\n<!-- devflow-review:c1 -->", body)

	id, ok := RelayedCommentID(models.Discussion{Notes: []models.Note{{Body: body}}})
	require.True(t, ok)
	assert.Equal(t, "c1", id)

	_, ok = RelayedCommentID(models.Discussion{Notes: []models.Note{{Body: "plain"}}})
	assert.False(t, ok)
	_, ok = RelayedCommentID(models.Discussion{})
	assert.False(t, ok)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	relay, service, gitlab, store := relayFixture(t)

	comments := []models.ReviewComment{
		{ID: "c1", Path: "src/a.ts", Line: 3, Body: "first"},
		{ID: "c2", Path: "src/b.ts", Body: "second"},
	}
	discussions := []models.Discussion{
		{ID: "d1", Notes: []models.Note{
			{ID: 100, Body: "**Compass Bot**\n\nfirst\n\n" + Marker("c1")},
			{ID: 101, Body: "fixed in abc123", Author: "jane"},
			{ID: 102, Body: "changed the description", System: true},
		}},
		{ID: "d2", Notes: []models.Note{{ID: 200, Body: "unrelated thread"}, {ID: 201, Body: "reply"}}},
	}

	service.On("LatestReview", ctx, "fe/web", 42).Return(&Review{ID: "r1"}, nil)
	service.On("Comments", ctx, "r1").Return(comments, nil)
	gitlab.On("ListDiscussions", ctx, 42).Return(discussions, nil)
	gitlab.On("CreateDiscussion", ctx, 42, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "second") && strings.HasSuffix(body, Marker("c2"))
	})).Return(&models.Discussion{ID: "d3"}, nil).Once()
	service.On("Reply", ctx, "r1", "c1", Reply{Body: "fixed in abc123", Author: "jane", SourceID: "gitlab-note-101"}).Return(nil).Once()

	result, err := relay.Sync(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{ReviewID: "r1", Created: 1, Forwarded: 1}, result)

	state, err := store.LoadRelayState(42)
	require.NoError(t, err)
	assert.Equal(t, "r1", state.ReviewID)
	assert.Equal(t, []int{101}, state.Forwarded)

	service.AssertExpectations(t)
	gitlab.AssertExpectations(t)
}

func TestSync_SecondRunIsQuiet(t *testing.T) {
	ctx := context.Background()
	relay, service, gitlab, store := relayFixture(t)
	require.NoError(t, store.SaveRelayState(42, &taskstore.RelayState{ReviewID: "r1", Forwarded: []int{101}}))

	service.On("LatestReview", ctx, "fe/web", 42).Return(&Review{ID: "r1"}, nil)
	service.On("Comments", ctx, "r1").Return([]models.ReviewComment{{ID: "c1", Body: "first"}}, nil)
	gitlab.On("ListDiscussions", ctx, 42).Return([]models.Discussion{
		{ID: "d1", Notes: []models.Note{
			{ID: 100, Body: Marker("c1")},
			{ID: 101, Body: "fixed", Author: "jane"},
		}},
	}, nil)

	result, err := relay.Sync(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{ReviewID: "r1", Skipped: 1}, result)

	gitlab.AssertNotCalled(t, "CreateDiscussion", mock.Anything, mock.Anything, mock.Anything)
	service.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_ReplyFailureKeepsProgress(t *testing.T) {
	ctx := context.Background()
	relay, service, gitlab, store := relayFixture(t)

	service.On("LatestReview", ctx, "fe/web", 5).Return(&Review{ID: "r1"}, nil)
	service.On("Comments", ctx, "r1").Return([]models.ReviewComment{{ID: "c1"}}, nil)
	gitlab.On("ListDiscussions", ctx, 5).Return([]models.Discussion{
		{ID: "d1", Notes: []models.Note{
			{ID: 1, Body: Marker("c1")},
			{ID: 2, Body: "one"},
			{ID: 3, Body: "two"},
		}},
	}, nil)
	service.On("Reply", ctx, "r1", "c1", mock.MatchedBy(func(r Reply) bool { return r.Body == "one" })).Return(nil)
	service.On("Reply", ctx, "r1", "c1", mock.MatchedBy(func(r Reply) bool { return r.Body == "two" })).
		Return(errors.ErrReviewRequest)

	_, err := relay.Sync(ctx, 5)
	assert.ErrorIs(t, err, errors.ErrReviewRequest)

	state, err := store.LoadRelayState(5)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, state.Forwarded)
}

func TestSync_NoReview(t *testing.T) {
	ctx := context.Background()
	relay, service, _, _ := relayFixture(t)
	service.On("LatestReview", ctx, "fe/web", 9).Return(nil, errors.ErrReviewNotFound)

	_, err := relay.Sync(ctx, 9)
	assert.ErrorIs(t, err, errors.ErrReviewNotFound)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	relay, service, _, _ := relayFixture(t)
	mr := &models.MergeRequest{IID: 3, SourceBranch: "feature/FE-1", TargetBranch: "develop", Title: "Draft: x", WebURL: "https://gl/mr/3"}

	service.On("SubmitReview", ctx, SubmitRequest{
		Project: "fe/web", MergeRequestIID: 3, SourceBranch: "feature/FE-1",
		TargetBranch: "develop", Title: "Draft: x", WebURL: "https://gl/mr/3",
	}).Return(&Review{ID: "r5"}, nil)

	review, err := relay.Submit(ctx, mr)
	require.NoError(t, err)
	assert.Equal(t, "r5", review.ID)
}
