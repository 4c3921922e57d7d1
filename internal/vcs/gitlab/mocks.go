package gitlab

import (
	"github.com/stretchr/testify/mock"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type (
	MockMergeRequestsService struct {
		mock.Mock
	}

	MockDiscussionsService struct {
		mock.Mock
	}

	MockUsersService struct {
		mock.Mock
	}
)

func (m *MockMergeRequestsService) ListProjectMergeRequests(pid interface{}, opt *gitlab.ListProjectMergeRequestsOptions, _ ...gitlab.RequestOptionFunc) ([]*gitlab.MergeRequest, *gitlab.Response, error) {
	args := m.Called(pid, opt)
	return args.Get(0).([]*gitlab.MergeRequest), response(args.Get(1)), args.Error(2)
}

func (m *MockMergeRequestsService) CreateMergeRequest(pid interface{}, opt *gitlab.CreateMergeRequestOptions, _ ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error) {
	args := m.Called(pid, opt)
	mr, _ := args.Get(0).(*gitlab.MergeRequest)
	return mr, response(args.Get(1)), args.Error(2)
}

func (m *MockMergeRequestsService) UpdateMergeRequest(pid interface{}, mergeRequest int, opt *gitlab.UpdateMergeRequestOptions, _ ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error) {
	args := m.Called(pid, mergeRequest, opt)
	mr, _ := args.Get(0).(*gitlab.MergeRequest)
	return mr, response(args.Get(1)), args.Error(2)
}

func (m *MockDiscussionsService) ListMergeRequestDiscussions(pid interface{}, mergeRequest int, opt *gitlab.ListMergeRequestDiscussionsOptions, _ ...gitlab.RequestOptionFunc) ([]*gitlab.Discussion, *gitlab.Response, error) {
	args := m.Called(pid, mergeRequest, opt)
	return args.Get(0).([]*gitlab.Discussion), response(args.Get(1)), args.Error(2)
}

func (m *MockDiscussionsService) CreateMergeRequestDiscussion(pid interface{}, mergeRequest int, opt *gitlab.CreateMergeRequestDiscussionOptions, _ ...gitlab.RequestOptionFunc) (*gitlab.Discussion, *gitlab.Response, error) {
	args := m.Called(pid, mergeRequest, opt)
	d, _ := args.Get(0).(*gitlab.Discussion)
	return d, response(args.Get(1)), args.Error(2)
}

func (m *MockDiscussionsService) AddMergeRequestDiscussionNote(pid interface{}, mergeRequest int, discussion string, opt *gitlab.AddMergeRequestDiscussionNoteOptions, _ ...gitlab.RequestOptionFunc) (*gitlab.Note, *gitlab.Response, error) {
	args := m.Called(pid, mergeRequest, discussion, opt)
	n, _ := args.Get(0).(*gitlab.Note)
	return n, response(args.Get(1)), args.Error(2)
}

func (m *MockUsersService) ListUsers(opt *gitlab.ListUsersOptions, _ ...gitlab.RequestOptionFunc) ([]*gitlab.User, *gitlab.Response, error) {
	args := m.Called(opt)
	return args.Get(0).([]*gitlab.User), response(args.Get(1)), args.Error(2)
}

func (m *MockUsersService) CurrentUser(_ ...gitlab.RequestOptionFunc) (*gitlab.User, *gitlab.Response, error) {
	args := m.Called()
	u, _ := args.Get(0).(*gitlab.User)
	return u, response(args.Get(1)), args.Error(2)
}

func response(v interface{}) *gitlab.Response {
	resp, _ := v.(*gitlab.Response)
	return resp
}
