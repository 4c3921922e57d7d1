package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

const (
	defaultCacheSize = 64
	issueFields      = "summary,issuetype,status,fixVersions,description"
)

// JiraService fetches issues from Jira Cloud REST v3.
type JiraService struct {
	baseURL  string
	email    string
	apiToken string
	client   httpclient.HTTPClient
	cache    *lru.Cache[string, models.TicketInfo]
}

type Option func(*JiraService)

// WithCacheSize sets how many issues are memoized per process.
func WithCacheSize(size int) Option {
	return func(s *JiraService) {
		if c, err := lru.New[string, models.TicketInfo](size); err == nil {
			s.cache = c
		}
	}
}

func NewJiraService(baseURL, email, apiToken string, client httpclient.HTTPClient, opts ...Option) *JiraService {
	s := &JiraService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		apiToken: apiToken,
		client:   client,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache, _ = lru.New[string, models.TicketInfo](defaultCacheSize)
	}
	return s
}

type (
	issueResponse struct {
		Key    string         `json:"key"`
		Fields issueFieldsDoc `json:"fields"`
	}

	issueFieldsDoc struct {
		Summary     string          `json:"summary"`
		IssueType   named           `json:"issuetype"`
		Status      named           `json:"status"`
		FixVersions []named         `json:"fixVersions"`
		Description json.RawMessage `json:"description"`
	}

	named struct {
		Name string `json:"name"`
	}

	// DocNode is one node of an Atlassian Document Format tree.
	DocNode struct {
		Type    string    `json:"type"`
		Text    string    `json:"text,omitempty"`
		Content []DocNode `json:"content,omitempty"`
	}
)

// GetTicketInfo returns the issue fields the workflow consumes. A 401 or 403
// is ErrJiraAuth, a 404 is ErrTicketNotFound, anything else non-2xx is
// ErrJiraRequest. Successful lookups are memoized.
func (s *JiraService) GetTicketInfo(ctx context.Context, key string) (*models.TicketInfo, error) {
	if info, ok := s.cache.Get(key); ok {
		logger.Debug(ctx, "jira cache hit", "ticket", key)
		return &info, nil
	}

	log := logger.FromContext(ctx)
	log.Debug("fetching jira issue", "ticket", key)

	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s",
		s.baseURL, url.PathEscape(key), url.QueryEscape(issueFields))

	var resp issueResponse
	err := httpclient.DoJSON(ctx, s.client, httpclient.Request{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: http.Header{"Authorization": []string{getBasicAuth(s.email, s.apiToken)}},
	}, &resp)
	if err != nil {
		return nil, s.mapError(key, err)
	}

	info := models.TicketInfo{
		Key:         key,
		Summary:     resp.Fields.Summary,
		IssueType:   resp.Fields.IssueType.Name,
		Status:      resp.Fields.Status.Name,
		Description: parseDescription(resp.Fields.Description),
		URL:         s.BrowseURL(key),
	}
	for _, v := range resp.Fields.FixVersions {
		if v.Name != "" {
			info.FixVersions = append(info.FixVersions, v.Name)
		}
	}

	s.cache.Add(key, info)
	log.Debug("jira issue fetched",
		"ticket", key,
		"issue_type", info.IssueType,
		"fix_versions", strings.Join(info.FixVersions, ","))

	return &info, nil
}

// FixVersions returns the names of the issue's fix versions.
func (s *JiraService) FixVersions(ctx context.Context, key string) ([]string, error) {
	info, err := s.GetTicketInfo(ctx, key)
	if err != nil {
		return nil, err
	}
	return info.FixVersions, nil
}

func (s *JiraService) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", s.baseURL, key)
}

func (s *JiraService) mapError(key string, err error) error {
	var statusErr *httpclient.StatusError
	if !stderrors.As(err, &statusErr) {
		return errors.ErrJiraRequest.WithError(err).WithContext("ticket", key)
	}

	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.ErrJiraAuth.WithError(err).WithContext("status", statusErr.StatusCode)
	case http.StatusNotFound:
		return errors.ErrTicketNotFound.WithContext("ticket", key)
	default:
		return errors.ErrJiraRequest.WithError(err).
			WithContext("ticket", key).
			WithContext("status", statusErr.StatusCode)
	}
}

// getBasicAuth builds the Basic authorization header from email and API token.
func getBasicAuth(username, token string) string {
	credentials := fmt.Sprintf("%s:%s", username, token)
	return fmt.Sprintf("Basic %s", base64.StdEncoding.EncodeToString([]byte(credentials)))
}

// parseDescription accepts both ADF documents and legacy plain strings.
func parseDescription(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}

	var doc DocNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	return ParseAtlassianDoc(doc.Content)
}

// ParseAtlassianDoc flattens ADF content to plain text.
func ParseAtlassianDoc(content []DocNode) string {
	var b strings.Builder
	writeDoc(&b, content)
	return strings.TrimSpace(b.String())
}

func writeDoc(b *strings.Builder, content []DocNode) {
	for _, node := range content {
		switch node.Type {
		case "text":
			b.WriteString(node.Text)
		case "hardBreak":
			b.WriteString("\n")
		case "paragraph", "heading", "codeBlock", "blockquote":
			writeDoc(b, node.Content)
			b.WriteString("\n")
		case "listItem":
			b.WriteString("- ")
			writeDoc(b, node.Content)
			if !strings.HasSuffix(b.String(), "\n") {
				b.WriteString("\n")
			}
		default:
			writeDoc(b, node.Content)
		}
	}
}
