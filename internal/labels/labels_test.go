package labels

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/impact"
	"github.com/fe-devtools/devflow/internal/llm"
	"github.com/fe-devtools/devflow/internal/models"
)

func TestExtractVersionLabel(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		found bool
	}{
		{"5.35.0", "v5.35", true},
		{"5.35.3", "v5.35", true},
		{"v6.1", "v6.1", true},
		{"10.2.0-rc1", "v10.2", true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractVersionLabel(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHotfix(t *testing.T) {
	assert.False(t, IsHotfix("5.35.0"))
	assert.True(t, IsHotfix("5.35.3"))
	assert.False(t, IsHotfix("5.35"))
	assert.False(t, IsHotfix("bogus"))

	branch, ok := ExtractReleaseBranch("5.35.3")
	require.True(t, ok)
	assert.Equal(t, "release/5.35", branch)

	_, ok = ExtractReleaseBranch("bogus")
	assert.False(t, ok)
}

func TestLabelSet(t *testing.T) {
	var s LabelSet
	s.Add("FE Board", "3.0UI", "", "  ")
	s.Add("FE Board", "4.0UI", "3.0UI")

	assert.Equal(t, []string{"FE Board", "3.0UI", "4.0UI"}, s.List())
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("4.0UI"))
	assert.False(t, s.Has("Hotfix"))

	list := s.List()
	list[0] = "changed"
	assert.Equal(t, "FE Board", s.List()[0])
}

type fakeTickets struct {
	info  *models.TicketInfo
	err   error
	calls int
}

func (f *fakeTickets) GetTicketInfo(context.Context, string) (*models.TicketInfo, error) {
	f.calls++
	return f.info, f.err
}

type fakeOrigin struct {
	ok  bool
	err error
}

func (f fakeOrigin) HasTaskOrigin(context.Context, string) (bool, error) {
	return f.ok, f.err
}

type fakeAnalyzer struct {
	scope impact.Scope
}

func (f fakeAnalyzer) AnalyzeImpactScope(context.Context, []models.ChangedFile, string) impact.Scope {
	return f.scope
}

type staticSource struct {
	name   string
	labels []string
	err    error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Labels(context.Context, Input) ([]string, error) {
	return s.labels, s.err
}

func labelsConfig() config.LabelsConfig {
	return config.Default(".").Labels
}

func TestDecide_HotfixScenario(t *testing.T) {
	cfg := labelsConfig()
	tickets := &fakeTickets{info: &models.TicketInfo{Key: "FE-1234", FixVersions: []string{"5.36.1"}}}
	source := NewImpactSource(fakeAnalyzer{scope: impact.Scope{V4: true}}, cfg.V3Label, cfg.V4Label)

	d := NewDecider(cfg, source, WithTickets(tickets))
	got, err := d.Decide(context.Background(), Input{
		Ticket:       "FE-1234",
		Files:        []models.ChangedFile{{Path: "src/Button.tsx", Status: models.StatusModified}},
		TargetBranch: "origin/develop",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"FE Board", "4.0UI", "v5.36", "Hotfix"}, got.Labels)
	assert.Equal(t, "release/5.36", got.ReleaseBranch)
	assert.Equal(t, "5.36.1", got.FixVersion)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, 1, tickets.calls)
}

func TestDecide_Rules(t *testing.T) {
	cfg := labelsConfig()
	both := NewImpactSource(fakeAnalyzer{scope: impact.All}, cfg.V3Label, cfg.V4Label)

	t.Run("task origin adds AI first", func(t *testing.T) {
		tickets := &fakeTickets{info: &models.TicketInfo{FixVersions: []string{"5.36.0"}}}
		d := NewDecider(cfg, both, WithTickets(tickets), WithOrigin(fakeOrigin{ok: true}))

		got, err := d.Decide(context.Background(), Input{Ticket: "FE-7"})
		require.NoError(t, err)
		assert.Equal(t, []string{"AI", "FE Board", "3.0UI", "4.0UI", "v5.36"}, got.Labels)
		assert.Empty(t, got.ReleaseBranch)
	})

	t.Run("no ticket skips ticket rules", func(t *testing.T) {
		tickets := &fakeTickets{}
		d := NewDecider(cfg, both, WithTickets(tickets), WithOrigin(fakeOrigin{ok: true}))

		got, err := d.Decide(context.Background(), Input{Ticket: models.NoTicket})
		require.NoError(t, err)
		assert.Equal(t, []string{"3.0UI", "4.0UI"}, got.Labels)
		assert.Zero(t, tickets.calls)
	})

	t.Run("other board prefix", func(t *testing.T) {
		d := NewDecider(cfg, both, WithTickets(&fakeTickets{info: &models.TicketInfo{}}))

		got, err := d.Decide(context.Background(), Input{Ticket: "BE-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3.0UI", "4.0UI"}, got.Labels)
	})

	t.Run("unparseable fix version is skipped", func(t *testing.T) {
		tickets := &fakeTickets{info: &models.TicketInfo{FixVersions: []string{"Backlog", "5.40.2"}}}
		d := NewDecider(cfg, nil, WithTickets(tickets))

		got, err := d.Decide(context.Background(), Input{Ticket: "FE-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FE Board", "v5.40", "Hotfix"}, got.Labels)
		assert.Equal(t, "release/5.40", got.ReleaseBranch)
	})

	t.Run("origin errors are warnings", func(t *testing.T) {
		d := NewDecider(cfg, both, WithOrigin(fakeOrigin{err: assert.AnError}))

		got, err := d.Decide(context.Background(), Input{Ticket: "FE-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FE Board", "3.0UI", "4.0UI"}, got.Labels)
		assert.Len(t, got.Warnings, 2, "origin failure and missing jira")
	})
}

func TestDecide_JiraFailures(t *testing.T) {
	cfg := labelsConfig()
	source := NewImpactSource(fakeAnalyzer{scope: impact.Scope{V3: true}}, cfg.V3Label, cfg.V4Label)

	t.Run("auth error returns labels and the error", func(t *testing.T) {
		tickets := &fakeTickets{err: errors.ErrJiraAuth.WithContext("status", 401)}
		d := NewDecider(cfg, source, WithTickets(tickets))

		got, err := d.Decide(context.Background(), Input{Ticket: "FE-1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrJiraAuth)
		assert.Equal(t, errors.TypeAuth, errors.KindOf(err))
		assert.Equal(t, []string{"FE Board", "3.0UI"}, got.Labels)
		assert.Empty(t, got.ReleaseBranch)
	})

	t.Run("not found degrades to a warning", func(t *testing.T) {
		tickets := &fakeTickets{err: errors.ErrTicketNotFound}
		d := NewDecider(cfg, source, WithTickets(tickets))

		got, err := d.Decide(context.Background(), Input{Ticket: "FE-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FE Board", "3.0UI"}, got.Labels)
		require.Len(t, got.Warnings, 1)
		assert.Contains(t, got.Warnings[0], "version labels skipped")
	})
}

func TestDecide_SourceFallback(t *testing.T) {
	cfg := labelsConfig()
	failing := staticSource{name: "llm", err: errors.ErrLLMRequest}
	fallback := staticSource{name: "impact", labels: []string{"3.0UI"}}

	d := NewDecider(cfg, failing, WithFallback(fallback))
	got, err := d.Decide(context.Background(), Input{Ticket: models.NoTicket})

	require.NoError(t, err)
	assert.Equal(t, []string{"3.0UI"}, got.Labels)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "llm labels unavailable")
}

func writeKnowledge(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const knowledgeYAML = `labels:
  - name: FE Board
    description: Frontend board tickets
    applicable: true
  - name: 3.0UI
    description: Touches the v3 interface
    applicable: true
  - name: needs-design
    description: Waiting on design
    applicable: false
`

func TestLoadKnowledge(t *testing.T) {
	k, err := LoadKnowledge(writeKnowledge(t, knowledgeYAML))
	require.NoError(t, err)
	require.Len(t, k.Labels, 3)
	assert.Len(t, k.Applicable(), 2)

	_, err = LoadKnowledge(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errors.ErrKnowledgeFile)

	_, err = LoadKnowledge(writeKnowledge(t, "labels: [unclosed"))
	assert.Equal(t, errors.TypeConfiguration, errors.KindOf(err))
}

func TestLLMSource(t *testing.T) {
	k, err := LoadKnowledge(writeKnowledge(t, knowledgeYAML))
	require.NoError(t, err)

	completer := new(llm.MockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return assert.ObjectsAreEqual(0.2, req.Temperature) &&
			strings.Contains(req.User, "FE-1234") &&
			strings.Contains(req.User, "Summary: Fix padding") &&
			strings.Contains(req.User, "M src/Button.tsx") &&
			strings.Contains(req.User, "- 3.0UI: Touches the v3 interface") &&
			!strings.Contains(req.User, "needs-design")
	})).Return("Sure!\n```json\n{\"labels\": [\"fe board\", \"needs-design\", \"Unknown\", \"3.0UI\"]}\n```", nil)

	source := NewLLMSource(completer, k, 0.2)
	got, err := source.Labels(context.Background(), Input{
		Ticket:       "FE-1234",
		Summary:      "Fix padding",
		TargetBranch: "develop",
		Files:        []models.ChangedFile{{Path: "src/Button.tsx", Status: models.StatusModified}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"FE Board", "3.0UI"}, got)
	completer.AssertExpectations(t)
}

func TestLLMSource_DeduplicatesWithBoardRule(t *testing.T) {
	k, err := LoadKnowledge(writeKnowledge(t, knowledgeYAML))
	require.NoError(t, err)

	completer := new(llm.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"labels":["FE Board","3.0UI","FE Board"]}`, nil)

	d := NewDecider(labelsConfig(), NewLLMSource(completer, k, 0))
	got, err := d.Decide(context.Background(), Input{Ticket: "FE-1234"})

	require.NoError(t, err)
	assert.Equal(t, []string{"FE Board", "3.0UI"}, got.Labels)
}

func TestLLMSource_InvalidAnswer(t *testing.T) {
	k, err := LoadKnowledge(writeKnowledge(t, knowledgeYAML))
	require.NoError(t, err)

	completer := new(llm.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("no idea", nil)

	_, err = NewLLMSource(completer, k, 0).Labels(context.Background(), Input{})
	assert.ErrorIs(t, err, errors.ErrInvalidLLMOutput)
}

type recordingAnalyzer struct {
	target *string
}

func (r recordingAnalyzer) AnalyzeImpactScope(_ context.Context, _ []models.ChangedFile, target string) impact.Scope {
	*r.target = target
	return impact.Scope{V3: true}
}

func TestOnRemote(t *testing.T) {
	var seen string
	source := NewImpactSource(OnRemote(recordingAnalyzer{target: &seen}, "origin"), "3.0UI", "4.0UI")

	got, err := source.Labels(context.Background(), Input{TargetBranch: "develop"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3.0UI"}, got)
	assert.Equal(t, "origin/develop", seen)
}
