package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/report"
	"github.com/fe-devtools/devflow/internal/taskstore"
)

func TestReportService_Render(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewFileStore(t.TempDir())
	svc := NewReportService(store, new(MockTicketService))

	writeTaskFile(t, store, "FE-1234", taskstore.PlanFile, "Fix the padding.\n\n## Steps\n- reproduce\n- fix token\n")
	writeTaskFile(t, store, "FE-1234", taskstore.ReportFile,
		"## Summary\nPadding fixed.\n\n## Changed Files\n- `src/Button.tsx` (M): padding\n")

	md, err := svc.Render(ctx, "FE-1234")
	require.NoError(t, err)
	assert.Contains(t, md, "| Ticket | FE-1234 |")
	assert.Contains(t, md, "[FE-1234](https://jira.example.com/browse/FE-1234)")

	saved, err := store.LoadDescriptionInfo("FE-1234")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, report.Parse(md), *saved)
	assert.Equal(t, []string{"reproduce", "fix token"}, saved.Plan.Steps)
	assert.Equal(t, []models.ReportFile{{Path: "src/Button.tsx", Status: "M", Description: "padding"}}, saved.Report.Files)
}

func TestReportService_Info(t *testing.T) {
	store := taskstore.NewFileStore(t.TempDir())
	svc := NewReportService(store, nil)

	info, ok, err := svc.Info("FE-9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "FE-9", info.Ticket)
	assert.Empty(t, info.JiraTicketURL)

	_, ok, err = svc.Info(models.NoTicket)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportService_Parse(t *testing.T) {
	svc := NewReportService(taskstore.NewFileStore(t.TempDir()), nil)
	md := report.Render(models.MergeRequestDescriptionInfo{
		Ticket: "FE-3",
		Report: models.DevelopmentReport{Summary: "done"},
	})

	out, err := svc.Parse(md)
	require.NoError(t, err)

	var got models.MergeRequestDescriptionInfo
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "FE-3", got.Ticket)
	assert.Equal(t, "done", got.Report.Summary)
}

func TestReportService_FromCommits(t *testing.T) {
	svc := NewReportService(taskstore.NewFileStore(t.TempDir()), nil)

	md := svc.FromCommits("FE-4", []string{
		"bbb2222 fix(FE-4): handle empty list",
		"aaa1111 feat(FE-4): add list view",
		"",
	})
	info := report.Parse(md)
	assert.Equal(t, "FE-4", info.Ticket)
	assert.Equal(t, "feat", info.Report.ChangeType)
	assert.Equal(t, "- feat(FE-4): add list view\n- fix(FE-4): handle empty list", info.Report.Summary)

	empty := report.Parse(svc.FromCommits(models.NoTicket, nil))
	assert.Empty(t, empty.Ticket)
}
