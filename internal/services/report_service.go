package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/report"
	"github.com/fe-devtools/devflow/internal/taskstore"
)

// ReportService turns the development plan and report of a task into the MR
// description and back.
type ReportService struct {
	files   *taskstore.FileStore
	tickets TicketService
}

// NewReportService accepts a nil tickets service; descriptions then carry no
// Jira link.
func NewReportService(files *taskstore.FileStore, tickets TicketService) *ReportService {
	return &ReportService{files: files, tickets: tickets}
}

// Info assembles the description document of ticket from its task files. The
// boolean is false when neither a plan nor a report was written.
func (s *ReportService) Info(ticket string) (models.MergeRequestDescriptionInfo, bool, error) {
	info := models.MergeRequestDescriptionInfo{Ticket: ticket}
	if ticket == "" || ticket == models.NoTicket {
		return report.Normalize(models.MergeRequestDescriptionInfo{}), false, nil
	}
	if s.tickets != nil {
		info.JiraTicketURL = s.tickets.BrowseURL(ticket)
	}

	plan, err := s.files.ReadPlan(ticket)
	if err != nil {
		return info, false, err
	}
	rep, err := s.files.ReadReport(ticket)
	if err != nil {
		return info, false, err
	}
	if strings.TrimSpace(plan) != "" {
		info.Plan = report.ParsePlanMarkdown(plan)
	}
	if strings.TrimSpace(rep) != "" {
		info.Report = report.ParseReportMarkdown(rep)
	}
	return report.Normalize(info), strings.TrimSpace(plan+rep) != "", nil
}

// Render writes merge-request-description-info.json for ticket and returns
// the rendered description.
func (s *ReportService) Render(ctx context.Context, ticket string) (string, error) {
	info, _, err := s.Info(ticket)
	if err != nil {
		return "", err
	}
	if err := s.save(info); err != nil {
		return "", err
	}
	logger.Debug(ctx, "description rendered", "ticket", ticket,
		"steps", len(info.Plan.Steps), "files", len(info.Report.Files))
	return report.Render(info), nil
}

// FromCommits builds a description for a branch without task files: the
// commit subjects become the summary and the first conventional commit gives
// the change type.
func (s *ReportService) FromCommits(ticket string, commits []string) string {
	info := models.MergeRequestDescriptionInfo{}
	if ticket != "" && ticket != models.NoTicket {
		info.Ticket = ticket
		if s.tickets != nil {
			info.JiraTicketURL = s.tickets.BrowseURL(ticket)
		}
	}

	var b strings.Builder
	for i := len(commits) - 1; i >= 0; i-- {
		subject := commitSubject(commits[i])
		if subject == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", subject)
		if info.Report.ChangeType == "" {
			if msg, ok := commit.ParseMessage(subject); ok {
				info.Report.ChangeType = msg.Type
			}
		}
	}
	info.Report.Summary = b.String()
	return report.Render(info)
}

// Parse reads an MR description and returns its document as indented JSON.
func (s *ReportService) Parse(markdown string) ([]byte, error) {
	return json.MarshalIndent(report.Parse(markdown), "", "  ")
}

func (s *ReportService) save(info models.MergeRequestDescriptionInfo) error {
	if info.Ticket == "" {
		return nil
	}
	return s.files.SaveDescriptionInfo(info)
}

// commitSubject drops the abbreviated hash git log --oneline puts first.
func commitSubject(line string) string {
	line = strings.TrimSpace(line)
	if _, subject, ok := strings.Cut(line, " "); ok {
		return strings.TrimSpace(subject)
	}
	return ""
}
