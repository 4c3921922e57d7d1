package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fe-devtools/devflow/internal/models"
)

const (
	// Placeholder stands in for empty free text.
	Placeholder = "N/A"

	MarkerStart = "<!-- devflow:mr-info:start"
	MarkerEnd   = "devflow:mr-info:end -->"
)

// Section titles of the rendered description. Parse looks sections up by
// these titles, so they are part of the format.
const (
	sectionTicket = "Ticket"
	sectionPlan   = "Development Plan"
	sectionReport = "Development Report"

	titleGoal       = "Goal"
	titleSteps      = "Steps"
	titleNotes      = "Notes"
	titleSummary    = "Summary"
	titleChangeType = "Change Type"
	titleFiles      = "Changed Files"
	titleImpact     = "Impact"
	titleTesting    = "Testing"
	titleRisks      = "Risks"

	rowTicket = "Ticket"
	rowJira   = "Jira"
)

// Render lays info out as an MR description. The output is a pure function of
// Normalize(info) and ends with that normalized value as a hidden JSON block.
func Render(info models.MergeRequestDescriptionInfo) string {
	n := Normalize(info)
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", sectionTicket)
	b.WriteString("| Field | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| %s | %s |\n", rowTicket, cell(n.Ticket))
	jira := Placeholder
	if n.JiraTicketURL != "" {
		label := n.Ticket
		if label == "" {
			label = n.JiraTicketURL
		}
		jira = fmt.Sprintf("[%s](%s)", escapeCell(label), escapeCell(n.JiraTicketURL))
	}
	fmt.Fprintf(&b, "| %s | %s |\n\n", rowJira, jira)

	fmt.Fprintf(&b, "## %s\n\n", sectionPlan)
	writeText(&b, titleGoal, n.Plan.Goal)
	fmt.Fprintf(&b, "### %s\n\n", titleSteps)
	if len(n.Plan.Steps) == 0 {
		b.WriteString(Placeholder + "\n\n")
	} else {
		for i, s := range n.Plan.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(s))
		}
		b.WriteString("\n")
	}
	writeText(&b, titleNotes, n.Plan.Notes)

	fmt.Fprintf(&b, "## %s\n\n", sectionReport)
	writeText(&b, titleSummary, n.Report.Summary)
	writeText(&b, titleChangeType, n.Report.ChangeType)
	fmt.Fprintf(&b, "### %s\n\n", titleFiles)
	if len(n.Report.Files) == 0 {
		b.WriteString(Placeholder + "\n\n")
	} else {
		b.WriteString("| File | Status | Description |\n| --- | --- | --- |\n")
		for _, f := range n.Report.Files {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", escapeCell(f.Path), cell(f.Status), cell(f.Description))
		}
		b.WriteString("\n")
	}
	writeText(&b, titleImpact, n.Report.Impact)
	writeText(&b, titleTesting, n.Report.Testing)
	writeText(&b, titleRisks, n.Report.Risks)
	writeText(&b, titleNotes, n.Report.Notes)

	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		// Only strings and slices of them, so this cannot happen.
		panic(fmt.Sprintf("report: marshal description info: %v", err))
	}
	b.WriteString(MarkerStart + "\n")
	b.Write(data)
	b.WriteString("\n" + MarkerEnd + "\n")

	return b.String()
}

func writeText(b *strings.Builder, title, text string) {
	fmt.Fprintf(b, "### %s\n\n", title)
	if text == "" {
		text = Placeholder
	}
	b.WriteString(text + "\n\n")
}

func cell(s string) string {
	if s == "" {
		return Placeholder
	}
	return escapeCell(s)
}

// literalBreak stands in for an escaped <br> while cells are unescaped.
const literalBreak = "\x00"

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "<br>", `\<br>`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func unescapeCell(s string) string {
	s = strings.ReplaceAll(s, `\<br>`, literalBreak)
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, literalBreak, "<br>")
	return strings.ReplaceAll(s, `\|`, "|")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize trims every field, drops empty list entries and maps the
// placeholder back to the empty string. It is idempotent.
func Normalize(info models.MergeRequestDescriptionInfo) models.MergeRequestDescriptionInfo {
	out := models.MergeRequestDescriptionInfo{
		Ticket:        text(info.Ticket),
		JiraTicketURL: text(info.JiraTicketURL),
		Plan: models.DevelopmentPlan{
			Goal:  text(info.Plan.Goal),
			Steps: []string{},
			Notes: text(info.Plan.Notes),
		},
		Report: models.DevelopmentReport{
			Summary:    text(info.Report.Summary),
			ChangeType: text(info.Report.ChangeType),
			Files:      []models.ReportFile{},
			Impact:     text(info.Report.Impact),
			Testing:    text(info.Report.Testing),
			Risks:      text(info.Report.Risks),
			Notes:      text(info.Report.Notes),
		},
	}
	for _, s := range info.Plan.Steps {
		if s = oneLine(text(s)); s != "" {
			out.Plan.Steps = append(out.Plan.Steps, s)
		}
	}
	for _, f := range info.Report.Files {
		f := models.ReportFile{
			Path:        oneLine(text(strings.Trim(strings.TrimSpace(f.Path), "`"))),
			Status:      text(f.Status),
			Description: text(f.Description),
		}
		if f.Path != "" {
			out.Report.Files = append(out.Report.Files, f)
		}
	}
	return out
}

func text(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == Placeholder {
		return ""
	}
	return s
}
