package report

import (
	"encoding/json"
	"strings"

	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

// section is a heading and the lines up to the next heading of the same or
// a higher level.
type section struct {
	level int
	title string
	body  []string
	subs  []*section
}

// ExtractJSONBlock returns the payload between the hidden block markers. A
// marker string inside the free text itself would confuse it.
func ExtractJSONBlock(markdown string) (string, bool) {
	start := strings.Index(markdown, MarkerStart)
	if start < 0 {
		return "", false
	}
	rest := markdown[start+len(MarkerStart):]
	end := strings.Index(rest, MarkerEnd)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// StripJSONBlock removes the hidden block, leaving the visible description.
func StripJSONBlock(markdown string) string {
	start := strings.Index(markdown, MarkerStart)
	if start < 0 {
		return markdown
	}
	end := strings.Index(markdown[start:], MarkerEnd)
	if end < 0 {
		return markdown
	}
	return strings.TrimRight(markdown[:start]+markdown[start+end+len(MarkerEnd):], "\n") + "\n"
}

// Parse reads a description produced by Render. The hidden JSON block wins
// when it decodes; otherwise the visible tables and sections are read. Parse
// never fails: missing parts come back empty.
func Parse(markdown string) models.MergeRequestDescriptionInfo {
	if block, ok := ExtractJSONBlock(markdown); ok {
		var info models.MergeRequestDescriptionInfo
		if err := json.Unmarshal([]byte(block), &info); err == nil {
			return Normalize(info)
		}
	}

	root := parseSections(StripJSONBlock(markdown))
	var info models.MergeRequestDescriptionInfo

	if s := root.find(sectionTicket); s != nil {
		for _, row := range tableRows(s.body) {
			if len(row) < 2 {
				continue
			}
			switch strings.TrimSpace(row[0]) {
			case rowTicket:
				info.Ticket = row[1]
			case rowJira:
				if m := regex.MarkdownLink.FindStringSubmatch(strings.TrimSpace(row[1])); m != nil {
					info.JiraTicketURL = m[2]
				} else {
					info.JiraTicketURL = row[1]
				}
			}
		}
	}
	if s := root.find(sectionPlan); s != nil {
		info.Plan = planFrom(s)
	}
	if s := root.find(sectionReport); s != nil {
		info.Report = reportFrom(s)
	}
	return Normalize(info)
}

// ParsePlanMarkdown reads a hand-written development-plan.md. Headings are
// matched loosely; without a goal heading the first paragraph is the goal.
func ParsePlanMarkdown(md string) models.DevelopmentPlan {
	root := parseSections(md)
	plan := planFrom(root)
	if plan.Goal == "" {
		plan.Goal = firstParagraph(root.allLines())
	}
	return Normalize(models.MergeRequestDescriptionInfo{Plan: plan}).Plan
}

// ParseReportMarkdown reads a hand-written development-report.md.
func ParseReportMarkdown(md string) models.DevelopmentReport {
	root := parseSections(md)
	report := reportFrom(root)
	if report.Summary == "" {
		report.Summary = firstParagraph(root.allLines())
	}
	return Normalize(models.MergeRequestDescriptionInfo{Report: report}).Report
}

var (
	goalTitles       = []string{titleGoal, "Objective", "Overview", "Background"}
	stepTitles       = []string{titleSteps, "Plan", "Tasks", "Implementation Steps", "Implementation"}
	notesTitles      = []string{titleNotes, "Remarks", "Additional Notes"}
	summaryTitles    = []string{titleSummary, "Overview", "Description"}
	changeTypeTitles = []string{titleChangeType, "Type of Change", "Type"}
	filesTitles      = []string{titleFiles, "Files", "Files Changed", "Modified Files"}
	impactTitles     = []string{titleImpact, "Impact Scope", "Affected Areas"}
	testingTitles    = []string{titleTesting, "Tests", "Test Plan", "How to Test"}
	risksTitles      = []string{titleRisks, "Risk", "Known Issues"}
)

func planFrom(s *section) models.DevelopmentPlan {
	var plan models.DevelopmentPlan
	if g := s.find(goalTitles...); g != nil {
		plan.Goal = g.text()
	}
	if st := s.find(stepTitles...); st != nil {
		plan.Steps = listItems(st.allLines())
	}
	if n := s.find(notesTitles...); n != nil {
		plan.Notes = n.text()
	}
	return plan
}

func reportFrom(s *section) models.DevelopmentReport {
	var r models.DevelopmentReport
	if x := s.find(summaryTitles...); x != nil {
		r.Summary = x.text()
	}
	if x := s.find(changeTypeTitles...); x != nil {
		r.ChangeType = x.text()
	}
	if x := s.find(filesTitles...); x != nil {
		r.Files = fileEntries(x.allLines())
	}
	if x := s.find(impactTitles...); x != nil {
		r.Impact = x.text()
	}
	if x := s.find(testingTitles...); x != nil {
		r.Testing = x.text()
	}
	if x := s.find(risksTitles...); x != nil {
		r.Risks = x.text()
	}
	if x := s.find(notesTitles...); x != nil {
		r.Notes = x.text()
	}
	return r
}

// parseSections builds the heading tree of md. Headings inside fenced code
// blocks are body text.
func parseSections(md string) *section {
	root := &section{}
	stack := []*section{root}
	fenced := false

	for _, line := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
		}
		m := regex.MarkdownHeading.FindStringSubmatch(line)
		if fenced || m == nil {
			top := stack[len(stack)-1]
			top.body = append(top.body, line)
			continue
		}

		s := &section{level: len(m[1]), title: strings.TrimSpace(m[2])}
		for len(stack) > 1 && stack[len(stack)-1].level >= s.level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.subs = append(parent.subs, s)
		stack = append(stack, s)
	}
	return root
}

// find returns the first descendant, in document order, whose title matches
// one of titles. Earlier titles win over later ones.
func (s *section) find(titles ...string) *section {
	for _, t := range titles {
		if found := s.findTitle(t); found != nil {
			return found
		}
	}
	return nil
}

func (s *section) findTitle(title string) *section {
	for _, sub := range s.subs {
		if strings.EqualFold(cleanTitle(sub.title), title) {
			return sub
		}
		if found := sub.findTitle(title); found != nil {
			return found
		}
	}
	return nil
}

// cleanTitle drops numbering, emphasis and a trailing colon from a heading.
func cleanTitle(t string) string {
	t = strings.Trim(t, "*_ ")
	if m := regex.OrderedItem.FindStringSubmatch(t); m != nil {
		t = m[1]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.Trim(t, "*_ "), ":"))
}

func (s *section) text() string {
	return strings.TrimSpace(strings.Join(s.body, "\n"))
}

// allLines is the body of s followed by the bodies of its subsections.
func (s *section) allLines() []string {
	lines := append([]string(nil), s.body...)
	for _, sub := range s.subs {
		lines = append(lines, sub.allLines()...)
	}
	return lines
}

func firstParagraph(lines []string) string {
	var para []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, strings.TrimSpace(l))
	}
	return strings.Join(para, " ")
}

func listItems(lines []string) []string {
	var items []string
	for _, l := range lines {
		if m := regex.OrderedItem.FindStringSubmatch(l); m != nil {
			items = append(items, m[1])
			continue
		}
		if m := regex.BulletItem.FindStringSubmatch(l); m != nil {
			items = append(items, m[1])
		}
	}
	return items
}

// tableRows returns the cells of every table row in lines, skipping the
// header and delimiter rows.
func tableRows(lines []string) [][]string {
	var rows [][]string
	inTable := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, "|") {
			inTable = false
			continue
		}
		cells := splitRow(l)
		if !inTable {
			inTable = true
			continue
		}
		if isDelimiterRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return rows
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}

	var (
		cells []string
		cur   strings.Builder
	)
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteString(`\|`)
			i++
			continue
		}
		if line[i] == '|' {
			cells = append(cells, unescapeCell(strings.TrimSpace(cur.String())))
			cur.Reset()
			continue
		}
		cur.WriteByte(line[i])
	}
	return append(cells, unescapeCell(strings.TrimSpace(cur.String())))
}

func isDelimiterRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}

// fileEntries reads changed files from a File | Status | Description table
// or, failing that, from a bullet list such as "- `src/a.ts` (M): text".
func fileEntries(lines []string) []models.ReportFile {
	var files []models.ReportFile
	for _, row := range tableRows(lines) {
		f := models.ReportFile{Path: row[0]}
		if len(row) > 2 {
			f.Status, f.Description = row[1], row[2]
		} else if len(row) == 2 {
			f.Description = row[1]
		}
		files = append(files, f)
	}
	if len(files) > 0 {
		return files
	}

	for _, item := range listItems(lines) {
		files = append(files, bulletFile(item))
	}
	return files
}

func bulletFile(item string) models.ReportFile {
	var f models.ReportFile
	rest := item
	if strings.HasPrefix(rest, "`") {
		if end := strings.Index(rest[1:], "`"); end >= 0 {
			f.Path = rest[1 : end+1]
			rest = rest[end+2:]
		}
	}
	if f.Path == "" {
		cut := strings.IndexAny(rest, " :")
		if cut < 0 {
			f.Path = rest
			return f
		}
		f.Path, rest = rest[:cut], rest[cut:]
	}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end > 0 {
			f.Status = rest[1:end]
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	rest = strings.TrimSpace(strings.TrimLeft(rest, ":- "))
	f.Description = rest
	return f
}
