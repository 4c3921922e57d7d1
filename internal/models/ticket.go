package models

import "time"

// NoTicket is the sentinel used when a branch or commit carries no ticket.
const NoTicket = "N/A"

// TicketInfo holds the Jira fields the workflow consumes.
type TicketInfo struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	IssueType   string   `json:"issue_type"`
	Status      string   `json:"status"`
	FixVersions []string `json:"fix_versions"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
}

// StartTaskInfo is written when a task is started and read back when the MR is
// opened to tell whether the change went through the planned workflow.
type StartTaskInfo struct {
	Ticket     string    `json:"ticket"`
	Summary    string    `json:"summary"`
	IssueType  string    `json:"issueType"`
	Branch     string    `json:"branch"`
	BaseBranch string    `json:"baseBranch"`
	StartedAt  time.Time `json:"startedAt"`
	Author     string    `json:"author,omitempty"`
}
