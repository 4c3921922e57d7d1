package models

// MergeRequestDescriptionInfo is the canonical document embedded in MR
// descriptions as a hidden JSON block.
type MergeRequestDescriptionInfo struct {
	Ticket        string            `json:"ticket"`
	JiraTicketURL string            `json:"jiraTicketUrl"`
	Plan          DevelopmentPlan   `json:"plan"`
	Report        DevelopmentReport `json:"report"`
}

type DevelopmentPlan struct {
	Goal  string   `json:"goal"`
	Steps []string `json:"steps"`
	Notes string   `json:"notes"`
}

type DevelopmentReport struct {
	Summary    string       `json:"summary"`
	ChangeType string       `json:"changeType"`
	Files      []ReportFile `json:"files"`
	Impact     string       `json:"impact"`
	Testing    string       `json:"testing"`
	Risks      string       `json:"risks"`
	Notes      string       `json:"notes"`
}

type ReportFile struct {
	Path        string `json:"path"`
	Status      string `json:"status"`
	Description string `json:"description"`
}
