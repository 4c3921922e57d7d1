package models

// MergeRequest is the subset of a GitLab merge request the workflow reads.
type MergeRequest struct {
	IID          int      `json:"iid"`
	WebURL       string   `json:"web_url"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
	Labels       []string `json:"labels"`
	Draft        bool     `json:"draft"`
}

// MergeRequestOptions carries everything needed to create or update an MR.
// Reviewer and Assignee are usernames; transports resolve them as needed.
type MergeRequestOptions struct {
	SourceBranch       string
	TargetBranch       string
	Title              string
	Description        string
	Draft              bool
	Reviewer           string
	Assignee           string
	Labels             []string
	RemoveSourceBranch bool
}

type (
	Discussion struct {
		ID    string
		Notes []Note
	}

	Note struct {
		ID     int
		Body   string
		Author string
		System bool
	}
)

// ReviewComment is a finding produced by the external AI review service.
type ReviewComment struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// ColorToken is a design color extracted from a Figma swatch.
type ColorToken struct {
	Name string  `json:"name"`
	Hex  string  `json:"hex"`
	R    uint8   `json:"r"`
	G    uint8   `json:"g"`
	B    uint8   `json:"b"`
	A    float64 `json:"a"`
}
