package models

// ChangeStatus is the single-letter status reported by git diff --name-status.
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "A"
	StatusModified ChangeStatus = "M"
	StatusDeleted  ChangeStatus = "D"
	StatusRenamed  ChangeStatus = "R"
)

// ChangedFile is a file that differs between the current branch and a target ref.
type ChangedFile struct {
	Path    string       `json:"path"`
	OldPath string       `json:"oldPath,omitempty"`
	Status  ChangeStatus `json:"status"`
}

type LineKind int

const (
	LineAdded LineKind = iota + 1
	LineRemoved
)

func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangedLine is one added or removed line of a hunk.
//
// LineNumber is the new-file line for added lines and the old-file line for
// removed lines. Anchor is the new-file counter at the point the line was read,
// which positions removed lines in the current content. PairedLineNumber links a
// removed line to a nearby added line (and back); it is a best-effort guess, not
// a real diff alignment.
type ChangedLine struct {
	LineNumber       int
	Kind             LineKind
	Content          string
	PairedLineNumber *int
	Anchor           int
}

// DiffHunk is one @@ -a,b +c,d @@ section of a unified diff.
type DiffHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []ChangedLine
}
