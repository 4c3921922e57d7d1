package regex

import "regexp"

var (
	// Commit patterns
	ConventionalCommit = regexp.MustCompile(`^(feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\(([^)]+)\))?(!)?:\s*(.+)`)
	SemVer             = regexp.MustCompile(`^v?(\d+)\.(\d+)(?:\.(\d+))?`)

	// Ticket patterns
	Ticket       = regexp.MustCompile(`^[A-Z0-9]+-[0-9]+$`)
	BranchTicket = regexp.MustCompile(`^(?:feature|bugfix|hotfix)/([A-Z0-9]+-[0-9]+)(?:[-_/].*)?$`)
	CJK          = regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)

	// Unified diff
	HunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

	// Variant markers
	PathV3       = regexp.MustCompile(`(?:^|/)v3/|\.v3\.`)
	PathV4       = regexp.MustCompile(`(?:^|/)v4/|\.v4\.`)
	HeaderV3     = regexp.MustCompile(`(?i)^\s*(?://|/\*+|\*|<!--|#).*\bv3[\s-]*only\b`)
	HeaderV4     = regexp.MustCompile(`(?i)^\s*(?://|/\*+|\*|<!--|#).*\bv4[\s-]*only\b`)
	ClassBuilder = regexp.MustCompile(`\b(?:classNames|classnames|clsx|cx)\s*\(`)
	// VersionPredicate matches isV3(), !isV4UI, useUIV3() and friends. Group 1 is
	// the negation, group 2 the variant digit.
	VersionPredicate = regexp.MustCompile(`(!\s*)?\b(?:is|use)(?:UI)?V([34])(?:UI)?\b(?:\s*\(\s*\))?`)

	// Git and Repo patterns
	SSHRepo   = regexp.MustCompile(`git@([^:]+):(.+?)(?:\.git)?$`)
	HTTPSRepo = regexp.MustCompile(`https?://([^/]+)/(.+?)(?:\.git)?$`)

	// Figma token names
	NonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

	// Markdown
	MarkdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	OrderedItem     = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
	BulletItem      = regexp.MustCompile(`^\s*[-*+]\s+(?:\[[ xX]\]\s+)?(.*)$`)
	MarkdownLink    = regexp.MustCompile(`^\[([^\]]*)\]\((.*)\)$`)

	// Review relay marker hidden in relayed discussion notes
	ReviewMarker = regexp.MustCompile(`<!--\s*devflow-review:(\S+?)\s*-->`)
)
