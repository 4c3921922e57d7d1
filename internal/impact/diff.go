package impact

import (
	"strconv"
	"strings"

	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

// pairWindow is how far, in scan positions, an added line looks for a removed
// line to pair with.
const pairWindow = 5

// ParseDiff splits a unified diff into hunks. Text outside hunks is ignored and
// a malformed diff simply yields fewer hunks. Added lines carry new-file line
// numbers, removed lines old-file numbers.
func ParseDiff(diff string) []models.DiffHunk {
	var (
		hunks   []models.DiffHunk
		current *models.DiffHunk
		oldLine int
		newLine int
	)

	flush := func() {
		if current != nil {
			PairLines(current)
			hunks = append(hunks, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(diff, "\r\n", "\n"), "\n") {
		if m := regex.HunkHeader.FindStringSubmatch(line); m != nil {
			flush()
			h := models.DiffHunk{
				OldStart: atoi(m[1], 0),
				OldLines: atoi(m[2], 1),
				NewStart: atoi(m[3], 0),
				NewLines: atoi(m[4], 1),
			}
			current = &h
			oldLine, newLine = h.OldStart, h.NewStart
			continue
		}
		if current == nil {
			continue
		}
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			current.Lines = append(current.Lines, models.ChangedLine{
				LineNumber: newLine,
				Kind:       models.LineAdded,
				Content:    line[1:],
				Anchor:     newLine,
			})
			newLine++
		case strings.HasPrefix(line, "-"):
			current.Lines = append(current.Lines, models.ChangedLine{
				LineNumber: oldLine,
				Kind:       models.LineRemoved,
				Content:    line[1:],
				Anchor:     newLine,
			})
			oldLine++
		case strings.HasPrefix(line, `\`):
		default:
			oldLine++
			newLine++
		}
	}
	flush()

	return hunks
}

// PairLines links each added line with the nearest unpaired removed line at
// most pairWindow scan positions away. Ties go to the earlier line.
func PairLines(h *models.DiffHunk) {
	for i := range h.Lines {
		if h.Lines[i].Kind != models.LineAdded {
			continue
		}
		best := -1
		for d := 1; d <= pairWindow && best < 0; d++ {
			for _, j := range []int{i - d, i + d} {
				if j < 0 || j >= len(h.Lines) {
					continue
				}
				if h.Lines[j].Kind == models.LineRemoved && h.Lines[j].PairedLineNumber == nil {
					best = j
					break
				}
			}
		}
		if best < 0 {
			continue
		}
		added, removed := h.Lines[i].LineNumber, h.Lines[best].LineNumber
		h.Lines[i].PairedLineNumber = &removed
		h.Lines[best].PairedLineNumber = &added
	}
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
