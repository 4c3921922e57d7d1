package git

import (
	"strings"

	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

// FeatureBranch returns the branch name used for a ticket.
func FeatureBranch(ticket string) string {
	return "feature/" + ticket
}

// TicketFromBranch extracts the ticket from feature/, bugfix/ or hotfix/
// branches. It returns models.NoTicket when the branch carries none.
func TicketFromBranch(branch string) string {
	m := regex.BranchTicket.FindStringSubmatch(strings.TrimSpace(branch))
	if m == nil {
		return models.NoTicket
	}
	return m[1]
}
