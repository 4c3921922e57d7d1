package taskstore

import (
	"context"
	"strings"
)

// OriginChecker tells whether a change went through the planned task workflow.
type OriginChecker struct {
	starts StartInfoStore
	files  *FileStore
}

func NewOriginChecker(starts StartInfoStore, files *FileStore) *OriginChecker {
	return &OriginChecker{starts: starts, files: files}
}

// HasTaskOrigin is true when a start record exists for ticket and either the
// plan or the report file has content.
func (c *OriginChecker) HasTaskOrigin(ctx context.Context, ticket string) (bool, error) {
	info, err := c.starts.LoadStartInfo(ctx, ticket)
	if err != nil {
		return false, err
	}
	if info == nil || info.Ticket != ticket {
		return false, nil
	}

	plan, err := c.files.ReadPlan(ticket)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(plan) != "" {
		return true, nil
	}

	report, err := c.files.ReadReport(ticket)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(report) != "", nil
}
