package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fe-devtools/devflow/internal/models"
)

const (
	StartInfoFile       = "start-task-info.json"
	PlanFile            = "development-plan.md"
	ReportFile          = "development-report.md"
	DescriptionInfoFile = "merge-request-description-info.json"
)

// StartInfoStore persists the start-task record of a ticket.
type StartInfoStore interface {
	SaveStartInfo(ctx context.Context, info models.StartTaskInfo) error
	// LoadStartInfo returns nil without error when nothing was recorded.
	LoadStartInfo(ctx context.Context, ticket string) (*models.StartTaskInfo, error)
}

var _ StartInfoStore = (*FileStore)(nil)

// FileStore keeps per-ticket files under <dir>/<TICKET>/.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) TicketDir(ticket string) string {
	return filepath.Join(s.dir, ticket)
}

func (s *FileStore) SaveStartInfo(_ context.Context, info models.StartTaskInfo) error {
	return s.writeJSON(info.Ticket, StartInfoFile, info)
}

func (s *FileStore) LoadStartInfo(_ context.Context, ticket string) (*models.StartTaskInfo, error) {
	var info models.StartTaskInfo
	found, err := s.readJSON(ticket, StartInfoFile, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// ReadPlan returns the raw development plan, or "" when there is none.
func (s *FileStore) ReadPlan(ticket string) (string, error) {
	return s.readText(ticket, PlanFile)
}

// ReadReport returns the raw development report, or "" when there is none.
func (s *FileStore) ReadReport(ticket string) (string, error) {
	return s.readText(ticket, ReportFile)
}

func (s *FileStore) SaveDescriptionInfo(info models.MergeRequestDescriptionInfo) error {
	return s.writeJSON(info.Ticket, DescriptionInfoFile, info)
}

func (s *FileStore) LoadDescriptionInfo(ticket string) (*models.MergeRequestDescriptionInfo, error) {
	var info models.MergeRequestDescriptionInfo
	found, err := s.readJSON(ticket, DescriptionInfoFile, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

func (s *FileStore) readText(ticket, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.TicketDir(ticket), name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("error reading %s: %w", name, err)
	}
	return string(data), nil
}

func (s *FileStore) readJSON(ticket, name string, out interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.TicketDir(ticket), name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("error decoding %s: %w", name, err)
	}
	return true, nil
}

func (s *FileStore) writeJSON(ticket, name string, v interface{}) error {
	if ticket == "" {
		return fmt.Errorf("cannot write %s without a ticket", name)
	}
	dir := s.TicketDir(ticket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	return nil
}
