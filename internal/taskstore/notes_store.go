package taskstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

// NotesRef is the git notes ref holding start-task records.
const NotesRef = "start-task"

// anchorContent is hashed into the blob every record is attached to. The blob
// id only depends on this text, so it is the same in every clone and is not
// touched by rebases or amends.
const anchorContent = "devflow start-task records\n"

// NotesGit is the part of the git service the notes store needs.
type NotesGit interface {
	HashObject(ctx context.Context, content string) (string, error)
	NotesShow(ctx context.Context, ref, commit string) (string, bool, error)
	NotesAdd(ctx context.Context, ref, commit, message string) error
}

var _ StartInfoStore = (*NotesStore)(nil)

// NotesStore keeps start-task records in a single git note. The note body is a
// JSON object keyed by ticket; each record carries its own base branch.
type NotesStore struct {
	git NotesGit
}

func NewNotesStore(git NotesGit) *NotesStore {
	return &NotesStore{git: git}
}

// anchor rewrites the blob on every call so a gc that pruned it is harmless.
func (s *NotesStore) anchor(ctx context.Context) (string, error) {
	id, err := s.git.HashObject(ctx, anchorContent)
	if err != nil {
		return "", errors.ErrNotes.WithError(err)
	}
	return id, nil
}

func (s *NotesStore) read(ctx context.Context, object string) (map[string]models.StartTaskInfo, error) {
	body, found, err := s.git.NotesShow(ctx, NotesRef, object)
	if err != nil {
		return nil, err
	}
	records := make(map[string]models.StartTaskInfo)
	if !found || strings.TrimSpace(body) == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		logger.Warn(ctx, "ignoring unreadable start-task note", "object", object, "error", err)
		return make(map[string]models.StartTaskInfo), nil
	}
	return records, nil
}

func (s *NotesStore) SaveStartInfo(ctx context.Context, info models.StartTaskInfo) error {
	object, err := s.anchor(ctx)
	if err != nil {
		return err
	}

	records, err := s.read(ctx, object)
	if err != nil {
		return err
	}
	records[info.Ticket] = info

	data, err := json.Marshal(records)
	if err != nil {
		return errors.ErrNotes.WithError(err)
	}
	return s.git.NotesAdd(ctx, NotesRef, object, string(data))
}

func (s *NotesStore) LoadStartInfo(ctx context.Context, ticket string) (*models.StartTaskInfo, error) {
	object, err := s.anchor(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.read(ctx, object)
	if err != nil {
		return nil, err
	}
	info, ok := records[ticket]
	if !ok {
		return nil, nil
	}
	return &info, nil
}
